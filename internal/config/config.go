// Package config loads the blackjack server configuration from an HCL file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// Stats backends
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Stats  StatsSettings  `hcl:"stats,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	LogFormat   string `hcl:"log_format,optional"`
	Seed        int64  `hcl:"seed,optional"`
	SessionTTL  string `hcl:"session_ttl,optional"`
	DefaultUser string `hcl:"default_user,optional"`
}

// StatsSettings selects and configures the durable stats backend
type StatsSettings struct {
	Backend         string `hcl:"backend,optional"`
	Timeout         string `hcl:"timeout,optional"`
	SQLitePath      string `hcl:"sqlite_path,optional"`
	MongoURI        string `hcl:"mongo_uri,optional"`
	MongoDB         string `hcl:"mongo_db,optional"`
	MongoCollection string `hcl:"mongo_collection,optional"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:     "0.0.0.0",
			Port:        5000,
			LogLevel:    "info",
			LogFormat:   "text",
			SessionTTL:  "30m",
			DefaultUser: "default",
		},
		Stats: StatsSettings{
			Backend:         BackendSQLite,
			Timeout:         "3s",
			SQLitePath:      "blackjack.db",
			MongoURI:        "mongodb://localhost:27017/blackjackdb",
			MongoDB:         "blackjackdb",
			MongoCollection: "userstats",
		},
	}
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = def.Server.LogFormat
	}
	if c.Server.SessionTTL == "" {
		c.Server.SessionTTL = def.Server.SessionTTL
	}
	if c.Server.DefaultUser == "" {
		c.Server.DefaultUser = def.Server.DefaultUser
	}

	if c.Stats.Backend == "" {
		c.Stats.Backend = def.Stats.Backend
	}
	if c.Stats.Timeout == "" {
		c.Stats.Timeout = def.Stats.Timeout
	}
	if c.Stats.SQLitePath == "" {
		c.Stats.SQLitePath = def.Stats.SQLitePath
	}
	if c.Stats.MongoURI == "" {
		c.Stats.MongoURI = def.Stats.MongoURI
	}
	if c.Stats.MongoDB == "" {
		c.Stats.MongoDB = def.Stats.MongoDB
	}
	if c.Stats.MongoCollection == "" {
		c.Stats.MongoCollection = def.Stats.MongoCollection
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	switch c.Server.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Server.LogFormat)
	}

	if strings.TrimSpace(c.Server.DefaultUser) == "" {
		return fmt.Errorf("default user must not be empty")
	}
	if _, err := positiveDuration("session_ttl", c.Server.SessionTTL); err != nil {
		return err
	}
	if _, err := positiveDuration("stats timeout", c.Stats.Timeout); err != nil {
		return err
	}

	switch c.Stats.Backend {
	case BackendSQLite:
		if c.Stats.SQLitePath == "" {
			return fmt.Errorf("sqlite backend requires sqlite_path")
		}
	case BackendMongo:
		if c.Stats.MongoURI == "" || c.Stats.MongoDB == "" || c.Stats.MongoCollection == "" {
			return fmt.Errorf("mongo backend requires mongo_uri, mongo_db and mongo_collection")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid stats backend: %s", c.Stats.Backend)
	}

	return nil
}

// ServerAddress returns the listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// SessionTTL returns the parsed session lifetime. Call Validate first.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Server.SessionTTL)
	return d
}

// StatsTimeout returns the parsed durable store timeout. Call Validate first.
func (c *Config) StatsTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Stats.Timeout)
	return d
}

// Encode renders the configuration as HCL
func (c *Config) Encode() []byte {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(c, f.Body())
	return f.Bytes()
}

func positiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}
