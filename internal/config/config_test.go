package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:5000", cfg.ServerAddress())
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 3*time.Second, cfg.StatsTimeout())
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server {
  port = 8080
  seed = 42
}

stats {
  backend = "memory"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(42), cfg.Server.Seed)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, "default", cfg.Server.DefaultUser)
	assert.Equal(t, BackendMemory, cfg.Stats.Backend)
	assert.Equal(t, "3s", cfg.Stats.Timeout)
	assert.Equal(t, "userstats", cfg.Stats.MongoCollection)
}

func TestLoadMongo(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server {
  log_format = "json"
  session_ttl = "5m"
}

stats {
  backend          = "mongo"
  timeout          = "500ms"
  mongo_uri        = "mongodb://db:27017/blackjackdb"
  mongo_db         = "blackjackdb"
  mongo_collection = "scores"
}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.StatsTimeout())
	assert.Equal(t, "scores", cfg.Stats.MongoCollection)
}

func TestLoadInvalidHCL(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, `server { port = `))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `server { colour = "red" }`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "chatty" }},
		{"bad log format", func(c *Config) { c.Server.LogFormat = "xml" }},
		{"empty default user", func(c *Config) { c.Server.DefaultUser = " " }},
		{"bad ttl", func(c *Config) { c.Server.SessionTTL = "soon" }},
		{"zero ttl", func(c *Config) { c.Server.SessionTTL = "0s" }},
		{"negative timeout", func(c *Config) { c.Stats.Timeout = "-1s" }},
		{"unknown backend", func(c *Config) { c.Stats.Backend = "redis" }},
		{"sqlite without path", func(c *Config) { c.Stats.SQLitePath = "" }},
		{"mongo without uri", func(c *Config) {
			c.Stats.Backend = BackendMongo
			c.Stats.MongoURI = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "blackjack.hcl")

	cfg := Default()
	cfg.Server.Port = 9000
	cfg.Stats.Backend = BackendMemory
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	// overwrite leaves no temp files behind
	cfg.Server.Port = 9001
	require.NoError(t, cfg.Save(path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "blackjack.hcl", entries[0].Name())
}

func TestSaveMissingDirectory(t *testing.T) {
	t.Parallel()

	err := Default().Save(filepath.Join(t.TempDir(), "nope", "blackjack.hcl"))
	require.Error(t, err)
}
