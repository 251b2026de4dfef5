package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/session"
	"github.com/lox/blackjack/internal/stats"
)

const shutdownTimeout = 5 * time.Second

// ServerCmd runs the HTTP and WebSocket server
type ServerCmd struct {
	Config          string `short:"c" default:"blackjack.hcl" env:"BLACKJACK_CONFIG" help:"Path to HCL configuration file"`
	Addr            string `short:"a" env:"BLACKJACK_ADDR" help:"Server address to bind to, host:port (overrides config)"`
	LogLevel        string `short:"l" env:"BLACKJACK_LOG_LEVEL" help:"Log level (overrides config)"`
	LogFormat       string `env:"BLACKJACK_LOG_FORMAT" help:"Log format: text or json (overrides config)"`
	Seed            int64  `env:"BLACKJACK_SEED" help:"Deterministic RNG seed for dealing (overrides config)"`
	Backend         string `env:"BLACKJACK_STATS_BACKEND" help:"Stats backend: sqlite, mongo or memory (overrides config)"`
	SQLitePath      string `name:"sqlite-path" env:"BLACKJACK_SQLITE_PATH" help:"SQLite database path (overrides config)"`
	MongoURI        string `name:"mongo-uri" env:"MONGO_URI" help:"MongoDB connection URI (overrides config)"`
	MongoDB         string `name:"mongo-db" env:"MONGO_DB" help:"MongoDB database (overrides config)"`
	MongoCollection string `name:"mongo-collection" env:"MONGO_COLL" help:"MongoDB collection (overrides config)"`
}

func (c *ServerCmd) load() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	if c.Addr != "" {
		host, port, err := splitAddr(c.Addr)
		if err != nil {
			return nil, err
		}
		cfg.Server.Address = host
		cfg.Server.Port = port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Server.LogFormat = c.LogFormat
	}
	if c.Seed != 0 {
		cfg.Server.Seed = c.Seed
	}
	if c.Backend != "" {
		cfg.Stats.Backend = c.Backend
	}
	if c.SQLitePath != "" {
		cfg.Stats.SQLitePath = c.SQLitePath
	}
	if c.MongoURI != "" {
		cfg.Stats.MongoURI = c.MongoURI
	}
	if c.MongoDB != "" {
		cfg.Stats.MongoDB = c.MongoDB
	}
	if c.MongoCollection != "" {
		cfg.Stats.MongoCollection = c.MongoCollection
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *ServerCmd) Run() error {
	cfg, err := c.load()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStats(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close stats store", "error", err)
		}
	}()

	seed := randutil.Seed(cfg.Server.Seed)
	logger.Info("Dealing with seed", "seed", seed)
	dealer := deck.NewRandomDealer(randutil.New(seed))

	sessions := session.NewStore(quartz.NewReal(), cfg.SessionTTL(), logger)
	gameService := server.NewGameService(dealer, repo, cfg.Server.DefaultUser, logger)
	srv := server.NewServer(cfg.ServerAddress(), gameService, sessions, logger)

	logger.Info("Starting blackjack",
		"addr", cfg.ServerAddress(),
		"backend", cfg.Stats.Backend,
		"session_ttl", cfg.SessionTTL(),
		"default_user", cfg.Server.DefaultUser)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return sessions.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStats(ctx context.Context, cfg *config.Config, logger *log.Logger) (stats.Repository, error) {
	switch cfg.Stats.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory stats store, stats are lost on restart")
		return stats.NewMemoryStore(), nil

	case config.BackendMongo:
		store, err := stats.OpenMongo(ctx, stats.MongoConfig{
			URI:        cfg.Stats.MongoURI,
			Database:   cfg.Stats.MongoDB,
			Collection: cfg.Stats.MongoCollection,
			Timeout:    cfg.StatsTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo stats store: %w", err)
		}
		logger.Info("Using mongo stats store", "db", cfg.Stats.MongoDB, "collection", cfg.Stats.MongoCollection)
		return store, nil

	default:
		store, err := stats.OpenSQLite(cfg.Stats.SQLitePath, cfg.StatsTimeout())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite stats store: %w", err)
		}
		logger.Info("Using sqlite stats store", "path", cfg.Stats.SQLitePath)
		return store, nil
	}
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port, nil
}
