// Package bootstrap builds the process-wide dependencies such as the logger, the store and the event publisher.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/abgdnv/gopos/internal/config"
	"github.com/abgdnv/gopos/internal/platform/logger"
	"github.com/abgdnv/gopos/internal/platform/messaging"
	"github.com/abgdnv/gopos/internal/platform/nats"
	"github.com/abgdnv/gopos/internal/pos/events"
	"github.com/abgdnv/gopos/internal/pos/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewLogger creates a new slog.Logger instance with the specified log level.
func NewLogger(level string) *slog.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	logLevel := toLevel(level)
	loggerOpts := &slog.HandlerOptions{
		AddSource: logLevel == slog.LevelDebug,
		Level:     logLevel,
	}
	logHandler := logger.NewContextHandler(slog.NewJSONHandler(w, loggerOpts))
	return slog.New(logHandler)
}

// NewDbPool creates a new database connection pool with the provided context and configuration,
// registering the decimal codec on every connection.
func NewDbPool(ctx context.Context, url string, connectTimeout time.Duration) (*pgxpool.Pool, error) {
	// Create context with timeout for database connection
	poolCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolCfg.AfterConnect = store.RegisterTypes

	dbPool, errPool := pgxpool.NewWithConfig(poolCtx, poolCfg)
	if errPool != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", errPool)
	}
	// Ping the database to ensure the connection is established (fail early if not)
	if err := dbPool.Ping(poolCtx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return dbPool, nil
}

// OpenStore opens the store selected by the database driver, applying the schema when cfg.Migrate is set.
// The caller owns the returned store and must Close it.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on shutdown")
		return store.NewInMemoryStore(), nil

	case config.DriverPostgres:
		if cfg.Migrate {
			if err := store.MigratePostgres(cfg.URL); err != nil {
				return nil, err
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := NewDbPool(ctx, cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		logger.Info("Successfully connected to the database!", slog.String("driver", cfg.Driver))
		return store.NewPgStore(dbPool), nil

	case config.DriverSQLite, config.DriverMySQL:
		gs, err := store.OpenGormStore(cfg.Driver, cfg.URL)
		if err != nil {
			return nil, err
		}
		connCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := gs.Ping(connCtx); err != nil {
			_ = gs.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if cfg.Migrate {
			if err := gs.Migrate(connCtx); err != nil {
				_ = gs.Close()
				return nil, err
			}
			logger.Info("Database schema migrated")
		}
		logger.Info("Successfully connected to the database!", slog.String("driver", cfg.Driver))
		return gs, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// toLevel converts a string representation of a log level to slog.Level.
func toLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OpenPublisher connects to NATS and makes sure the sales stream exists. When
// publishing is disabled it returns a publisher that drops events.
// The returned close func drains the connection.
func OpenPublisher(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (messaging.Publisher, func(), error) {
	if !cfg.Enabled {
		logger.Info("Sale event publishing is disabled")
		return messaging.NopPublisher{}, func() {}, nil
	}

	nc, err := nats.NewClient(cfg.URL, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := nats.NewJetStreamContext(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	streamCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := nats.EnsureStream(streamCtx, js, cfg.Stream, events.StreamSubjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", slog.String("url", nc.ConnectedUrlRedacted()), slog.String("stream", cfg.Stream))

	closeFn := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("Failed to drain NATS connection", slog.String("error", err.Error()))
		}
	}
	return nats.NewNatsPublisher(js), closeFn, nil
}
