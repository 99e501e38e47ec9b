package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rickgao/meshlink/internal/config"
	"github.com/rickgao/meshlink/internal/connection"
	"github.com/rickgao/meshlink/internal/database"
	"github.com/rickgao/meshlink/internal/logging"
	"github.com/rickgao/meshlink/internal/outbox"
	"github.com/rickgao/meshlink/internal/storage"
)

// loadConfig loads the configured file and builds the process logger.
func loadConfig() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}

// openStore opens the session store selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemoryStore(), nil
	case config.DriverBadger, "":
		return storage.OpenBadger(cfg.Badger.Dir, logger)
	case config.DriverRedis:
		return storage.OpenRedis(ctx, storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case config.DriverPostgres:
		return database.Open(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// managerConfig maps the client section onto the connection manager.
func managerConfig(cfg config.ClientConfig) (connection.ManagerConfig, error) {
	order, err := outbox.ParseOrder(cfg.QueueOrder)
	if err != nil {
		return connection.ManagerConfig{}, err
	}
	return connection.ManagerConfig{
		Client: connection.ClientConfig{
			URL:              cfg.URL,
			HandshakeTimeout: cfg.HandshakeTimeout,
			PingInterval:     cfg.PingInterval,
			PingTimeout:      cfg.PingTimeout,
			WriteTimeout:     cfg.WriteTimeout,
		},
		ReconnectDelay: cfg.ReconnectDelay,
		RetryInterval:  cfg.RetryInterval,
		QueueOrder:     order,
		QueueLimit:     cfg.QueueLimit,
		RequestTTL:     cfg.RequestTTL,
		MaxPending:     cfg.MaxPending,
	}, nil
}
