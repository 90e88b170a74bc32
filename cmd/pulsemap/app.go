package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/mr1hm/pulsemap/internal/config"
	"github.com/mr1hm/pulsemap/internal/ingestion"
	"github.com/mr1hm/pulsemap/internal/logging"
	"github.com/mr1hm/pulsemap/internal/metrics"
	"github.com/mr1hm/pulsemap/internal/repository"
	"github.com/mr1hm/pulsemap/internal/retention"
	"github.com/mr1hm/pulsemap/internal/telemetry"
)

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	store   repository.Store
	metrics *metrics.Metrics
	manager *ingestion.Manager
	sweeper *retention.Sweeper

	shutdownTracing func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logging.Setup(cfg.Logging.Level)

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceVersion: version,
		UseStdout:      cfg.Tracing.Stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	store, err := openStore(cfg.DB)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	m := metrics.NewMetrics()
	sources := ingestion.NewSources(cfg.Sources, cfg.Refresh, m)

	return &app{
		cfg:             cfg,
		store:           store,
		metrics:         m,
		manager:         ingestion.NewManager(store, sources, cfg.Refresh, m),
		sweeper:         retention.NewSweeper(store, retention.Policy(cfg.Retention.MaxAge), nil, m),
		shutdownTracing: shutdownTracing,
	}, nil
}

func openStore(cfg config.DatabaseConfig) (repository.Store, error) {
	if useMemory {
		slog.Warn("using in-memory store, data will not survive a restart")
		return repository.NewMemoryStore(), nil
	}

	switch cfg.Driver {
	case "postgres":
		db, err := repository.NewPostgresDB(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		slog.Info("database ready", "driver", "postgres")
		return db, nil
	case "memory":
		return repository.NewMemoryStore(), nil
	default:
		db, err := repository.NewSQLiteDB(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite: %w", err)
		}
		slog.Info("database ready", "driver", "sqlite", "path", cfg.Path)
		return db, nil
	}
}

func (a *app) Close(ctx context.Context) error {
	return errors.Join(
		a.store.Close(),
		a.shutdownTracing(ctx),
	)
}
