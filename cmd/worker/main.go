// Package main implements the generation worker. It pops generation requests
// from the Redis intake list, runs each as a background episode and exposes
// health, readiness, breaker state and Prometheus metrics on an ops port.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/phrazzld/scry-forge/internal/config"
	"github.com/phrazzld/scry-forge/internal/platform/gemini"
	"github.com/phrazzld/scry-forge/internal/platform/logger"
	"github.com/phrazzld/scry-forge/internal/platform/postgres"
	redisplatform "github.com/phrazzld/scry-forge/internal/platform/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

// run wires the worker from configuration and blocks until ctx is done.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("worker configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"quota_backend", cfg.Quota.Backend,
		"request_queue", cfg.Redis.RequestQueue)

	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required by the worker")
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required by the worker")
	}

	db, err := setupDatabase(ctx, cfg.Database, l)
	if err != nil {
		return err
	}
	if err := postgres.Migrate(ctx, db, l); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	rdb, err := redisplatform.NewClient(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	l.Info("redis connection established", "addr", cfg.Redis.Addr)

	provider, err := gemini.NewProvider(ctx, l, cfg.LLM)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return fmt.Errorf("failed to initialize content provider: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newApplication(cfg, l, dependencies{
		db:       db,
		redis:    rdb,
		provider: provider,
		registry: registry,
		gatherer: registry,
	})
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	slog.SetDefault(l)
	return app.Run(ctx)
}
