package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-forge/internal/breaker"
	"github.com/phrazzld/scry-forge/internal/config"
	"github.com/phrazzld/scry-forge/internal/events"
	"github.com/phrazzld/scry-forge/internal/generation"
	"github.com/phrazzld/scry-forge/internal/metrics"
	"github.com/phrazzld/scry-forge/internal/platform/postgres"
	redisplatform "github.com/phrazzld/scry-forge/internal/platform/redis"
	"github.com/phrazzld/scry-forge/internal/service"
	"github.com/phrazzld/scry-forge/internal/store"
	"github.com/phrazzld/scry-forge/internal/task"
)

// dependencies are the connections the application is built on. They are
// established by run and replaced with fakes in tests.
type dependencies struct {
	db       *sql.DB
	redis    goredis.UniversalClient
	provider generation.Provider
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
}

// application holds the shared worker dependencies so they can be cleaned
// up together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	deps   dependencies

	metrics    *metrics.Metrics
	breaker    *breaker.CircuitBreaker
	ledger     store.QuotaLedger
	generation *service.GenerationService
	taskRunner *task.TaskRunner
	emitter    *events.InMemoryEventEmitter
	queue      *redisplatform.RequestQueue
}

// newApplication wires stores, the generation pipeline and the task
// runner. Nothing is started.
func newApplication(cfg *config.Config, logger *slog.Logger, deps dependencies) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	app.metrics = metrics.NewMetrics(deps.registry)

	app.breaker = breaker.New(breaker.Config{
		FailureThreshold: cfg.Generation.BreakerFailureThreshold,
		ResetTimeout:     cfg.Generation.BreakerResetTimeout(),
	}, breaker.WithStateChangeHook(app.onBreakerChange))

	var err error
	app.ledger, err = newQuotaLedger(cfg.Quota, deps)
	if err != nil {
		return nil, err
	}

	app.generation, err = service.NewPipelineFromConfig(cfg.LLM, cfg.Generation, service.PipelineDeps{
		Provider: deps.provider,
		Ledger:   app.ledger,
		Results:  postgres.NewPostgresResultStore(deps.db),
		Breaker:  app.breaker,
		Metrics:  app.metrics,
	}, logger)
	if err != nil {
		return nil, err
	}

	factory := task.NewGenerationTaskFactory(app.generation, logger)
	app.taskRunner = task.NewTaskRunner(
		postgres.NewPostgresTaskStore(deps.db, factory),
		task.TaskRunnerConfig{
			WorkerCount:  cfg.Task.WorkerCount,
			QueueSize:    cfg.Task.QueueSize,
			StuckTaskAge: cfg.Task.StuckTaskAge(),
		},
		logger,
	)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.Subscribe(task.TaskTypeGeneration, task.NewRequestEventHandler(factory, app.taskRunner, logger))

	app.queue = redisplatform.NewRequestQueue(deps.redis, cfg.Redis.RequestQueue, logger)

	logger.Info("application initialized",
		"agents", cfg.Generation.Agents,
		"auto_fix", cfg.Generation.AutoFix,
		"max_retries", cfg.Generation.MaxRetries)
	return app, nil
}

func newQuotaLedger(cfg config.QuotaConfig, deps dependencies) (store.QuotaLedger, error) {
	switch cfg.Backend {
	case config.QuotaBackendRedis:
		return redisplatform.NewQuotaLedger(deps.redis), nil
	case config.QuotaBackendPostgres:
		return postgres.NewPostgresQuotaLedger(deps.db), nil
	default:
		return nil, fmt.Errorf("unknown quota backend %q", cfg.Backend)
	}
}

func (app *application) onBreakerChange(from, to breaker.State) {
	app.metrics.ObserveBreaker(from, to)
	app.logger.Warn("circuit breaker state changed", "from", from, "to", to)
}

// ready reports whether both backing stores answer.
func (app *application) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := app.deps.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := app.deps.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// cleanup stops the runner and closes connections.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.deps.redis != nil {
		if err := app.deps.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", "error", err)
		}
	}
	if app.deps.db != nil {
		if err := app.deps.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
