package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/wardflow/wardflow/internal/app"
	jobmetrics "github.com/wardflow/wardflow/internal/jobs"
	"github.com/wardflow/wardflow/internal/notify"
	"github.com/wardflow/wardflow/internal/platform/db"
	"github.com/wardflow/wardflow/internal/shared"
	"github.com/wardflow/wardflow/internal/summary"
	"github.com/wardflow/wardflow/internal/wardform"
	"github.com/wardflow/wardflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	dispatcher := notify.NewDispatcher(jobsClient.Asynq(), logger)

	idempotencyStore := shared.NewIdempotencyStore(pool)

	formRepo := wardform.NewRepository(pool, nil)
	summaryRepo := summary.NewRepository(pool)
	aggregator := summary.NewAggregator(formRepo, summaryRepo, logger)
	tracker := jobmetrics.NewMetrics(nil)
	recompute := jobs.NewRecompute(aggregator, summaryRepo, idempotencyStore, dispatcher, logger).WithTracker(tracker)
	cleanup := jobs.NewIdempotencyCleanup(idempotencyStore, logger).WithTracker(tracker)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSummaryRecompute, Handler: recompute.HandleTask},
			{Type: jobs.TaskTypeIdempotencyCleanup, Handler: cleanup.HandleTask},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CleanupCron, Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
