package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wardflow/wardflow/internal/app"
	"github.com/wardflow/wardflow/internal/approval"
	"github.com/wardflow/wardflow/internal/directory"
	"github.com/wardflow/wardflow/internal/notify"
	"github.com/wardflow/wardflow/internal/observability"
	"github.com/wardflow/wardflow/internal/platform/cache"
	"github.com/wardflow/wardflow/internal/platform/db"
	"github.com/wardflow/wardflow/internal/shared"
	"github.com/wardflow/wardflow/internal/summary"
	"github.com/wardflow/wardflow/internal/wardform"
	"github.com/wardflow/wardflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// The form cache degrades to direct reads without Redis, so a failed
	// ping only costs the cache, not the service.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, form cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

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

	formCache := wardform.NewFormCache(redisClient, cfg.FormCacheTTL)
	formRepo := wardform.NewRepository(dbpool, formCache)
	formService := wardform.NewService(formRepo, auditLogger, dispatcher).WithMetrics(metrics)
	formHandler := wardform.NewHandler(logger, formService)

	wards := directory.NewRepository(dbpool)

	summaryRepo := summary.NewRepository(dbpool)
	aggregator := summary.NewAggregator(formRepo, summaryRepo, logger)
	recompute := jobs.NewRecompute(aggregator, summaryRepo, idempotencyStore, dispatcher, logger).WithMetrics(metrics)
	summaryHandler := summary.NewHandler(logger, summaryRepo, wards)

	historyStore := approval.NewHistoryRecorder(dbpool, logger)
	approvalService := approval.NewService(formRepo, historyStore, recompute, jobsClient, dispatcher, logger).WithMetrics(metrics)
	approvalHandler := approval.NewHandler(logger, approvalService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		WardFormHandler: formHandler,
		ApprovalHandler: approvalHandler,
		SummaryHandler:  summaryHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
