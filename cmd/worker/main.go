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

	"github.com/stockroom-hq/stockroom/internal/app"
	"github.com/stockroom-hq/stockroom/internal/audit"
	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/observability"
	"github.com/stockroom-hq/stockroom/internal/platform/db"
	"github.com/stockroom-hq/stockroom/jobs"
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

	auditRepo := audit.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)

	metrics := observability.NewMetrics()
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	integrityTask, err := jobs.NewLedgerIntegrityTask(time.Now().UTC())
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   metrics,
		Handlers: []jobs.TaskHandler{
			{Type: audit.TaskRecord, Handler: audit.NewTaskHandler(auditRepo, logger)},
			{Type: jobs.TaskLedgerIntegrity, Handler: jobs.NewLedgerIntegrityHandler(ledgerRepo, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
