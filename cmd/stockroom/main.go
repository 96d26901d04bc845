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
	"github.com/stockroom-hq/stockroom/internal/documents"
	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/masterdata"
	"github.com/stockroom-hq/stockroom/internal/observability"
	"github.com/stockroom-hq/stockroom/internal/platform/cache"
	"github.com/stockroom-hq/stockroom/internal/platform/db"
	"github.com/stockroom-hq/stockroom/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	ledgerRepo := ledger.NewRepository(pool)
	onHandCache := ledger.NewOnHandCache(redisClient, cfg.StockCacheTTL)
	stockHandler := ledger.NewHandler(logger, ledgerRepo, onHandCache)

	masterDataRepo := masterdata.NewRepository(pool)
	masterDataService := masterdata.NewService(masterDataRepo)
	masterDataHandler := masterdata.NewHandler(masterDataService)

	recorder := audit.NewQueueRecorder(asynqClient, logger)

	documentsRepo := documents.NewRepository(pool)
	documentsService := documents.NewService(documentsRepo, masterDataService, ledgerRepo, recorder, onHandCache)
	documentsHandler := documents.NewHandler(logger, documentsService)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           observability.NewMetrics(),
		DocumentsHandler:  documentsHandler,
		StockHandler:      stockHandler,
		MasterDataHandler: masterDataHandler,
		AuditHandler:      auditHandler,
		JobHandler:        jobHandler,
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
