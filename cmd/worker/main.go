package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/thedavestack/product-catalog/internal/app"
	"github.com/thedavestack/product-catalog/internal/audit"
	"github.com/thedavestack/product-catalog/internal/catalog"
	"github.com/thedavestack/product-catalog/internal/platform/db"
	"github.com/thedavestack/product-catalog/jobs"
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditWriter := audit.NewLogger(pool)
	auditJob := jobs.NewAuditJob(auditWriter, logger)

	store := catalog.NewPostgresStore(pool)
	lowStockJob := jobs.NewLowStockJob(store, logger)

	scanTask, err := jobs.NewLowStockScanTask(0)
	if err != nil {
		logger.Error("build low stock scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditRecord, Handler: auditJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
