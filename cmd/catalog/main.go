package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/thedavestack/product-catalog/internal/app"
	"github.com/thedavestack/product-catalog/internal/catalog"
	"github.com/thedavestack/product-catalog/internal/platform/cache"
	"github.com/thedavestack/product-catalog/internal/platform/db"
	"github.com/thedavestack/product-catalog/jobs"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
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

	productCache := catalog.NewCache(redisClient, cfg.ProductCacheTTL)
	store := catalog.NewCachedStore(catalog.NewPostgresStore(pool), productCache)
	auditSink := jobs.NewAuditEnqueuer(asynqClient)
	service := catalog.NewService(store, catalog.NewSKUPolicy(), auditSink, logger)
	handler := catalog.NewHandler(logger, service)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: handler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
