package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ecoserv/ecoserv/internal/app"
	jobmetrics "github.com/ecoserv/ecoserv/internal/jobs"
	"github.com/ecoserv/ecoserv/internal/platform/cache"
	"github.com/ecoserv/ecoserv/internal/platform/db"
	"github.com/ecoserv/ecoserv/jobs"
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

	// Unlike the API, the worker cannot run without Redis.
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

	svc := app.NewServices(cfg, pool, redisClient, logger)
	metrics := jobmetrics.NewMetrics(nil)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	handlers, cron, err := jobs.Set{
		Expire:     &jobs.QuotationsExpireJob{Quotations: svc.Quotations, Logger: logger, Metrics: metrics},
		Warmup:     &jobs.DashboardWarmupJob{Dashboard: svc.Dashboard, Logger: logger, Metrics: metrics},
		Cleanup:    &jobs.IdempotencyCleanupJob{Keys: svc.Idempotency, Logger: logger, Metrics: metrics},
		ExpireSpec: cfg.QuotationExpiryCron,
	}.Registrations()
	if err != nil {
		logger.Error("build job registrations", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Writes bump the dashboard cache version; rebuild shortly after.
	client := jobs.NewClient(redisOpts)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	err = svc.DashboardCache.Subscribe(ctx, func(version int64) {
		if _, err := client.EnqueueDashboardRefresh(ctx); err != nil {
			logger.Warn("enqueue dashboard refresh", slog.Int64("version", version), slog.Any("error", err))
		}
	})
	if err != nil {
		logger.Warn("subscribe to dashboard bumps", slog.Any("error", err))
	}

	logger.Info("worker started", slog.String("expiry_cron", cfg.QuotationExpiryCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
