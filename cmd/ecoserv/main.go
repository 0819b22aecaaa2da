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

	"github.com/ecoserv/ecoserv/internal/app"
	"github.com/ecoserv/ecoserv/internal/clients"
	"github.com/ecoserv/ecoserv/internal/dashboard"
	"github.com/ecoserv/ecoserv/internal/documents"
	"github.com/ecoserv/ecoserv/internal/equipment"
	"github.com/ecoserv/ecoserv/internal/observability"
	"github.com/ecoserv/ecoserv/internal/platform/cache"
	"github.com/ecoserv/ecoserv/internal/platform/db"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/reports"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/users"
	"github.com/ecoserv/ecoserv/jobs"
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
		// The dashboard falls back to direct queries without Redis.
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	svc := app.NewServices(cfg, pool, redisClient, logger)
	metrics := observability.NewMetrics()

	quotationsHandler := quotations.NewHandler(logger, svc.Quotations)
	serviceOrdersHandler := serviceorders.NewHandler(logger, svc.ServiceOrders)
	purchaseOrdersHandler := purchaseorders.NewHandler(logger, svc.PurchaseOrders)
	company := documents.Company{Name: cfg.CompanyName, TaxID: cfg.CompanyTaxID, Address: cfg.CompanyAddress}

	checks := map[string]app.HealthCheck{"postgres": pool.Ping}
	var jobHandler *jobs.Handler
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		Metrics:               metrics,
		Idempotency:           svc.Idempotency,
		Checks:                checks,
		ClientsHandler:        clients.NewHandler(logger, svc.Clients),
		EquipmentHandler:      equipment.NewHandler(logger, svc.Equipment),
		UsersHandler:          users.NewHandler(svc.Users, logger),
		QuotationsHandler:     quotationsHandler,
		ServiceOrdersHandler:  serviceOrdersHandler,
		PurchaseOrdersHandler: purchaseOrdersHandler,
		DocumentsHandler:      documents.NewHandler(company, svc.Quotations, svc.ServiceOrders, svc.PurchaseOrders, logger),
		DashboardHandler:      dashboard.NewHandler(svc.Dashboard, logger),
		ReportsHandler:        reports.NewHandler(svc.Quotations, svc.ServiceOrders, svc.PurchaseOrders, logger),
		JobHandler:            jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
