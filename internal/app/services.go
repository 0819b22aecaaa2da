package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ecoserv/ecoserv/internal/clients"
	"github.com/ecoserv/ecoserv/internal/dashboard"
	"github.com/ecoserv/ecoserv/internal/equipment"
	"github.com/ecoserv/ecoserv/internal/platform/cache"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/shared"
	"github.com/ecoserv/ecoserv/internal/users"
)

// DashboardCacheNamespace prefixes every dashboard cache key in Redis.
const DashboardCacheNamespace = "ecoserv:dashboard"

// Services is the domain layer shared by the API server, the worker and the
// seed script.
type Services struct {
	Audit          *shared.AuditLogger
	Idempotency    *shared.IdempotencyStore
	DashboardCache *cache.Versioned

	Users          *users.Service
	Clients        *clients.Service
	Equipment      *equipment.Service
	Quotations     *quotations.Service
	ServiceOrders  *serviceorders.Service
	PurchaseOrders *purchaseorders.Service
	Dashboard      *dashboard.Service
}

// NewServices wires repositories and services over pool. A nil redisClient
// disables the dashboard cache.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) *Services {
	audit := shared.NewAuditLogger(pool)
	s := &Services{
		Audit:          audit,
		Idempotency:    shared.NewIdempotencyStore(pool),
		DashboardCache: cache.NewVersioned(redisClient, DashboardCacheNamespace, cfg.DashboardCacheTTL),
	}

	s.Users = users.NewService(users.NewRepository(pool), audit, logger)
	s.Clients = clients.NewService(clients.NewRepository(pool), audit, logger)
	s.Equipment = equipment.NewService(equipment.NewRepository(pool), audit, logger)
	s.Dashboard = dashboard.NewService(dashboard.NewRepository(pool), s.Equipment, s.DashboardCache, logger)

	s.Quotations = quotations.NewService(quotations.NewRepository(pool), s.Clients,
		quotations.WithAuditor(audit),
		quotations.WithInvalidator(s.Dashboard),
		quotations.WithLogger(logger),
	)
	s.ServiceOrders = serviceorders.NewService(serviceorders.NewRepository(pool),
		serviceorders.Lookups{Clients: s.Clients, Gestors: s.Users, Quotations: s.Quotations},
		serviceorders.WithAuditor(audit),
		serviceorders.WithInvalidator(s.Dashboard),
		serviceorders.WithLogger(logger),
	)
	s.PurchaseOrders = purchaseorders.NewService(purchaseorders.Config{
		Repo:        purchaseorders.NewRepository(pool),
		Clients:     s.Clients,
		Gestors:     s.Users,
		Auditor:     audit,
		Invalidator: s.Dashboard,
		Logger:      logger,
	})
	return s
}
