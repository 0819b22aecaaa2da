package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ecoserv/ecoserv/internal/clients"
	"github.com/ecoserv/ecoserv/internal/dashboard"
	"github.com/ecoserv/ecoserv/internal/documents"
	"github.com/ecoserv/ecoserv/internal/equipment"
	"github.com/ecoserv/ecoserv/internal/observability"
	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/reports"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/users"
	"github.com/ecoserv/ecoserv/jobs"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router. Nil handlers
// are not mounted.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Metrics     *observability.Metrics
	Idempotency httpx.IdempotencyStore
	Checks      map[string]HealthCheck

	ClientsHandler        *clients.Handler
	EquipmentHandler      *equipment.Handler
	UsersHandler          *users.Handler
	QuotationsHandler     *quotations.Handler
	ServiceOrdersHandler  *serviceorders.Handler
	PurchaseOrdersHandler *purchaseorders.Handler
	DocumentsHandler      *documents.Handler
	DashboardHandler      *dashboard.Handler
	ReportsHandler        *reports.Handler
	JobHandler            *jobs.Handler
}

// NewRouter constructs the chi.Router serving the API.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", healthz(params.Checks, logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if docs := params.DocumentsHandler; docs != nil {
		if params.QuotationsHandler != nil {
			params.QuotationsHandler.Attach(docs.QuotationRoutes)
		}
		if params.ServiceOrdersHandler != nil {
			params.ServiceOrdersHandler.Attach(docs.ServiceOrderRoutes)
		}
		if params.PurchaseOrdersHandler != nil {
			params.PurchaseOrdersHandler.Attach(docs.PurchaseOrderRoutes)
		}
	}

	r.Route("/api", func(r chi.Router) {
		if params.Idempotency != nil {
			r.Use(httpx.Idempotent(params.Idempotency, logger))
		}
		if params.ClientsHandler != nil {
			r.Route("/clients", params.ClientsHandler.MountRoutes)
		}
		if params.EquipmentHandler != nil {
			r.Route("/equipment", params.EquipmentHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.QuotationsHandler != nil {
			r.Route("/quotations", params.QuotationsHandler.MountRoutes)
		}
		if params.ServiceOrdersHandler != nil {
			r.Route("/service-orders", params.ServiceOrdersHandler.MountRoutes)
		}
		if params.PurchaseOrdersHandler != nil {
			r.Route("/purchase-orders", params.PurchaseOrdersHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
	})

	return r
}

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{Status: "ok"}
		if len(checks) == 0 {
			httpx.JSON(w, http.StatusOK, body)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body.Checks = make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				body.Checks[name] = err.Error()
				body.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[name] = "ok"
		}
		httpx.JSON(w, status, body)
	}
}
