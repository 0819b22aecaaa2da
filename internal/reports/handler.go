package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
	"github.com/ecoserv/ecoserv/internal/shared"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type QuotationLister interface {
	List(ctx context.Context, filter quotations.ListFilter) ([]quotations.Quotation, int, error)
}

type ServiceOrderLister interface {
	List(ctx context.Context, filter serviceorders.ListFilter) ([]serviceorders.ServiceOrder, int, error)
}

type PurchaseOrderLister interface {
	List(ctx context.Context, filter purchaseorders.ListFilter) ([]purchaseorders.PurchaseOrder, int, error)
}

// Handler serves /api/reports/*.xlsx.
type Handler struct {
	quotations     QuotationLister
	serviceOrders  ServiceOrderLister
	purchaseOrders PurchaseOrderLister
	logger         *slog.Logger
	now            func() time.Time
}

func NewHandler(q QuotationLister, so ServiceOrderLister, po PurchaseOrderLister, logger *slog.Logger) *Handler {
	return &Handler{quotations: q, serviceOrders: so, purchaseOrders: po, logger: logger, now: time.Now}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotations.xlsx", h.quotationsReport)
	r.Get("/service-orders.xlsx", h.serviceOrdersReport)
	r.Get("/purchase-orders.xlsx", h.purchaseOrdersReport)
}

func (h *Handler) quotationsReport(w http.ResponseWriter, r *http.Request) {
	var status *quotations.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := quotations.Status(raw)
		if !st.Valid() {
			httpx.RespondError(w, r, h.logger, fmt.Errorf("unknown status %q: %w", raw, shared.ErrValidation))
			return
		}
		status = &st
	}
	list, err := collect(r.Context(), func(ctx context.Context, page shared.PageRequest) ([]quotations.Quotation, int, error) {
		return h.quotations.List(ctx, quotations.ListFilter{Status: status, Page: page})
	})
	h.write(w, r, "cotizaciones", err, func() []Sheet { return QuotationSheets(list) })
}

func (h *Handler) serviceOrdersReport(w http.ResponseWriter, r *http.Request) {
	list, err := collect(r.Context(), func(ctx context.Context, page shared.PageRequest) ([]serviceorders.ServiceOrder, int, error) {
		return h.serviceOrders.List(ctx, serviceorders.ListFilter{Page: page})
	})
	h.write(w, r, "ordenes-servicio", err, func() []Sheet { return ServiceOrderSheets(list) })
}

func (h *Handler) purchaseOrdersReport(w http.ResponseWriter, r *http.Request) {
	list, err := collect(r.Context(), func(ctx context.Context, page shared.PageRequest) ([]purchaseorders.PurchaseOrder, int, error) {
		return h.purchaseOrders.List(ctx, purchaseorders.ListFilter{Page: page})
	})
	h.write(w, r, "ordenes-compra", err, func() []Sheet { return PurchaseOrderSheets(list) })
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, name string, err error, sheets func() []Sheet) {
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.String("report", name))
		return
	}
	body, err := Workbook(sheets()...)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.String("report", name))
		return
	}
	filename := fmt.Sprintf("%s-%s.xlsx", name, h.now().Format("20060102"))
	httpx.Attachment(w, xlsxType, filename, body)
}
