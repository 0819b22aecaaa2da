package documents

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/purchaseorders"
	"github.com/ecoserv/ecoserv/internal/quotations"
	"github.com/ecoserv/ecoserv/internal/serviceorders"
)

const contentType = "application/pdf"

type QuotationReader interface {
	Get(ctx context.Context, id int64) (*quotations.Quotation, error)
}

type ServiceOrderReader interface {
	Get(ctx context.Context, id int64) (*serviceorders.ServiceOrder, error)
}

type PurchaseOrderReader interface {
	Get(ctx context.Context, id int64) (*purchaseorders.PurchaseOrder, error)
}

// Handler serves GET .../{id}/pdf for each document type. Its route methods
// are attached to the resource handlers.
type Handler struct {
	company        Company
	quotations     QuotationReader
	serviceOrders  ServiceOrderReader
	purchaseOrders PurchaseOrderReader
	logger         *slog.Logger
}

func NewHandler(company Company, q QuotationReader, so ServiceOrderReader, po PurchaseOrderReader, logger *slog.Logger) *Handler {
	return &Handler{company: company, quotations: q, serviceOrders: so, purchaseOrders: po, logger: logger}
}

func (h *Handler) QuotationRoutes(r chi.Router) {
	r.Get("/pdf", h.serve(func(ctx context.Context, id int64) (Document, error) {
		q, err := h.quotations.Get(ctx, id)
		if err != nil {
			return Document{}, err
		}
		return FromQuotation(q), nil
	}))
}

func (h *Handler) ServiceOrderRoutes(r chi.Router) {
	r.Get("/pdf", h.serve(func(ctx context.Context, id int64) (Document, error) {
		o, err := h.serviceOrders.Get(ctx, id)
		if err != nil {
			return Document{}, err
		}
		return FromServiceOrder(o), nil
	}))
}

func (h *Handler) PurchaseOrderRoutes(r chi.Router) {
	r.Get("/pdf", h.serve(func(ctx context.Context, id int64) (Document, error) {
		p, err := h.purchaseOrders.Get(ctx, id)
		if err != nil {
			return Document{}, err
		}
		return FromPurchaseOrder(p), nil
	}))
}

func (h *Handler) serve(load func(context.Context, int64) (Document, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		doc, err := load(r.Context(), id)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
			return
		}
		pdf, err := Render(h.company, doc)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id), slog.String("number", doc.Number))
			return
		}
		httpx.Attachment(w, contentType, doc.Filename(), pdf)
	}
}
