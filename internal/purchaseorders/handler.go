package purchaseorders

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/shared"
)

// Handler serves /api/purchase-orders.
type Handler struct {
	logger  *slog.Logger
	service *Service
	extra   []func(chi.Router)
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Attach adds routes under /api/purchase-orders/{id}. Call before MountRoutes.
func (h *Handler) Attach(fn func(chi.Router)) {
	h.extra = append(h.extra, fn)
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		for _, fn := range h.extra {
			fn(r)
		}
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Page: shared.ParsePageRequest(r.URL.Query())}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := ParseStatus(raw)
		if !st.Valid() {
			httpx.RespondError(w, r, h.logger, fmt.Errorf("unknown status %q: %w", raw, shared.ErrValidation))
			return
		}
		filter.Status = &st
	}
	clientID, err := httpx.OptionalInt64Query(r, "client_id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	filter.ClientID = clientID

	orders, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.ListBody[PurchaseOrder]{
		Data:       orders,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("client_id", req.ClientID))
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req UpdateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	p, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.Success(w)
}
