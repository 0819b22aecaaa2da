package quotations

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/shared"
)

// Handler serves /api/quotations.
type Handler struct {
	logger  *slog.Logger
	service *Service
	extra   []func(chi.Router)
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Page: shared.ParsePageRequest(q)}
	if raw := q.Get("status"); raw != "" {
		st := Status(raw)
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

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.ListBody[Quotation]{
		Data:       items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	q, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("client_id", req.ClientID))
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
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
	q, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req RespondRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	q, err := h.service.Respond(r.Context(), id, req.Status)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, q)
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
