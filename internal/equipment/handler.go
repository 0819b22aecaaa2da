package equipment

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/shared"
)

// Handler serves /api/equipment.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("q"), Page: shared.ParsePageRequest(q)}
	if raw := q.Get("status"); raw != "" {
		s := Status(raw)
		if !s.Valid() {
			httpx.RespondError(w, r, h.logger, fmt.Errorf("unknown status %q: %w", raw, shared.ErrValidation))
			return
		}
		filter.Status = &s
	}
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.ListBody[Equipment]{
		Data:       items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	})
}

func (h *Handler) calibrationDue(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.CalibrationDue(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	e, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
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
	e, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, e)
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
