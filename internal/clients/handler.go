package clients

import (
	"log/slog"
	"net/http"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
	"github.com/ecoserv/ecoserv/internal/shared"
)

// Handler serves /api/clients.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePageRequest(r.URL.Query())
	items, total, err := h.service.List(r.Context(), ListFilter{Search: r.URL.Query().Get("q"), Page: page})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.ListBody[Client]{
		Data:       items,
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
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
	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
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
