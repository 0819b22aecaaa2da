package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ecoserv/ecoserv/internal/platform/httpx"
)

const maxMonths = 24

// Handler serves GET /api/dashboard.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	months := DefaultMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxMonths {
			httpx.Error(w, http.StatusBadRequest, "months must be between 1 and 24")
			return
		}
		months = n
	}
	summary, err := h.service.Summary(r.Context(), months)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, slog.Int("months", months))
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
