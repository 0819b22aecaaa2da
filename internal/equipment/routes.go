package equipment

import "github.com/go-chi/chi/v5"

// MountRoutes registers the endpoints under /api/equipment.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/calibration-due", h.calibrationDue)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}
