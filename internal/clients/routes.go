package clients

import "github.com/go-chi/chi/v5"

// MountRoutes registers the client endpoints on r, which is expected to be
// mounted at /api/clients.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}
