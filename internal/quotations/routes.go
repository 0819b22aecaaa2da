package quotations

import "github.com/go-chi/chi/v5"

// Attach registers fn to add routes under /api/quotations/{id}, such as the
// PDF download. It must be called before MountRoutes.
func (h *Handler) Attach(fn func(chi.Router)) {
	h.extra = append(h.extra, fn)
}

// MountRoutes registers the endpoints under /api/quotations.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Post("/respond", h.respond)
		for _, fn := range h.extra {
			fn(r)
		}
	})
}
