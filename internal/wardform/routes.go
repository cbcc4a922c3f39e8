package wardform

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the shift form endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{wardID}/forms/{date}/{shift}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/transitions", h.Transitions)
		r.Post("/draft", h.SaveDraft)
		r.Post("/finalize", h.Finalize)
	})
}
