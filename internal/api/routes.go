package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the handlers. auth guards every route that reads or
// writes conversation data.
func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/honeypot", h.Honeypot)
		r.Post("/analyze", h.Analyze)

		r.Route("/api", func(r chi.Router) {
			r.Post("/honeypot", h.Honeypot)
			r.Get("/sessions/{sessionID}", h.GetSession)
			r.Get("/reports", h.ListReports)
			r.Get("/reports/{reportID}", h.GetReport)
		})
	})
}
