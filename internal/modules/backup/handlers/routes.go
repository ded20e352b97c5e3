package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all backup routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/backup", func(r chi.Router) {
		r.Get("/", h.HandleDownload)
		r.Post("/restore", h.HandleRestore)
		r.Post("/r2", h.HandleUploadRemote)
		r.Get("/r2", h.HandleListRemote)
		r.Post("/r2/restore", h.HandleRestoreRemote)
	})
}
