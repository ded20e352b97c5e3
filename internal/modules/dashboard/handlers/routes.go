package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all dashboard routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.HandleGetSlots)
		r.Post("/", h.HandlePasteAuto)
		r.Put("/{slot}", h.HandlePaste)
		r.Delete("/{slot}", h.HandleClear)
	})

	r.Get("/dashboard", h.HandleGetDashboard)
	r.Get("/export.xlsx", h.HandleExportWorkbook)

	r.Route("/allocation", func(r chi.Router) {
		r.Get("/departments", h.HandleGetDepartments)
		r.Put("/departments/{name}", h.HandleSetDepartmentWeight)
		r.Put("/competitions/{name}", h.HandleSetCompetitionWeight)
		r.Put("/competitions/{name}/adjust", h.HandleSetCompetitionAdjust)
		r.Put("/target", h.HandleSetTarget)
	})

	r.Route("/mappings", func(r chi.Router) {
		r.Get("/", h.HandleGetMappings)
		r.Put("/{department}", h.HandleSetMapping)
		r.Delete("/{department}", h.HandleDeleteMapping)
	})

	r.Put("/selection/store", h.HandleSelectStore)
}
