package providers

import (
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
)

// MountRoutes registers provider routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoute(rbac.PermViewProviders, rbac.PermAdminProviders))
		r.Get("/", h.List)
		r.Get("/buscar", h.Search)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAction(rbac.PermAdminProviders))
		r.Get("/nuevo", h.Form)
		r.Post("/", h.Create)
		r.Get("/{id}/editar", h.EditForm)
		r.Post("/{id}/editar", h.Update)
		r.Post("/{id}/eliminar", h.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAction(rbac.PermAdminStores))
		r.Post("/{id}/tiendas", h.CreateStore)
		r.Post("/{id}/tiendas/{tid}/editar", h.UpdateStore)
		r.Post("/{id}/tiendas/{tid}/eliminar", h.DeleteStore)
	})
}

// newScreenID identifies one rendered list page for live search bookkeeping.
func newScreenID() string {
	return uuid.NewString()
}
