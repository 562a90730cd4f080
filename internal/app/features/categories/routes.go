// internal/app/features/categories/routes.go
package categories

import (
	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/system/auth"
)

// Routes is mounted under /api/categories.
func Routes(h *Handler, v *auth.Verifier) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(v.RequireAdmin)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
	})

	return r
}
