// internal/app/features/siteconfig/routes.go
package siteconfig

import (
	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/system/auth"
)

// Routes is mounted under /api/site-config. Reading by key is public so the
// front end can load its configuration before sign-in.
func Routes(h *Handler, v *auth.Verifier) chi.Router {
	r := chi.NewRouter()

	r.Get("/{key}", h.ServeByKey)

	r.Group(func(pr chi.Router) {
		pr.Use(v.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(v.RequireAdmin)
		pr.Post("/reset", h.HandleReset)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
