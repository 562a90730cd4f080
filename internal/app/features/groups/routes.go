// internal/app/features/groups/routes.go
package groups

import (
	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/system/auth"
)

// Routes is mounted under /api/groups. Reads are public; writes need a
// superuser.
func Routes(h *Handler, v *auth.Verifier) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(v.RequireAdmin)

		pr.Get("/orphans", h.ServeOrphans)

		pr.Post("/", h.HandleCreate)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	r.Get("/{id}", h.ServeGet)

	return r
}
