// internal/app/features/solutions/routes.go
package solutions

import (
	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/system/auth"
)

// Routes is mounted under /api/solutions.
func Routes(h *Handler, v *auth.Verifier) chi.Router {
	r := chi.NewRouter()

	r.Get("/{slug}", h.ServeGet)
	r.With(v.RequireSignedIn).Post("/", h.HandleCreate)
	r.With(v.RequireAdmin).Put("/{slug}", h.HandleUpdate)

	return r
}
