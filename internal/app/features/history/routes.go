// internal/app/features/history/routes.go
package history

import (
	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/system/auth"
)

// Routes is mounted under /api/history. Signed-in users only.
func Routes(h *Handler, v *auth.Verifier) chi.Router {
	r := chi.NewRouter()
	r.Use(v.RequireSignedIn)
	r.Get("/", h.ServeQuery)
	r.Get("/{object_type}/{object_id}", h.ServeObject)
	return r
}
