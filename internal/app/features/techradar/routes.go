// internal/app/features/techradar/routes.go
package techradar

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/tech-radar. All endpoints are public.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/data", h.ServeData)
	r.Get("/quadrants", h.ServeQuadrants)
	r.Get("/rings", h.ServeRings)
	return r
}
