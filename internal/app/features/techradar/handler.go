// internal/app/features/techradar/handler.go
package techradar

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/techradar/compass/internal/app/services/radarsvc"
	"github.com/techradar/compass/internal/app/system/respond"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the radar in the Zalando tech-radar JSON format. These
// endpoints return bare documents, not the success envelope, because the
// radar widget consumes them as-is.
type Handler struct {
	Radar *radarsvc.Service
	Log   *zap.Logger
}

func NewHandler(svc *radarsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Radar: svc, Log: logger}
}

// ServeData handles GET /api/tech-radar/data?group=.
func (h *Handler) ServeData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "tech radar data")
	defer cancel()

	data, err := h.Radar.Data(ctx, query.Get(r, "group"))
	if err != nil {
		respond.Error(w, h.Log, "tech radar data", err)
		return
	}
	respond.JSON(w, http.StatusOK, data)
}

// ServeQuadrants handles GET /api/tech-radar/quadrants.
func (h *Handler) ServeQuadrants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "tech radar quadrants")
	defer cancel()

	qs, err := h.Radar.Quadrants(ctx)
	if err != nil {
		respond.Error(w, h.Log, "tech radar quadrants", err)
		return
	}
	respond.JSON(w, http.StatusOK, qs)
}

// ServeRings handles GET /api/tech-radar/rings.
func (h *Handler) ServeRings(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.Radar.Rings())
}
