// internal/app/features/solutions/handler.go
package solutions

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/services/solutionsvc"
	"github.com/techradar/compass/internal/app/system/auth"
	"github.com/techradar/compass/internal/app/system/respond"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the solution catalog API.
type Handler struct {
	Solutions *solutionsvc.Service
	Log       *zap.Logger
}

func NewHandler(svc *solutionsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Solutions: svc, Log: logger}
}

// ServeGet handles GET /api/solutions/{slug}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get solution")
	defer cancel()

	sol, err := h.Solutions.Get(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		respond.Error(w, h.Log, "get solution", err)
		return
	}
	respond.OK(w, http.StatusOK, sol)
}

// HandleCreate handles POST /api/solutions. New solutions await review.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in solutionsvc.Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, "create solution", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create solution")
	defer cancel()

	sol, err := h.Solutions.Create(ctx, in, auth.ActorName(r))
	if err != nil {
		respond.Error(w, h.Log, "create solution", err)
		return
	}
	respond.OK(w, http.StatusCreated, sol)
}

// HandleUpdate handles PUT /api/solutions/{slug}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var p solutionsvc.Patch
	if err := respond.Decode(r, &p); err != nil {
		respond.Error(w, h.Log, "update solution", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update solution")
	defer cancel()

	sol, err := h.Solutions.Update(ctx, chi.URLParam(r, "slug"), p, auth.ActorName(r))
	if err != nil {
		respond.Error(w, h.Log, "update solution", err)
		return
	}
	respond.OK(w, http.StatusOK, sol)
}
