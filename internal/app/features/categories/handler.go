// internal/app/features/categories/handler.go
package categories

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/services/categorysvc"
	"github.com/techradar/compass/internal/app/system/auth"
	"github.com/techradar/compass/internal/app/system/respond"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Categories *categorysvc.Service
	Log        *zap.Logger
}

func NewHandler(svc *categorysvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Categories: svc, Log: logger}
}

// ServeList handles GET /api/categories.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list categories")
	defer cancel()

	cs, err := h.Categories.List(ctx)
	if err != nil {
		respond.Error(w, h.Log, "list categories", err)
		return
	}
	n := int64(len(cs))
	respond.Page(w, cs, n, 0, n)
}

// HandleCreate handles POST /api/categories.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in categorysvc.Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, "create category", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create category")
	defer cancel()

	c, err := h.Categories.Create(ctx, in, auth.ActorName(r))
	if err != nil {
		respond.Error(w, h.Log, "create category", err)
		return
	}
	respond.OK(w, http.StatusCreated, c)
}

// HandleUpdate handles PUT /api/categories/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var p categorysvc.Patch
	if err := respond.Decode(r, &p); err != nil {
		respond.Error(w, h.Log, "update category", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update category")
	defer cancel()

	c, err := h.Categories.Update(ctx, chi.URLParam(r, "id"), p, auth.ActorName(r))
	if err != nil {
		respond.Error(w, h.Log, "update category", err)
		return
	}
	respond.OK(w, http.StatusOK, c)
}
