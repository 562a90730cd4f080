// internal/app/features/groups/handler.go
package groups

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/services/groupsvc"
	"github.com/techradar/compass/internal/app/system/auth"
	"github.com/techradar/compass/internal/app/system/paging"
	"github.com/techradar/compass/internal/app/system/respond"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the group JSON API.
type Handler struct {
	Groups *groupsvc.Service
	Log    *zap.Logger
}

func NewHandler(svc *groupsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Groups: svc, Log: logger}
}

// ServeList handles GET /api/groups?skip&limit&sort.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg, err := paging.FromRequest(r)
	if err != nil {
		respond.Error(w, h.Log, "list groups", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list groups")
	defer cancel()

	gs, err := h.Groups.List(ctx, pg.Skip, pg.Limit, query.Get(r, "sort"))
	if err != nil {
		respond.Error(w, h.Log, "list groups", err)
		return
	}
	total, err := h.Groups.Count(ctx)
	if err != nil {
		respond.Error(w, h.Log, "count groups", err)
		return
	}
	respond.Page(w, gs, total, pg.Skip, pg.Limit)
}

// ServeGet handles GET /api/groups/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get group")
	defer cancel()

	g, err := h.Groups.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, "get group", err)
		return
	}
	respond.OK(w, http.StatusOK, g)
}

// HandleCreate handles POST /api/groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in groupsvc.Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, "create group", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create group")
	defer cancel()

	g, err := h.Groups.Create(ctx, in, auth.ActorName(r))
	if err != nil {
		respond.Error(w, h.Log, "create group", err)
		return
	}
	respond.OK(w, http.StatusCreated, g)
}

// HandleUpdate handles PUT /api/groups/{id}. A rename rewrites every
// solution in the group, so it gets the long timeout.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var p groupsvc.Patch
	if err := respond.Decode(r, &p); err != nil {
		respond.Error(w, h.Log, "update group", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "update group")
	defer cancel()

	g, err := h.Groups.Update(ctx, chi.URLParam(r, "id"), p, auth.ActorName(r))
	if err != nil {
		respond.Error(w, h.Log, "update group", err)
		return
	}
	respond.OK(w, http.StatusOK, g)
}

// HandleDelete handles DELETE /api/groups/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete group")
	defer cancel()

	if err := h.Groups.Delete(ctx, chi.URLParam(r, "id"), auth.ActorName(r)); err != nil {
		respond.Error(w, h.Log, "delete group", err)
		return
	}
	respond.NoContent(w)
}

// ServeOrphans handles GET /api/groups/orphans.
func (h *Handler) ServeOrphans(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "find orphaned groups")
	defer cancel()

	refs, err := h.Groups.FindOrphans(ctx)
	if err != nil {
		respond.Error(w, h.Log, "find orphaned groups", err)
		return
	}
	respond.OK(w, http.StatusOK, refs)
}
