// internal/app/features/siteconfig/handler.go
package siteconfig

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	siteconfigstore "github.com/techradar/compass/internal/app/store/siteconfig"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/app/system/auth"
	"github.com/techradar/compass/internal/app/system/history"
	"github.com/techradar/compass/internal/app/system/inputval"
	"github.com/techradar/compass/internal/app/system/paging"
	"github.com/techradar/compass/internal/app/system/respond"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Store is the site configuration persistence the handler needs.
type Store interface {
	List(ctx context.Context, skip, limit int64) ([]models.SiteConfig, int64, error)
	ByKey(ctx context.Context, key string, activeOnly bool, skip, limit int64) ([]models.SiteConfig, int64, error)
	GetByID(ctx context.Context, id string) (models.SiteConfig, error)
	Create(ctx context.Context, sc models.SiteConfig, actor string) (models.SiteConfig, error)
	Update(ctx context.Context, id string, p siteconfigstore.Patch, actor string) (models.SiteConfig, error)
	Delete(ctx context.Context, id string) (bool, error)
	Reset(ctx context.Context, actor string) error
}

type Handler struct {
	Store   Store
	History *history.Recorder
	Log     *zap.Logger
}

func NewHandler(store Store, rec *history.Recorder, logger *zap.Logger) *Handler {
	return &Handler{Store: store, History: rec, Log: logger}
}

type createInput struct {
	Key         string `json:"key" validate:"required,max=100"`
	Value       bson.M `json:"value" validate:"required"`
	Active      *bool  `json:"active"`
	Description string `json:"description" validate:"max=500"`
}

type updateInput struct {
	Key         *string `json:"key,omitempty" validate:"omitempty,min=1,max=100"`
	Value       bson.M  `json:"value,omitempty"`
	Active      *bool   `json:"active,omitempty"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

var errNotFound = apperr.Newf(apperr.ErrNotFound, "Site configuration not found")

// ServeList handles GET /api/site-config.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	pg, err := paging.FromRequest(r)
	if err != nil {
		respond.Error(w, h.Log, "list site config", err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list site config")
	defer cancel()

	cs, total, err := h.Store.List(ctx, pg.Skip, pg.Limit)
	if err != nil {
		respond.Error(w, h.Log, "list site config", err)
		return
	}
	respond.Page(w, cs, total, pg.Skip, pg.Limit)
}

// ServeByKey handles GET /api/site-config/{key}?active=true.
func (h *Handler) ServeByKey(w http.ResponseWriter, r *http.Request) {
	pg, err := paging.FromRequest(r)
	if err != nil {
		respond.Error(w, h.Log, "site config by key", err)
		return
	}
	activeOnly := false
	if s := query.Get(r, "active"); s != "" {
		if activeOnly, err = strconv.ParseBool(s); err != nil {
			respond.Detail(w, http.StatusBadRequest, "active must be true or false")
			return
		}
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "site config by key")
	defer cancel()

	cs, total, err := h.Store.ByKey(ctx, chi.URLParam(r, "key"), activeOnly, pg.Skip, pg.Limit)
	if err != nil {
		respond.Error(w, h.Log, "site config by key", err)
		return
	}
	respond.Page(w, cs, total, pg.Skip, pg.Limit)
}

// HandleCreate handles POST /api/site-config.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, "create site config", err)
		return
	}
	in.Key = strings.TrimSpace(in.Key)
	in.Description = inputval.PlainText(in.Description)
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, "create site config", err)
		return
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create site config")
	defer cancel()

	actor := auth.ActorName(r)
	sc, err := h.Store.Create(ctx, models.SiteConfig{
		Key:         in.Key,
		Value:       in.Value,
		Active:      active,
		Description: in.Description,
	}, actor)
	if err != nil {
		respond.Error(w, h.Log, "create site config", err)
		return
	}
	h.History.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectSiteConfig,
		ObjectID:   sc.ID,
		ObjectName: sc.Key,
		ChangeType: models.ChangeCreate,
		Actor:      actor,
		Fields:     history.Diff(nil, snapshot(sc)),
	})
	respond.OK(w, http.StatusCreated, sc)
}

// HandleUpdate handles PUT /api/site-config/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, "update site config", err)
		return
	}
	if in.Key != nil {
		k := strings.TrimSpace(*in.Key)
		in.Key = &k
	}
	if in.Description != nil {
		d := inputval.PlainText(*in.Description)
		in.Description = &d
	}
	if err := inputval.Validate(in).Err(); err != nil {
		respond.Error(w, h.Log, "update site config", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update site config")
	defer cancel()

	id := chi.URLParam(r, "id")
	before, err := h.Store.GetByID(ctx, id)
	if err != nil {
		h.fail(w, "update site config", err)
		return
	}
	actor := auth.ActorName(r)
	after, err := h.Store.Update(ctx, id, siteconfigstore.Patch{
		Key:         in.Key,
		Value:       in.Value,
		Active:      in.Active,
		Description: in.Description,
	}, actor)
	if err != nil {
		h.fail(w, "update site config", err)
		return
	}
	if fields := history.Diff(snapshot(before), snapshot(after)); len(fields) > 0 {
		h.History.RecordChange(ctx, history.Change{
			ObjectType: models.ObjectSiteConfig,
			ObjectID:   after.ID,
			ObjectName: after.Key,
			ChangeType: models.ChangeUpdate,
			Actor:      actor,
			Fields:     fields,
		})
	}
	respond.OK(w, http.StatusOK, after)
}

// HandleDelete handles DELETE /api/site-config/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete site config")
	defer cancel()

	id := chi.URLParam(r, "id")
	before, err := h.Store.GetByID(ctx, id)
	if err != nil {
		h.fail(w, "delete site config", err)
		return
	}
	ok, err := h.Store.Delete(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, "delete site config", err)
		return
	}
	if !ok {
		respond.Error(w, h.Log, "delete site config", errNotFound)
		return
	}
	h.History.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectSiteConfig,
		ObjectID:   id,
		ObjectName: before.Key,
		ChangeType: models.ChangeDelete,
		Actor:      auth.ActorName(r),
		Fields:     history.Diff(snapshot(before), nil),
	})
	respond.OK(w, http.StatusOK, map[string]string{"message": "Site configuration deleted successfully"})
}

// HandleReset handles POST /api/site-config/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context(), auth.ActorName(r)); err != nil {
		if errors.Is(err, apperr.ErrNotImplemented) {
			respond.Detail(w, http.StatusNotImplemented, "Reset functionality is not implemented yet")
			return
		}
		respond.Error(w, h.Log, "reset site config", err)
		return
	}
	respond.OK(w, http.StatusOK, map[string]string{"message": "Site configurations reset successfully"})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		err = errNotFound
	}
	respond.Error(w, h.Log, op, err)
}

func snapshot(sc models.SiteConfig) map[string]any {
	return history.Snapshot(
		"key", sc.Key,
		"value", map[string]any(sc.Value),
		"active", sc.Active,
		"description", sc.Description,
	)
}
