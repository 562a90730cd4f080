// internal/app/features/history/handler.go
package history

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	historystore "github.com/techradar/compass/internal/app/store/history"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/app/system/paging"
	"github.com/techradar/compass/internal/app/system/respond"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"github.com/techradar/compass/internal/domain/models"
	"go.uber.org/zap"
)

// Querier reads the history log.
type Querier interface {
	Query(ctx context.Context, f historystore.Filter) ([]models.HistoryRecord, int64, error)
}

type Handler struct {
	Store Querier
	Log   *zap.Logger
}

func NewHandler(store Querier, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}

// ServeQuery handles GET /api/history.
//
// Filters: object_type, object_id, object_name (substring, any case),
// change_type, username, fields (comma separated), start_date, end_date
// (RFC 3339 or YYYY-MM-DD; a bare end date covers that whole day),
// skip, limit.
func (h *Handler) ServeQuery(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromRequest(r)
	if err != nil {
		respond.Error(w, h.Log, "query history", err)
		return
	}
	h.serve(w, r, f)
}

// ServeObject handles GET /api/history/{object_type}/{object_id}.
func (h *Handler) ServeObject(w http.ResponseWriter, r *http.Request) {
	pg, err := paging.FromRequest(r)
	if err != nil {
		respond.Error(w, h.Log, "object history", err)
		return
	}
	h.serve(w, r, historystore.Filter{
		ObjectType: chi.URLParam(r, "object_type"),
		ObjectID:   chi.URLParam(r, "object_id"),
		Skip:       pg.Skip,
		Limit:      pg.Limit,
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, f historystore.Filter) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "query history")
	defer cancel()

	recs, total, err := h.Store.Query(ctx, f)
	if err != nil {
		respond.Error(w, h.Log, "query history", err)
		return
	}
	respond.Page(w, recs, total, f.Skip, f.Limit)
}

func filterFromRequest(r *http.Request) (historystore.Filter, error) {
	pg, err := paging.FromRequest(r)
	if err != nil {
		return historystore.Filter{}, err
	}
	f := historystore.Filter{
		ObjectType: query.Get(r, "object_type"),
		ObjectID:   query.Get(r, "object_id"),
		ObjectName: query.Get(r, "object_name"),
		ChangeType: strings.ToUpper(query.Get(r, "change_type")),
		Username:   query.Get(r, "username"),
		Skip:       pg.Skip,
		Limit:      pg.Limit,
	}
	for _, name := range strings.Split(query.Get(r, "fields"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			f.Fields = append(f.Fields, name)
		}
	}
	if f.Start, err = parseDate(query.Get(r, "start_date"), false); err != nil {
		return historystore.Filter{}, err
	}
	if f.End, err = parseDate(query.Get(r, "end_date"), true); err != nil {
		return historystore.Filter{}, err
	}
	return f, nil
}

func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", apperr.ErrValidation, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}
