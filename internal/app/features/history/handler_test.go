package history_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/app/features/history"
	historystore "github.com/techradar/compass/internal/app/store/history"
	"github.com/techradar/compass/internal/app/system/auth"
	"github.com/techradar/compass/internal/domain/models"
	"github.com/techradar/compass/internal/testutil"
	"go.uber.org/zap"
)

type stubQuerier struct {
	got  historystore.Filter
	recs []models.HistoryRecord
}

func (s *stubQuerier) Query(_ context.Context, f historystore.Filter) ([]models.HistoryRecord, int64, error) {
	s.got = f
	return s.recs, int64(len(s.recs)), nil
}

func newRouter(q *stubQuerier) http.Handler {
	r := chi.NewRouter()
	r.Mount("/api/history", history.Routes(history.NewHandler(q, zap.NewNop()), auth.NewVerifier("s", "", zap.NewNop())))
	return r
}

func TestServeQuery_Filters(t *testing.T) {
	q := &stubQuerier{recs: []models.HistoryRecord{{ObjectType: "group", ObjectName: "UI", ChangeType: "UPDATE"}}}
	r := newRouter(q)

	req := testutil.WithActor(testutil.NewRequest("GET",
		"/api/history?object_type=group&object_name=ui&change_type=update&username=alice&fields=name,%20order&start_date=2026-01-01&end_date=2026-01-31&skip=5&limit=20"),
		testutil.UserActor())
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":1`)

	f := q.got
	if f.ObjectType != "group" || f.ObjectName != "ui" || f.ChangeType != "UPDATE" || f.Username != "alice" {
		t.Errorf("filter = %+v", f)
	}
	if len(f.Fields) != 2 || f.Fields[0] != "name" || f.Fields[1] != "order" {
		t.Errorf("fields = %v", f.Fields)
	}
	if f.Skip != 5 || f.Limit != 20 {
		t.Errorf("skip/limit = %d/%d", f.Skip, f.Limit)
	}
	wantStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if f.Start == nil || !f.Start.Equal(wantStart) {
		t.Errorf("start = %v", f.Start)
	}
	if f.End == nil || f.End.Before(time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end = %v, want end of Jan 31", f.End)
	}
}

func TestServeQuery_BadInput(t *testing.T) {
	r := newRouter(&stubQuerier{})
	for _, target := range []string{
		"/api/history?start_date=yesterday",
		"/api/history?limit=0",
	} {
		rec := testutil.NewRecorder()
		r.ServeHTTP(rec, testutil.WithActor(testutil.NewRequest("GET", target), testutil.UserActor()))
		rec.AssertStatus(t, http.StatusBadRequest)
	}
}

func TestServeObject(t *testing.T) {
	q := &stubQuerier{}
	r := newRouter(q)

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewRequest("GET", "/api/history/solution/kafka"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.WithActor(testutil.NewRequest("GET", "/api/history/solution/kafka"), testutil.UserActor()))
	rec.AssertStatus(t, http.StatusOK)
	if q.got.ObjectType != "solution" || q.got.ObjectID != "kafka" {
		t.Errorf("filter = %+v", q.got)
	}
}

func TestServeObject_Direct(t *testing.T) {
	q := &stubQuerier{}
	h := history.NewHandler(q, zap.NewNop())

	req := testutil.NewRequest("GET", "/?limit=5")
	req = testutil.WithChiURLParam(req, "object_type", "group")
	req = testutil.WithChiURLParam(req, "object_id", "65f0c0ffee0000000000abcd")
	rec := testutil.NewRecorder()
	h.ServeObject(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if q.got.ObjectType != "group" || q.got.ObjectID != "65f0c0ffee0000000000abcd" || q.got.Limit != 5 {
		t.Errorf("filter = %+v", q.got)
	}
}
