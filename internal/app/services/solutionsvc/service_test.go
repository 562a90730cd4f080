package solutionsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/app/system/history"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	mu     sync.Mutex
	bySlug map[string]models.Solution
	unset  []string
}

func newFakeStore() *fakeStore { return &fakeStore{bySlug: map[string]models.Solution{}} }

func (f *fakeStore) Insert(_ context.Context, sol models.Solution) (models.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bySlug[sol.Slug]; ok {
		return models.Solution{}, fmt.Errorf("%w: solution %q", apperr.ErrDuplicateName, sol.Slug)
	}
	sol.ID = primitive.NewObjectID()
	f.bySlug[sol.Slug] = sol
	return sol, nil
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (models.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sol, ok := f.bySlug[slug]
	if !ok {
		return models.Solution{}, fmt.Errorf("solution %q: %w", slug, apperr.ErrNotFound)
	}
	return sol, nil
}

func (f *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.bySlug[slug]
	return ok, nil
}

// Update round-trips the document through BSON so $set keys behave as in
// MongoDB.
func (f *fakeStore) Update(_ context.Context, id primitive.ObjectID, set bson.M, unset ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for slug, sol := range f.bySlug {
		if sol.ID != id {
			continue
		}
		raw, err := bson.Marshal(sol)
		if err != nil {
			return err
		}
		var doc bson.M
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return err
		}
		for k, v := range set {
			doc[k] = v
		}
		for _, k := range unset {
			delete(doc, k)
		}
		f.unset = append(f.unset, unset...)
		raw, err = bson.Marshal(doc)
		if err != nil {
			return err
		}
		var out models.Solution
		if err := bson.Unmarshal(raw, &out); err != nil {
			return err
		}
		f.bySlug[slug] = out
		return nil
	}
	return fmt.Errorf("solution %s: %w", id.Hex(), apperr.ErrNotFound)
}

type fakeGroups struct {
	mu           sync.Mutex
	names        []string
	invalidated  int
	getOrCreated []string
	err          error
}

func (f *fakeGroups) GetOrCreate(_ context.Context, name, _ string) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Group{}, f.err
	}
	f.getOrCreated = append(f.getOrCreated, name)
	return models.Group{Name: name}, nil
}

func (f *fakeGroups) Invalidate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

type memSink struct {
	mu   sync.Mutex
	recs []models.HistoryRecord
}

func (m *memSink) Insert(_ context.Context, rec models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

type harness struct {
	svc    *Service
	store  *fakeStore
	groups *fakeGroups
	sink   *memSink
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	h := &harness{store: newFakeStore(), groups: &fakeGroups{}, sink: &memSink{}}
	h.now = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	h.svc = New(h.store, h.groups, history.New(h.sink, nil, history.ModeDB), zaptest.NewLogger(t))
	h.svc.now = func() time.Time { return h.now }
	return h
}

func strp(s string) *string { return &s }

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Apache Kafka", "apache-kafka"},
		{"  Node.js 20 ", "node-js-20"},
		{"C++", "c"},
		{"Über--Tool", "über-tool"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreate_Defaults(t *testing.T) {
	h := newHarness(t)
	sol, err := h.svc.Create(context.Background(), Input{Name: "Apache Kafka", Brief: "<i>Streams</i>"}, "alice")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sol.Slug != "apache-kafka" {
		t.Errorf("Slug = %q", sol.Slug)
	}
	if sol.Group != models.DefaultGroupName {
		t.Errorf("Group = %q, want %q", sol.Group, models.DefaultGroupName)
	}
	if sol.RecommendStatus != models.RecommendAssess || sol.ReviewStatus != models.ReviewPending {
		t.Errorf("statuses = %s/%s", sol.RecommendStatus, sol.ReviewStatus)
	}
	if sol.RecommendStatusUpdatedAt != nil {
		t.Errorf("RecommendStatusUpdatedAt set on create")
	}
	if sol.Brief != "Streams" {
		t.Errorf("Brief = %q", sol.Brief)
	}
	if len(h.groups.getOrCreated) != 1 || h.groups.getOrCreated[0] != "Default" {
		t.Errorf("groups resolved = %v", h.groups.getOrCreated)
	}
	if h.groups.invalidated != 1 {
		t.Errorf("group cache invalidated %d times, want 1", h.groups.invalidated)
	}
	if len(h.sink.recs) != 1 || h.sink.recs[0].ChangeType != models.ChangeCreate || h.sink.recs[0].ObjectID != "apache-kafka" {
		t.Errorf("history = %+v", h.sink.recs)
	}
}

func TestCreate_SlugCollision(t *testing.T) {
	h := newHarness(t)
	for i, want := range []string{"redis", "redis-2", "redis-3"} {
		sol, err := h.svc.Create(context.Background(), Input{Name: "Redis", Group: "Data"}, "alice")
		if err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
		if sol.Slug != want {
			t.Errorf("Create #%d slug = %q, want %q", i, sol.Slug, want)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		in   Input
	}{
		{"missing name", Input{}},
		{"symbols only", Input{Name: "***"}},
		{"bad recommend", Input{Name: "x", RecommendStatus: "MAYBE"}},
		{"bad stage", Input{Name: "x", Stage: "BETA"}},
		{"bad email", Input{Name: "x", TeamEmail: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.svc.Create(context.Background(), tt.in, "alice"); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(h.store.bySlug) != 0 {
		t.Errorf("invalid input was stored")
	}
}

func TestCreate_GroupFailure(t *testing.T) {
	h := newHarness(t)
	h.groups.err = errors.New("mongo down")
	if _, err := h.svc.Create(context.Background(), Input{Name: "x"}, "alice"); !errors.Is(err, h.groups.err) {
		t.Fatalf("expected group error, got %v", err)
	}
	if len(h.store.bySlug) != 0 {
		t.Errorf("solution stored without a group")
	}
}

func TestGet_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Get(context.Background(), "ghost")
	if !errors.Is(err, apperr.ErrNotFound) || err.Error() != "Solution 'ghost' not found" {
		t.Errorf("got %v", err)
	}
}

func TestUpdate_RecommendStatusStamped(t *testing.T) {
	h := newHarness(t)
	sol, err := h.svc.Create(context.Background(), Input{Name: "Kafka", Group: "Data"}, "alice")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	h.now = h.now.Add(48 * time.Hour)

	got, err := h.svc.Update(context.Background(), sol.Slug, Patch{
		RecommendStatus: strp(models.RecommendAdopt),
		Justification:   "Used by five teams",
	}, "bob")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.RecommendStatus != models.RecommendAdopt {
		t.Errorf("RecommendStatus = %q", got.RecommendStatus)
	}
	if got.RecommendStatusUpdatedAt == nil || !got.RecommendStatusUpdatedAt.Equal(h.now) {
		t.Errorf("RecommendStatusUpdatedAt = %v, want %v", got.RecommendStatusUpdatedAt, h.now)
	}
	if got.UpdatedBy != "bob" || got.CreatedBy != "alice" {
		t.Errorf("created/updated by = %s/%s", got.CreatedBy, got.UpdatedBy)
	}

	rec := h.sink.recs[len(h.sink.recs)-1]
	if rec.ChangeType != models.ChangeUpdate || len(rec.ChangedFields) != 1 {
		t.Fatalf("update record = %+v", rec)
	}
	f := rec.ChangedFields[0]
	if f.FieldName != "recommend_status" || f.OldValue != "ASSESS" || f.NewValue != "ADOPT" {
		t.Errorf("changed field = %+v", f)
	}
	if f.StatusChangeJustification != "Used by five teams" {
		t.Errorf("justification = %q", f.StatusChangeJustification)
	}
}

func TestUpdate_LegacyStampCleared(t *testing.T) {
	h := newHarness(t)
	old := h.now.Add(-time.Hour * 24 * 400)
	h.store.bySlug["old"] = models.Solution{
		ID: primitive.NewObjectID(), Name: "Old", Slug: "old", Group: "G",
		RecommendStatus: models.RecommendTrial, ReviewStatus: models.ReviewApproved,
		LegacyRecommendStatusUpdatedAt: &old,
	}
	got, err := h.svc.Update(context.Background(), "old", Patch{RecommendStatus: strp(models.RecommendHold)}, "bob")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.LegacyRecommendStatusUpdatedAt != nil {
		t.Errorf("legacy stamp kept")
	}
	if got.StatusChangedAt() == nil || !got.StatusChangedAt().Equal(h.now) {
		t.Errorf("StatusChangedAt = %v", got.StatusChangedAt())
	}
}

func TestUpdate_GroupChange(t *testing.T) {
	h := newHarness(t)
	sol, err := h.svc.Create(context.Background(), Input{Name: "React", Group: "Frontend"}, "alice")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	h.groups.getOrCreated, h.groups.invalidated = nil, 0

	got, err := h.svc.Update(context.Background(), sol.Slug, Patch{Group: strp("UI")}, "bob")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Group != "UI" {
		t.Errorf("Group = %q", got.Group)
	}
	if len(h.groups.getOrCreated) != 1 || h.groups.getOrCreated[0] != "UI" {
		t.Errorf("groups resolved = %v", h.groups.getOrCreated)
	}
	if h.groups.invalidated != 1 {
		t.Errorf("invalidated %d times, want 1", h.groups.invalidated)
	}
	if got.RecommendStatusUpdatedAt != nil {
		t.Errorf("group change stamped the recommend status")
	}

	// Same group again: nothing to resolve or invalidate.
	if _, err := h.svc.Update(context.Background(), sol.Slug, Patch{Group: strp("UI")}, "bob"); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(h.groups.getOrCreated) != 1 || h.groups.invalidated != 1 {
		t.Errorf("no-op group update touched groups: %v / %d", h.groups.getOrCreated, h.groups.invalidated)
	}
}

func TestUpdate_NoopAndErrors(t *testing.T) {
	h := newHarness(t)
	sol, err := h.svc.Create(context.Background(), Input{Name: "Vue", Group: "Frontend"}, "alice")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	records := len(h.sink.recs)

	got, err := h.svc.Update(context.Background(), sol.Slug, Patch{Name: strp(" Vue ")}, "bob")
	if err != nil {
		t.Fatalf("no-op Update failed: %v", err)
	}
	if got.UpdatedBy != "alice" || len(h.sink.recs) != records {
		t.Errorf("no-op update wrote")
	}

	if _, err := h.svc.Update(context.Background(), "ghost", Patch{Name: strp("x")}, "bob"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing slug: expected ErrNotFound, got %v", err)
	}
	if _, err := h.svc.Update(context.Background(), sol.Slug, Patch{Name: strp("  ")}, "bob"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank name: expected ErrValidation, got %v", err)
	}
	if _, err := h.svc.Update(context.Background(), sol.Slug, Patch{ReviewStatus: strp("DONE")}, "bob"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad review status: expected ErrValidation, got %v", err)
	}
}

func TestUpdate_ReviewAndTags(t *testing.T) {
	h := newHarness(t)
	sol, err := h.svc.Create(context.Background(), Input{Name: "Go", Group: "Backend", Tags: []string{"lang", " lang ", ""}}, "alice")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(sol.Tags) != 1 || sol.Tags[0] != "lang" {
		t.Errorf("Tags = %v", sol.Tags)
	}
	tags := []string{"lang", "backend"}
	got, err := h.svc.Update(context.Background(), sol.Slug, Patch{
		ReviewStatus: strp(models.ReviewApproved),
		Tags:         &tags,
	}, "admin")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.ReviewStatus != models.ReviewApproved || len(got.Tags) != 2 {
		t.Errorf("got %+v", got)
	}
	rec := h.sink.recs[len(h.sink.recs)-1]
	var names []string
	for _, f := range rec.ChangedFields {
		names = append(names, f.FieldName)
	}
	if fmt.Sprint(names) != "[review_status tags]" {
		t.Errorf("changed fields = %v", names)
	}
}
