package categorysvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/app/system/txn"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	byID      map[primitive.ObjectID]models.Category
	updateErr error
}

func (f *fakeStore) GetByID(_ context.Context, id primitive.ObjectID) (models.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return models.Category{}, fmt.Errorf("category %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return c, nil
}

func (f *fakeStore) FindByName(_ context.Context, name string) (models.Category, bool, error) {
	for _, c := range f.byID {
		if c.Name == name {
			return c, true, nil
		}
	}
	return models.Category{}, false, nil
}

func (f *fakeStore) List(context.Context) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range f.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, c models.Category) (models.Category, error) {
	c.ID = primitive.NewObjectID()
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeStore) Update(_ context.Context, id primitive.ObjectID, set bson.M) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	c := f.byID[id]
	if v, ok := set["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := set["description"]; ok {
		c.Description = v.(string)
	}
	if v, ok := set["radar_quadrant"]; ok {
		c.RadarQuadrant = v.(int)
	}
	c.UpdatedAt = set["updated_at"].(time.Time)
	c.UpdatedBy = set["updated_by"].(string)
	f.byID[id] = c
	return nil
}

// fakeSolutions maps solution slug to category name.
type fakeSolutions struct {
	cats    map[string]string
	undoErr error
	undone  int
}

func (f *fakeSolutions) RenameCategory(_ context.Context, old, new, _ string, _ time.Time) (int64, error) {
	var n int64
	for slug, c := range f.cats {
		if c == old {
			f.cats[slug] = new
			n++
		}
	}
	return n, nil
}

func (f *fakeSolutions) UndoCategoryRename(_ context.Context, old, new, _ string, _ time.Time) (int64, error) {
	f.undone++
	if f.undoErr != nil {
		return 0, f.undoErr
	}
	var n int64
	for slug, c := range f.cats {
		if c == new {
			f.cats[slug] = old
			n++
		}
	}
	return n, nil
}

func newService(t *testing.T) (*Service, *fakeStore, *fakeSolutions) {
	st := &fakeStore{byID: map[primitive.ObjectID]models.Category{}}
	sols := &fakeSolutions{cats: map[string]string{}}
	return New(st, sols, txn.Direct{}, nil, zaptest.NewLogger(t)), st, sols
}

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

func TestCreate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, Input{Name: " Cloud ", RadarQuadrant: intp(2)}, "admin")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.Name != "Cloud" || c.RadarQuadrant != 2 {
		t.Errorf("created = %+v", c)
	}

	off, err := svc.Create(ctx, Input{Name: "Misc"}, "admin")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if off.RadarQuadrant != models.NoRadarQuadrant {
		t.Errorf("default quadrant = %d, want -1", off.RadarQuadrant)
	}

	if _, err := svc.Create(ctx, Input{Name: "Cloud"}, "admin"); !errors.Is(err, apperr.ErrDuplicateName) {
		t.Errorf("duplicate: expected ErrDuplicateName, got %v", err)
	}
	for _, q := range []int{-2, 4} {
		if _, err := svc.Create(ctx, Input{Name: fmt.Sprint("Q", q), RadarQuadrant: intp(q)}, "admin"); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("quadrant %d: expected ErrValidation, got %v", q, err)
		}
	}

	list, _ := svc.List(ctx)
	if len(list) != 2 {
		t.Errorf("List = %d categories, want 2", len(list))
	}
}

func TestUpdate_RenamePropagates(t *testing.T) {
	svc, _, sols := newService(t)
	ctx := context.Background()
	c, _ := svc.Create(ctx, Input{Name: "Cloud", RadarQuadrant: intp(1)}, "admin")
	sols.cats["lambda"] = "Cloud"
	sols.cats["react"] = "Frontend"

	got, err := svc.Update(ctx, c.ID.Hex(), Patch{Name: strp("Cloud Platforms"), RadarQuadrant: intp(-1)}, "admin")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Name != "Cloud Platforms" || got.RadarQuadrant != -1 {
		t.Errorf("updated = %+v", got)
	}
	if sols.cats["lambda"] != "Cloud Platforms" || sols.cats["react"] != "Frontend" {
		t.Errorf("solution categories = %v", sols.cats)
	}
}

func TestUpdate_Errors(t *testing.T) {
	svc, st, sols := newService(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, Input{Name: "A"}, "admin")
	svc.Create(ctx, Input{Name: "B"}, "admin")
	sols.cats["s"] = "A"

	if _, err := svc.Update(ctx, a.ID.Hex(), Patch{Name: strp("B")}, "admin"); !errors.Is(err, apperr.ErrDuplicateName) {
		t.Errorf("rename onto B: expected ErrDuplicateName, got %v", err)
	}
	if _, err := svc.Update(ctx, "zzz", Patch{Name: strp("C")}, "admin"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bad id: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, a.ID.Hex(), Patch{RadarQuadrant: intp(9)}, "admin"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad quadrant: expected ErrValidation, got %v", err)
	}

	// Ordered writes: a failed category update moves the solutions back.
	st.updateErr = errors.New("write failed")
	if _, err := svc.Update(ctx, a.ID.Hex(), Patch{Name: strp("C")}, "admin"); !errors.Is(err, st.updateErr) {
		t.Errorf("expected update error, got %v", err)
	}
	if sols.cats["s"] != "A" || sols.undone != 1 {
		t.Errorf("after compensation: cats=%v undone=%d", sols.cats, sols.undone)
	}

	sols.undoErr = errors.New("undo failed")
	if _, err := svc.Update(ctx, a.ID.Hex(), Patch{Name: strp("C")}, "admin"); !errors.Is(err, apperr.ErrConsistency) {
		t.Errorf("expected ErrConsistency, got %v", err)
	}
}
