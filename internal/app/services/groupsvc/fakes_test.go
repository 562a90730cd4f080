package groupsvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	groupstore "github.com/techradar/compass/internal/app/store/groups"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeGroups is an in-memory GroupStore with the same unique-name rule as
// the real collection.
type fakeGroups struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]models.Group
	listCalls int
	failNext  error // returned by the next Update
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{byID: map[primitive.ObjectID]models.Group{}}
}

func (f *fakeGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.byID[id]
	if !ok {
		return models.Group{}, fmt.Errorf("group %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return g, nil
}

func (f *fakeGroups) FindByName(_ context.Context, name string) (models.Group, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.byID {
		if g.Name == name {
			return g, true, nil
		}
	}
	return models.Group{}, false, nil
}

func (f *fakeGroups) Insert(_ context.Context, g models.Group) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.Name == g.Name {
			return models.Group{}, fmt.Errorf("%w: group %q", apperr.ErrDuplicateName, g.Name)
		}
	}
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	f.byID[g.ID] = g
	return g, nil
}

func (f *fakeGroups) List(_ context.Context, s groupstore.Sort, skip, limit int64) ([]models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]models.Group, 0, len(f.byID))
	for _, g := range f.byID {
		out = append(out, g)
	}
	less := func(a, b models.Group) int {
		switch s.Field {
		case "name":
			return strings.Compare(a.Name, b.Name)
		default:
			return a.Order - b.Order
		}
	}
	sort.Slice(out, func(i, j int) bool {
		c := less(out[i], out[j])
		if s.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if skip >= int64(len(out)) {
		return []models.Group{}, nil
	}
	out = out[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeGroups) Count(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

func (f *fakeGroups) Names(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, g := range f.byID {
		out = append(out, g.Name)
	}
	return out, nil
}

func (f *fakeGroups) Update(_ context.Context, id primitive.ObjectID, fl groupstore.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	g, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	if fl.Name != nil {
		for oid, o := range f.byID {
			if oid != id && o.Name == *fl.Name {
				return fmt.Errorf("%w: group name", apperr.ErrDuplicateName)
			}
		}
		g.Name = *fl.Name
	}
	if fl.Description != nil {
		g.Description = *fl.Description
	}
	if fl.Order != nil {
		g.Order = *fl.Order
	}
	g.UpdatedAt, g.UpdatedBy = fl.UpdatedAt, fl.UpdatedBy
	f.byID[id] = g
	return nil
}

func (f *fakeGroups) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return 0, nil
	}
	delete(f.byID, id)
	return 1, nil
}

func (f *fakeGroups) snapshot() map[primitive.ObjectID]models.Group {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make(map[primitive.ObjectID]models.Group, len(f.byID))
	for k, v := range f.byID {
		cp[k] = v
	}
	return cp
}

func (f *fakeGroups) restore(m map[primitive.ObjectID]models.Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID = m
}

// fakeSolution carries only the fields the group service touches.
type fakeSolution struct {
	Slug      string
	Group     string
	UpdatedAt time.Time
	UpdatedBy string
}

type fakeSolutions struct {
	mu       sync.Mutex
	sols     []fakeSolution
	undoErr  error
	undoCall int
}

func (f *fakeSolutions) add(slug, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sols = append(f.sols, fakeSolution{Slug: slug, Group: group})
}

func (f *fakeSolutions) setGroup(slug, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sols {
		if f.sols[i].Slug == slug {
			f.sols[i].Group = group
		}
	}
}

func (f *fakeSolutions) groupOf(slug string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sols {
		if s.Slug == slug {
			return s.Group
		}
	}
	return ""
}

func (f *fakeSolutions) CountByGroups(_ context.Context, names []string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	out := map[string]int64{}
	for _, s := range f.sols {
		if want[s.Group] {
			out[s.Group]++
		}
	}
	return out, nil
}

func (f *fakeSolutions) GroupRefCounts(context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int64{}
	for _, s := range f.sols {
		if s.Group != "" {
			out[s.Group]++
		}
	}
	return out, nil
}

func (f *fakeSolutions) ExistsByGroup(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sols {
		if s.Group == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSolutions) RenameGroup(_ context.Context, old, new, actor string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.sols {
		if f.sols[i].Group == old {
			f.sols[i].Group, f.sols[i].UpdatedAt, f.sols[i].UpdatedBy = new, at, actor
			n++
		}
	}
	return n, nil
}

func (f *fakeSolutions) UndoGroupRename(_ context.Context, old, new, actor string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.undoCall++
	if f.undoErr != nil {
		return 0, f.undoErr
	}
	var n int64
	for i := range f.sols {
		s := &f.sols[i]
		if s.Group == new && s.UpdatedAt.Equal(at) && s.UpdatedBy == actor {
			s.Group = old
			n++
		}
	}
	return n, nil
}

func (f *fakeSolutions) snapshot() []fakeSolution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeSolution(nil), f.sols...)
}

func (f *fakeSolutions) restore(s []fakeSolution) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sols = s
}

// fakeTxn stands in for a MongoDB transaction: on error every write made by
// fn is discarded.
type fakeTxn struct {
	groups    *fakeGroups
	solutions *fakeSolutions
}

func (t fakeTxn) Run(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	gs, ss := t.groups.snapshot(), t.solutions.snapshot()
	if err := fn(ctx); err != nil {
		t.groups.restore(gs)
		t.solutions.restore(ss)
		return true, err
	}
	return true, nil
}

var errBoom = errors.New("boom")
