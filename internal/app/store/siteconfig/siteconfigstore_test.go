package siteconfigstore

import (
	"errors"
	"reflect"
	"testing"

	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/domain/models"
	"github.com/techradar/compass/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPlain_IgnoresOrderAndNumericWidth(t *testing.T) {
	a := bson.M{"links": bson.A{bson.D{{Key: "url", Value: "/x"}, {Key: "n", Value: int32(1)}}}}
	b := bson.M{"links": []any{map[string]any{"n": float64(1), "url": "/x"}}}
	if !equalPlain(a, b) {
		t.Errorf("plain(%v) != plain(%v)", a, b)
	}
	c := bson.M{"links": []any{map[string]any{"n": float64(2), "url": "/x"}}}
	if equalPlain(a, c) {
		t.Error("different values compared equal")
	}
}

func equalPlain(a, b bson.M) bool {
	return reflect.DeepEqual(plain(a), plain(b))
}

func TestStore_CreateActivation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.Create(ctx, models.SiteConfig{Key: "home", Value: bson.M{"title": "v1"}, Active: true}, "alice")
	if err != nil {
		t.Fatalf("Create v1: %v", err)
	}
	if first.ID == "" || first.CreatedBy != "alice" {
		t.Fatalf("created = %+v", first)
	}

	_, err = store.Create(ctx, models.SiteConfig{Key: "home", Value: bson.M{"title": "v1"}, Active: true}, "alice")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("duplicate active create = %v, want ErrValidation", err)
	}

	second, err := store.Create(ctx, models.SiteConfig{Key: "home", Value: bson.M{"title": "v2"}, Active: true}, "bob")
	if err != nil {
		t.Fatalf("Create v2: %v", err)
	}

	active, total, err := store.ByKey(ctx, "home", true, 0, 10)
	if err != nil || total != 1 || active[0].ID != second.ID {
		t.Fatalf("active configs = %v (total %d), %v", active, total, err)
	}

	on := true
	updated, err := store.Update(ctx, first.ID, Patch{Active: &on}, "carol")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Active || updated.UpdatedBy != "carol" {
		t.Errorf("updated = %+v", updated)
	}
	active, _, _ = store.ByKey(ctx, "home", true, 0, 10)
	if len(active) != 1 || active[0].ID != first.ID {
		t.Errorf("after re-activation active = %v", active)
	}

	ok, err := store.Delete(ctx, second.ID)
	if err != nil || !ok {
		t.Errorf("Delete = %v, %v", ok, err)
	}
	if _, err := store.GetByID(ctx, second.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID after delete = %v", err)
	}
	if err := store.Reset(ctx, "alice"); !errors.Is(err, apperr.ErrNotImplemented) {
		t.Errorf("Reset = %v", err)
	}
}
