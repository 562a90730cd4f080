package historystore

import (
	"testing"
	"time"

	"github.com/techradar/compass/internal/domain/models"
	"github.com/techradar/compass/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildQuery(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q := buildQuery(Filter{
		ObjectType: "group",
		ObjectName: "a.b",
		Username:   "alice",
		Fields:     []string{"name"},
		Start:      &start,
	})

	if q["object_type"] != "group" {
		t.Errorf("object_type = %v", q["object_type"])
	}
	re, ok := q["object_name"].(primitive.Regex)
	if !ok || re.Pattern != `a\.b` || re.Options != "i" {
		t.Errorf("object_name = %#v, want quoted case-insensitive regex", q["object_name"])
	}
	if _, ok := q["$or"]; !ok {
		t.Error("username filter must match created_by or updated_by")
	}
	if q["changed_fields.field_name"] == nil {
		t.Error("fields filter missing")
	}
	rng := q["created_at"].(bson.M)
	if _, ok := rng["$lte"]; ok {
		t.Error("no end date was given")
	}
	if len(buildQuery(Filter{})) != 0 {
		t.Error("empty filter must match everything")
	}
}

func TestNormalize(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := models.HistoryRecord{ChangeType: "update", CreatedBy: "bob", CreatedAt: created}
	normalize(&r)
	if r.ChangeType != models.ChangeUpdate || r.UpdatedBy != "bob" || !r.UpdatedAt.Equal(created) || r.ChangedFields == nil {
		t.Errorf("normalize = %+v", r)
	}
}

func TestStore_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Truncate(time.Millisecond)
	recs := []models.HistoryRecord{
		{ObjectType: models.ObjectGroup, ObjectID: "g1", ObjectName: "Frontend", ChangeType: models.ChangeCreate, CreatedBy: "alice", CreatedAt: base.Add(-3 * time.Hour)},
		{ObjectType: models.ObjectGroup, ObjectID: "g1", ObjectName: "Frontend", ChangeType: models.ChangeUpdate, CreatedBy: "alice", UpdatedBy: "bob", CreatedAt: base.Add(-2 * time.Hour),
			ChangedFields: []models.ChangedField{{FieldName: "name", OldValue: "UI", NewValue: "Frontend"}}},
		{ObjectType: models.ObjectSolution, ObjectID: "s1", ObjectName: "Kafka", ChangeType: models.ChangeCreate, CreatedBy: "carol", CreatedAt: base.Add(-1 * time.Hour)},
	}
	for _, r := range recs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	all, total, err := store.Query(ctx, Filter{})
	if err != nil || total != 3 || len(all) != 3 {
		t.Fatalf("Query(all) = %d/%d, %v", len(all), total, err)
	}
	if all[0].ObjectName != "Kafka" {
		t.Errorf("newest first: got %q", all[0].ObjectName)
	}

	byUser, total, _ := store.Query(ctx, Filter{Username: "bob"})
	if total != 1 || byUser[0].ChangeType != models.ChangeUpdate {
		t.Errorf("Query(bob) = %v", byUser)
	}

	byName, total, _ := store.Query(ctx, Filter{ObjectName: "front", Fields: []string{"name"}})
	if total != 1 || byName[0].ObjectID != "g1" {
		t.Errorf("Query(front,name) = %v", byName)
	}

	end := base.Add(-90 * time.Minute)
	old, total, _ := store.Query(ctx, Filter{End: &end, Limit: 1})
	if total != 2 || len(old) != 1 || old[0].ChangeType != models.ChangeUpdate {
		t.Errorf("Query(end, limit 1) = %v (total %d)", old, total)
	}
}
