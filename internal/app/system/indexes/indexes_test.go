package indexes_test

import (
	"testing"

	"github.com/techradar/compass/internal/app/system/indexes"
	"github.com/techradar/compass/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// First call
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}

	// Second call should also succeed (idempotent)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"groups":      {"uniq_groups_name", "idx_groups_order__id"},
		"solutions":   {"uniq_solutions_slug", "idx_solutions_group", "idx_solutions_review_group__id", "idx_solutions_category"},
		"categories":  {"uniq_categories_name", "idx_categories_quadrant__id"},
		"history":     {"idx_history_object_created", "idx_history_created", "idx_history_created_by"},
		"site_config": {"uniq_site_config_id", "idx_site_config_key_active"},
	}
	for coll, want := range expected {
		got := indexNames(t, db, coll)
		for _, name := range want {
			if !got[name] {
				t.Errorf("expected index %q to exist on %s collection", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys and options as uniq_groups_name, different name.
	_, err := db.Collection("groups").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("legacy_name"),
	})
	if err != nil {
		t.Fatalf("create legacy index: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	got := indexNames(t, db, "groups")
	if got["legacy_name"] || !got["uniq_groups_name"] {
		t.Errorf("groups indexes = %v", got)
	}
}

func TestEnsureAll_UniqueGroupNameEnforced(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	if _, err := db.Collection("groups").InsertOne(ctx, bson.M{"name": "UI"}); err != nil {
		t.Fatalf("Insert group failed: %v", err)
	}
	if _, err := db.Collection("groups").InsertOne(ctx, bson.M{"name": "UI"}); err == nil {
		t.Error("expected duplicate key error for unique index on groups.name")
	}
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Dirty data that predates the unique index.
	for i := 0; i < 2; i++ {
		if _, err := db.Collection("categories").InsertOne(ctx, bson.M{"name": "Tools"}); err != nil {
			t.Fatal(err)
		}
	}
	err := indexes.EnsureAll(ctx, db)
	if err == nil {
		t.Fatal("expected EnsureAll to report duplicate category names")
	}
}
