package models_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestObjectIDsEncodeAsUnderscoreID(t *testing.T) {
	oid := primitive.NewObjectID()
	tests := []struct {
		name string
		v    any
	}{
		{"group", models.Group{ID: oid, Name: "Platform"}},
		{"solution", models.Solution{ID: oid, Name: "Terraform"}},
		{"category", models.Category{ID: oid, Name: "Tools"}},
		{"history", models.HistoryRecord{ID: oid, ObjectType: "group"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if m["_id"] != oid.Hex() {
				t.Errorf("_id = %v, want %s", m["_id"], oid.Hex())
			}
			if _, ok := m["id"]; ok {
				t.Errorf("unexpected id key in %s", b)
			}
		})
	}
}

func TestSiteConfigKeepsPublicID(t *testing.T) {
	b, err := json.Marshal(models.SiteConfig{ID: "5f0c", Key: "footer"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["id"] != "5f0c" {
		t.Errorf("id = %v, want 5f0c", m["id"])
	}
}
