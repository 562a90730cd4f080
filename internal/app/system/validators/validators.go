// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	categorystore "github.com/techradar/compass/internal/app/store/categories"
	groupstore "github.com/techradar/compass/internal/app/store/groups"
	historystore "github.com/techradar/compass/internal/app/store/history"
	siteconfigstore "github.com/techradar/compass/internal/app/store/siteconfig"
	solutionstore "github.com/techradar/compass/internal/app/store/solutions"
	"github.com/techradar/compass/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var collections = []struct {
	name   string
	schema func() bson.M
}{
	{groupstore.Collection, groupsSchema},
	{solutionstore.Collection, solutionsSchema},
	{categorystore.Collection, categoriesSchema},
	{historystore.Collection, historySchema},
	{siteconfigstore.Collection, siteConfigSchema},
}

// EnsureAll creates the catalog collections with JSON-Schema validators, or
// attaches the validators to collections that already exist. Servers that
// reject validators (some DocumentDB versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var problems []string
	for _, c := range collections {
		if err := ensure(ctx, db, c.name, c.schema(), have[c.name]); err != nil {
			problems = append(problems, c.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensure(ctx context.Context, db *mongo.Database, name string, schema bson.M, exists bool) error {
	if !exists {
		opts := options.CreateCollection().
			SetValidator(schema).
			SetValidationLevel("moderate").
			SetValidationAction("error")
		err := db.CreateCollection(ctx, name, opts)
		switch {
		case err == nil:
			zap.L().Info("created collection", zap.String("collection", name))
			return nil
		case unsupported(err):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", name))
			return db.CreateCollection(ctx, name)
		case !hasCode(err, 48, "already exists"):
			return err
		}
		// Lost a creation race; fall through and attach the validator.
	}

	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		if unsupported(err) {
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", name))
			return nil
		}
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

// unsupported matches NoSuchCommand (59) and CommandNotSupported (115).
func unsupported(err error) bool {
	return hasCode(err, 59, "no such command") ||
		hasCode(err, 115, "not implemented") ||
		hasCode(err, 115, "not supported")
}

// hasCode reports whether err is a command error with code, or whose text
// contains phrase.
func hasCode(err error, code int32, phrase string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), phrase)
}

/* ------------------------- JSON-Schema docs ---------------------- */

// nonBlank matches a string with at least one non-space character.
var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

var integer = bson.A{"int", "long"}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "order"},
			"properties": bson.M{
				"name":        nonBlank,
				"description": bson.M{"bsonType": "string"},
				"order":       bson.M{"bsonType": integer},
				"created_at":  bson.M{"bsonType": "date"},
				"updated_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}

// Status fields are typed but not enumerated: older documents carry values
// the radar skips rather than rejects.
func solutionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "slug", "group"},
			"properties": bson.M{
				"name":                        nonBlank,
				"slug":                        nonBlank,
				"group":                       nonBlank,
				"category":                    bson.M{"bsonType": "string"},
				"recommend_status":            bson.M{"bsonType": "string"},
				"review_status":               bson.M{"bsonType": "string"},
				"tags":                        bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"recommend_status_updated_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func categoriesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "radar_quadrant"},
			"properties": bson.M{
				"name":           nonBlank,
				"radar_quadrant": bson.M{"bsonType": integer, "minimum": models.NoRadarQuadrant, "maximum": 3},
			},
		},
	}
}

func historySchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"object_type", "object_id", "change_type", "created_at"},
			"properties": bson.M{
				"object_type":    bson.M{"enum": bson.A{models.ObjectGroup, models.ObjectSolution, models.ObjectCategory, models.ObjectSiteConfig}},
				"object_id":      bson.M{"bsonType": "string"},
				"change_type":    bson.M{"enum": bson.A{models.ChangeCreate, models.ChangeUpdate, models.ChangeDelete}},
				"changed_fields": bson.M{"bsonType": "array"},
				"created_at":     bson.M{"bsonType": "date"},
			},
		},
	}
}

func siteConfigSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"id", "key", "active"},
			"properties": bson.M{
				"id":     nonBlank,
				"key":    nonBlank,
				"value":  bson.M{"bsonType": "object"},
				"active": bson.M{"bsonType": "bool"},
			},
		},
	}
}
