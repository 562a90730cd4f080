// internal/app/store/siteconfig/siteconfigstore.go
package siteconfigstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the site configuration collection.
const Collection = "site_config"

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Key         *string
	Value       bson.M
	Active      *bool
	Description *string
}

func (p Patch) empty() bool {
	return p.Key == nil && p.Value == nil && p.Active == nil && p.Description == nil
}

type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection), now: func() time.Time { return time.Now().UTC() }}
}

// List returns one page of configs in insertion order, plus the total.
func (s *Store) List(ctx context.Context, skip, limit int64) ([]models.SiteConfig, int64, error) {
	return s.page(ctx, bson.M{}, skip, limit)
}

// ByKey returns the configs stored under key, optionally active ones only.
func (s *Store) ByKey(ctx context.Context, key string, activeOnly bool, skip, limit int64) ([]models.SiteConfig, int64, error) {
	filter := bson.M{"key": key}
	if activeOnly {
		filter["active"] = true
	}
	return s.page(ctx, filter, skip, limit)
}

func (s *Store) page(ctx context.Context, filter bson.M, skip, limit int64) ([]models.SiteConfig, int64, error) {
	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.SiteConfig{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID looks up a config by its public id.
func (s *Store) GetByID(ctx context.Context, id string) (models.SiteConfig, error) {
	var sc models.SiteConfig
	if err := s.c.FindOne(ctx, bson.M{"id": id}).Decode(&sc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.SiteConfig{}, fmt.Errorf("site config %s: %w", id, apperr.ErrNotFound)
		}
		return models.SiteConfig{}, err
	}
	return sc, nil
}

// Create stores sc under a new public id. An active config with the same
// key and value is a validation error. Creating an active config
// deactivates the other configs under the same key.
func (s *Store) Create(ctx context.Context, sc models.SiteConfig, actor string) (models.SiteConfig, error) {
	dup, err := s.findActiveValue(ctx, sc.Key, sc.Value)
	if err != nil {
		return models.SiteConfig{}, err
	}
	if dup != "" {
		return models.SiteConfig{}, fmt.Errorf("%w: an active configuration with the same key and value already exists (ID: %s)", apperr.ErrValidation, dup)
	}

	now := s.now()
	if sc.Active {
		if _, err := s.deactivate(ctx, sc.Key, "", actor, now); err != nil {
			return models.SiteConfig{}, err
		}
	}

	sc.MongoID = primitive.NewObjectID()
	sc.ID = uuid.NewString()
	if sc.Value == nil {
		sc.Value = bson.M{}
	}
	sc.CreatedAt, sc.UpdatedAt = now, now
	sc.CreatedBy, sc.UpdatedBy = actor, actor
	if _, err := s.c.InsertOne(ctx, sc); err != nil {
		return models.SiteConfig{}, err
	}
	return sc, nil
}

// Update applies p to the config with public id. Activating a config
// deactivates its siblings under the same key.
func (s *Store) Update(ctx context.Context, id string, p Patch, actor string) (models.SiteConfig, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return models.SiteConfig{}, err
	}
	if p.empty() {
		return current, nil
	}

	now := s.now()
	if p.Active != nil && *p.Active {
		key := current.Key
		if p.Key != nil {
			key = *p.Key
		}
		if _, err := s.deactivate(ctx, key, id, actor, now); err != nil {
			return models.SiteConfig{}, err
		}
	}

	set := bson.M{"updated_at": now, "updated_by": actor}
	if p.Key != nil {
		set["key"] = *p.Key
	}
	if p.Value != nil {
		set["value"] = p.Value
	}
	if p.Active != nil {
		set["active"] = *p.Active
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}

	var out models.SiteConfig
	err = s.c.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SiteConfig{}, fmt.Errorf("site config %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.SiteConfig{}, err
	}
	return out, nil
}

// Delete removes a config. Returns false when nothing matched.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// Reset is reserved for restoring the shipped defaults.
func (s *Store) Reset(context.Context, string) error {
	return fmt.Errorf("reset site configuration: %w", apperr.ErrNotImplemented)
}

func (s *Store) deactivate(ctx context.Context, key, exceptID, actor string, at time.Time) (int64, error) {
	filter := bson.M{"key": key, "active": true}
	if exceptID != "" {
		filter["id"] = bson.M{"$ne": exceptID}
	}
	res, err := s.c.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"active": false, "updated_at": at, "updated_by": actor}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// findActiveValue returns the public id of an active config under key whose
// value equals v, or "". Field order and numeric widths do not matter.
func (s *Store) findActiveValue(ctx context.Context, key string, v bson.M) (string, error) {
	cur, err := s.c.Find(ctx, bson.M{"key": key, "active": true})
	if err != nil {
		return "", err
	}
	defer cur.Close(ctx)

	var rows []models.SiteConfig
	if err := cur.All(ctx, &rows); err != nil {
		return "", err
	}
	want := plain(nonNil(v))
	for _, r := range rows {
		if reflect.DeepEqual(plain(nonNil(r.Value)), want) {
			return r.ID, nil
		}
	}
	return "", nil
}

func nonNil(v bson.M) bson.M {
	if v == nil {
		return bson.M{}
	}
	return v
}

// plain converts decoded BSON into maps, slices and float64 numbers.
func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		return plain(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = plain(x)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		return plain([]any(t))
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = plain(x)
		}
		return out
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
