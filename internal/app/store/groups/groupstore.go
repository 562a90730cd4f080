// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the groups collection.
const Collection = "groups"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Sort orders a listing by one field. _id always breaks ties.
type Sort struct {
	Field string
	Desc  bool
}

// Fields is a partial update. Nil pointers are left untouched.
type Fields struct {
	Name        *string
	Description *string
	Order       *int
	UpdatedAt   time.Time
	UpdatedBy   string
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, fmt.Errorf("group %s: %w", id.Hex(), apperr.ErrNotFound)
		}
		return models.Group{}, err
	}
	return g, nil
}

// FindByName looks up a group by exact (case-sensitive) name.
func (s *Store) FindByName(ctx context.Context, name string) (models.Group, bool, error) {
	var g models.Group
	err := s.c.FindOne(ctx, bson.M{"name": name}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, false, nil
	}
	if err != nil {
		return models.Group{}, false, err
	}
	return g, true, nil
}

// Insert stores g. The caller stamps the audit fields. A unique-index
// violation on name is reported as apperr.ErrDuplicateName.
func (s *Store) Insert(ctx context.Context, g models.Group) (models.Group, error) {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, fmt.Errorf("%w: group %q", apperr.ErrDuplicateName, g.Name)
		}
		return models.Group{}, err
	}
	return g, nil
}

// List returns one page of groups.
func (s *Store) List(ctx context.Context, sort Sort, skip, limit int64) ([]models.Group, error) {
	dir := 1
	if sort.Desc {
		dir = -1
	}
	order := bson.D{{Key: sort.Field, Value: dir}}
	if sort.Field != "_id" {
		order = append(order, bson.E{Key: "_id", Value: 1})
	}
	opts := options.Find().SetSort(order).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// Names returns every group name.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	vals, err := s.c.Distinct(ctx, "name", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if n, ok := v.(string); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// Update applies f to the group. apperr.ErrNotFound when no group matched.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, f Fields) error {
	set := bson.M{
		"updated_at": f.UpdatedAt,
		"updated_by": f.UpdatedBy,
	}
	if f.Name != nil {
		set["name"] = *f.Name
	}
	if f.Description != nil {
		set["description"] = *f.Description
	}
	if f.Order != nil {
		set["order"] = *f.Order
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return fmt.Errorf("%w: group name", apperr.ErrDuplicateName)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("group %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return nil
}

// Delete removes a group by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
