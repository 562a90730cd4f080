// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"errors"
	"fmt"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the categories collection.
const Collection = "categories"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	var c models.Category
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Category{}, fmt.Errorf("category %s: %w", id.Hex(), apperr.ErrNotFound)
		}
		return models.Category{}, err
	}
	return c, nil
}

// FindByName looks up a category by exact name.
func (s *Store) FindByName(ctx context.Context, name string) (models.Category, bool, error) {
	var c models.Category
	err := s.c.FindOne(ctx, bson.M{"name": name}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Category{}, false, nil
	}
	if err != nil {
		return models.Category{}, false, err
	}
	return c, true, nil
}

// FindByNames returns the categories whose names are in names, keyed by name.
func (s *Store) FindByNames(ctx context.Context, names []string) (map[string]models.Category, error) {
	out := make(map[string]models.Category, len(names))
	if len(names) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.Category
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.Name] = c
	}
	return out, nil
}

// FindOnRadar returns categories with a quadrant in [0,3], ordered by
// quadrant then _id.
func (s *Store) FindOnRadar(ctx context.Context) ([]models.Category, error) {
	filter := bson.M{"radar_quadrant": bson.M{"$gte": 0, "$lte": 3}}
	opts := options.Find().SetSort(bson.D{{Key: "radar_quadrant", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, filter, opts)
}

// List returns every category ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Category, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Category, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, c models.Category) (models.Category, error) {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, fmt.Errorf("%w: category %q", apperr.ErrDuplicateName, c.Name)
		}
		return models.Category{}, err
	}
	return c, nil
}

// Update applies set to one category.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return fmt.Errorf("%w: category name", apperr.ErrDuplicateName)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("category %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return nil
}
