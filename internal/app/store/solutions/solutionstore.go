// internal/app/store/solutions/solutionstore.go
package solutionstore

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

// Collection is the name of the solutions collection.
const Collection = "solutions"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Insert stores sol. A duplicate slug is reported as apperr.ErrDuplicateName.
func (s *Store) Insert(ctx context.Context, sol models.Solution) (models.Solution, error) {
	if sol.ID.IsZero() {
		sol.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, sol); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Solution{}, fmt.Errorf("%w: solution %q", apperr.ErrDuplicateName, sol.Slug)
		}
		return models.Solution{}, err
	}
	return sol, nil
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Solution, error) {
	var sol models.Solution
	if err := s.c.FindOne(ctx, bson.M{"slug": slug}).Decode(&sol); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Solution{}, fmt.Errorf("solution %q: %w", slug, apperr.ErrNotFound)
		}
		return models.Solution{}, err
	}
	return sol, nil
}

// SlugExists reports whether any solution uses slug.
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	return n > 0, err
}

// Update applies a $set (and optional $unset) to one solution.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset ...string) error {
	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		u := bson.M{}
		for _, f := range unset {
			u[f] = ""
		}
		upd["$unset"] = u
	}
	res, err := s.c.UpdateByID(ctx, id, upd)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return fmt.Errorf("%w: solution slug", apperr.ErrDuplicateName)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("solution %s: %w", id.Hex(), apperr.ErrNotFound)
	}
	return nil
}

// CountByGroups returns, for each name in names, how many solutions
// reference it. Names with no solutions are absent from the map.
func (s *Store) CountByGroups(ctx context.Context, names []string) (map[string]int64, error) {
	if len(names) == 0 {
		return map[string]int64{}, nil
	}
	return s.countBy(ctx, "group", bson.M{"group": bson.M{"$in": names}})
}

// GroupRefCounts returns the number of solutions per distinct group value.
func (s *Store) GroupRefCounts(ctx context.Context) (map[string]int64, error) {
	return s.countBy(ctx, "group", bson.M{})
}

func (s *Store) countBy(ctx context.Context, field string, match bson.M) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID    *string `bson:"_id"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		if r.ID != nil {
			out[*r.ID] = r.Count
		}
	}
	return out, nil
}

// ExistsByGroup reports whether any solution references group name.
func (s *Store) ExistsByGroup(ctx context.Context, name string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"group": name}, options.Count().SetLimit(1))
	return n > 0, err
}

// RenameGroup rewrites solutions.group from old to new, stamping the audit
// fields. Returns the number of solutions modified.
func (s *Store) RenameGroup(ctx context.Context, old, new, actor string, at time.Time) (int64, error) {
	return s.renameRef(ctx, "group", old, new, actor, at)
}

// UndoGroupRename moves back the solutions a RenameGroup call with the
// same actor and timestamp moved to new. Solutions that already referenced
// new are left alone.
func (s *Store) UndoGroupRename(ctx context.Context, old, new, actor string, at time.Time) (int64, error) {
	return s.undoRenameRef(ctx, "group", old, new, actor, at)
}

// RenameCategory rewrites solutions.category from old to new.
func (s *Store) RenameCategory(ctx context.Context, old, new, actor string, at time.Time) (int64, error) {
	return s.renameRef(ctx, "category", old, new, actor, at)
}

// UndoCategoryRename is UndoGroupRename for solutions.category.
func (s *Store) UndoCategoryRename(ctx context.Context, old, new, actor string, at time.Time) (int64, error) {
	return s.undoRenameRef(ctx, "category", old, new, actor, at)
}

func (s *Store) undoRenameRef(ctx context.Context, field, old, new, actor string, at time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{field: new, "updated_at": at, "updated_by": actor},
		bson.M{"$set": bson.M{field: old}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) renameRef(ctx context.Context, field, old, new, actor string, at time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{field: old},
		bson.M{"$set": bson.M{field: new, "updated_at": at, "updated_by": actor}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FindApproved returns APPROVED solutions, optionally restricted to one
// group, in _id order.
func (s *Store) FindApproved(ctx context.Context, group string) ([]models.Solution, error) {
	filter := bson.M{"review_status": models.ReviewApproved}
	if group != "" {
		filter["group"] = group
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Solution{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
