// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		coll   string
		ensure func(context.Context, *mongo.Database) error
	}{
		{"groups", ensureGroups},
		{"solutions", ensureSolutions},
		{"categories", ensureCategories},
		{"history", ensureHistory},
		{"site_config", ensureSiteConfig},
	}
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// desired is the normalized view of one wanted index.
type desired struct {
	model  mongo.IndexModel
	name   string
	unique bool
	sig    string
}

func describe(m mongo.IndexModel) desired {
	d := desired{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = m.Options.Unique != nil && *m.Options.Unique
	}
	return d
}

func (d desired) uniquePtr() *bool { return &d.unique }

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// createErr explains a failed CreateOne. Unique indexes over dirty data get
// an aggregation the operator can paste into a shell to find the culprits.
func createErr(coll *mongo.Collection, d desired, err error) string {
	if isDuplicateKeyErr(err) && d.unique {
		field := strings.SplitN(d.sig, ":", 2)[0]
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present). Example finder:\n"+
			`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
			coll.Name(), d.name, coll.Name(), field)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err)
}

// recreate drops the index called from and creates d in its place.
func recreate(ctx context.Context, coll *mongo.Collection, from string, d desired, start time.Time, why string) error {
	if _, err := coll.Indexes().DropOne(ctx, from); err != nil {
		zap.L().Warn("drop existing index failed",
			zap.String("collection", coll.Name()),
			zap.String("name", from),
			zap.String("reason", why),
			zap.Error(err))
		return fmt.Errorf("%s(%s): %s drop failed: %v", coll.Name(), d.name, why, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		return errors.New(createErr(coll, d, err))
	}
	zap.L().Info("index dropped and recreated",
		zap.String("collection", coll.Name()),
		zap.String("name", d.name),
		zap.String("keys", d.sig),
		zap.String("reason", why),
		zap.Bool("unique", d.unique),
		zap.String("took", time.Since(start).String()))
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique))

		if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
			switch {
			case !sameBoolPtr(d.uniquePtr(), ex.Unique):
				// Options mismatch (e.g., upgrading to unique).
				if err := recreate(ctx, coll, ex.Name, d, start, "options"); err != nil {
					errs = append(errs, err.Error())
				}
			case d.name != "" && ex.Name != d.name:
				// Same keys under another name: align the name.
				if err := recreate(ctx, coll, ex.Name, d, start, "rename"); err != nil {
					errs = append(errs, err.Error())
				}
			default:
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", d.sig),
					zap.String("took", time.Since(start).String()))
			}
			continue
		}

		// No existing index with the same keys: create it.
		created, err := coll.Indexes().CreateOne(ctx, m)
		if err == nil {
			zap.L().Info("index ensured",
				zap.String("collection", coll.Name()),
				zap.String("name", d.name),
				zap.String("created_name", created),
				zap.String("keys", d.sig),
				zap.Bool("unique", d.unique),
				zap.String("took", time.Since(start).String()))
			continue
		}
		if isOptionsConflictErr(err) {
			if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
				if sameBoolPtr(d.uniquePtr(), ex.Unique) {
					zap.L().Info("reusing existing index (post-conflict)",
						zap.String("collection", coll.Name()),
						zap.String("name", ex.Name),
						zap.String("keys", d.sig))
					continue
				}
				if rerr := recreate(ctx, coll, ex.Name, d, start, "post-conflict"); rerr != nil {
					errs = append(errs, rerr.Error())
				}
				continue
			}
		}
		zap.L().Warn("index ensure failed",
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique),
			zap.String("took", time.Since(start).String()),
			zap.Error(err))
		errs = append(errs, createErr(coll, d, err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("groups")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Backstop for the check-then-insert in the group service. Exact,
		// case-sensitive names. De-duplicate existing data before this runs.
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_groups_name"),
		},
		// Default listing order with stable tiebreak.
		{
			Keys:    bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_order__id"),
		},
	})
}

func ensureSolutions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("solutions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_solutions_slug"),
		},
		// Usage counts, delete guard and rename propagation.
		{
			Keys:    bson.D{{Key: "group", Value: 1}},
			Options: options.Index().SetName("idx_solutions_group"),
		},
		// Radar source set.
		{
			Keys:    bson.D{{Key: "review_status", Value: 1}, {Key: "group", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_solutions_review_group__id"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("idx_solutions_category"),
		},
	})
}

func ensureCategories(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("categories")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_categories_name"),
		},
		{
			Keys:    bson.D{{Key: "radar_quadrant", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_categories_quadrant__id"),
		},
	})
}

func ensureHistory(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("history")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Per-object timeline (newest first)
		{
			Keys: bson.D{
				{Key: "object_type", Value: 1},
				{Key: "object_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_history_object_created"),
		},
		// Global feed
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_history_created"),
		},
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_history_created_by"),
		},
	})
}

func ensureSiteConfig(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("site_config")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_site_config_id"),
		},
		{
			Keys:    bson.D{{Key: "key", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_site_config_key_active"),
		},
	})
}
