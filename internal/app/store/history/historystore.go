// internal/app/store/history/historystore.go
package historystore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the history collection.
const Collection = "history"

// Filter narrows a history query. Zero values are ignored.
type Filter struct {
	ObjectType string
	ObjectID   string
	ObjectName string // case-insensitive substring
	ChangeType string
	Username   string // matches created_by or updated_by
	Fields     []string
	Start      *time.Time
	End        *time.Time
	Skip       int64
	Limit      int64
}

// Store manages history records. Records are append-only.
type Store struct {
	c *mongo.Collection
}

// New creates a new history Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Insert appends rec.
func (s *Store) Insert(ctx context.Context, rec models.HistoryRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.UpdatedBy == "" {
		rec.UpdatedBy = rec.CreatedBy
	}
	if rec.ChangedFields == nil {
		rec.ChangedFields = []models.ChangedField{}
	}
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

// Query returns one page of matching records, newest first, and the total
// number of matches.
func (s *Store) Query(ctx context.Context, f Filter) ([]models.HistoryRecord, int64, error) {
	query := buildQuery(f)

	total, err := s.c.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(f.Skip).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	records := []models.HistoryRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}
	for i := range records {
		normalize(&records[i])
	}
	return records, total, nil
}

func buildQuery(f Filter) bson.M {
	query := bson.M{}

	if f.ObjectType != "" {
		query["object_type"] = f.ObjectType
	}
	if f.ObjectID != "" {
		query["object_id"] = f.ObjectID
	}
	if f.ObjectName != "" {
		query["object_name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.ObjectName), Options: "i"}
	}
	if f.ChangeType != "" {
		query["change_type"] = f.ChangeType
	}
	if f.Username != "" {
		query["$or"] = bson.A{
			bson.M{"created_by": f.Username},
			bson.M{"updated_by": f.Username},
		}
	}
	if len(f.Fields) > 0 {
		query["changed_fields.field_name"] = bson.M{"$in": f.Fields}
	}

	// Time range
	if f.Start != nil || f.End != nil {
		timeQuery := bson.M{}
		if f.Start != nil {
			timeQuery["$gte"] = *f.Start
		}
		if f.End != nil {
			timeQuery["$lte"] = *f.End
		}
		query["created_at"] = timeQuery
	}
	return query
}

// normalize fills fields that older records may lack.
func normalize(r *models.HistoryRecord) {
	if r.UpdatedBy == "" {
		r.UpdatedBy = r.CreatedBy
	}
	if r.UpdatedBy == "" {
		r.UpdatedBy = "system"
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	r.ChangeType = strings.ToUpper(r.ChangeType)
	if r.ChangedFields == nil {
		r.ChangedFields = []models.ChangedField{}
	}
}
