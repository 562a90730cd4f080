package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateGroup inserts a group with the given name and order.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, order int) models.Group {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	g := models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: "Group for " + name,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   "fixture",
		UpdatedBy:   "fixture",
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateCategory inserts a category placed in quadrant q (-1 for off-radar).
func (f *Fixtures) CreateCategory(ctx context.Context, name string, q int) models.Category {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	c := models.Category{
		ID:            primitive.NewObjectID(),
		Name:          name,
		RadarQuadrant: q,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("categories").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test category: %v", err)
	}
	return c
}

// SolutionOpt customizes a fixture solution before insert.
type SolutionOpt func(*models.Solution)

// Approved marks the solution APPROVED.
func Approved() SolutionOpt {
	return func(s *models.Solution) { s.ReviewStatus = models.ReviewApproved }
}

// InCategory sets the solution's category name.
func InCategory(name string) SolutionOpt {
	return func(s *models.Solution) { s.Category = name }
}

// WithRecommend sets the recommend status.
func WithRecommend(status string) SolutionOpt {
	return func(s *models.Solution) { s.RecommendStatus = status }
}

// CreatedAt overrides the creation time.
func CreatedAt(at time.Time) SolutionOpt {
	return func(s *models.Solution) { s.CreatedAt = at; s.UpdatedAt = at }
}

// CreateSolution inserts a solution referencing group by name. Defaults:
// PENDING review, ASSESS recommendation, slug equal to the name.
func (f *Fixtures) CreateSolution(ctx context.Context, name, group string, opts ...SolutionOpt) models.Solution {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	s := models.Solution{
		ID:              primitive.NewObjectID(),
		Name:            name,
		Slug:            name,
		Group:           group,
		RecommendStatus: models.RecommendAssess,
		ReviewStatus:    models.ReviewPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       "fixture",
		UpdatedBy:       "fixture",
	}
	for _, o := range opts {
		o(&s)
	}
	if _, err := f.db.Collection("solutions").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("failed to create test solution: %v", err)
	}
	return s
}
