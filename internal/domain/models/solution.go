package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recommend statuses. The order matches the radar rings.
const (
	RecommendAdopt  = "ADOPT"
	RecommendTrial  = "TRIAL"
	RecommendAssess = "ASSESS"
	RecommendHold   = "HOLD"
)

// Review statuses. Only APPROVED solutions appear on the radar.
const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// Solution is a catalog entry. Group and Category hold the *names* of the
// referenced records; nothing in the database enforces that they exist.
type Solution struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Slug  string             `bson:"slug" json:"slug"`
	Group string             `bson:"group" json:"group"`

	Category string `bson:"category,omitempty" json:"category,omitempty"`

	Description string   `bson:"description" json:"description"`
	Brief       string   `bson:"brief" json:"brief"`
	Department  string   `bson:"department,omitempty" json:"department,omitempty"`
	Team        string   `bson:"team,omitempty" json:"team,omitempty"`
	TeamEmail   string   `bson:"team_email,omitempty" json:"team_email,omitempty"`
	Stage       string   `bson:"stage,omitempty" json:"stage,omitempty"`
	Tags        []string `bson:"tags,omitempty" json:"tags,omitempty"`

	RecommendStatus string `bson:"recommend_status" json:"recommend_status"`
	ReviewStatus    string `bson:"review_status" json:"review_status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`

	RecommendStatusUpdatedAt *time.Time `bson:"recommend_status_updated_at,omitempty" json:"recommend_status_updated_at,omitempty"`

	// Older documents carry the misspelled field name.
	LegacyRecommendStatusUpdatedAt *time.Time `bson:"recommen_status_updated_at,omitempty" json:"-"`
}

// StatusChangedAt returns when the recommend status last changed, if known.
func (s Solution) StatusChangedAt() *time.Time {
	if s.RecommendStatusUpdatedAt != nil {
		return s.RecommendStatusUpdatedAt
	}
	return s.LegacyRecommendStatusUpdatedAt
}

// IsRecommendStatus reports whether v is one of the four recommend statuses.
func IsRecommendStatus(v string) bool {
	switch v {
	case RecommendAdopt, RecommendTrial, RecommendAssess, RecommendHold:
		return true
	}
	return false
}

// IsReviewStatus reports whether v is a known review status.
func IsReviewStatus(v string) bool {
	switch v {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}
