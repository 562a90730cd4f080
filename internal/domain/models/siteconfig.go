package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteConfig is one versioned piece of site configuration (home page
// blocks, footer links, ...). Several configs may share a Key; at most one
// of them is active at a time.
type SiteConfig struct {
	MongoID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	// ID is the public identifier used in URLs.
	ID          string `bson:"id" json:"id"`
	Key         string `bson:"key" json:"key"`
	Value       bson.M `bson:"value" json:"value"`
	Active      bool   `bson:"active" json:"active"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}
