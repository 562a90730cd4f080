// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group organizes solutions on the catalog and the radar.
//
// NOTE:
//   - Solutions reference a group by its Name, not its ID.
//     Renaming a group therefore rewrites solutions.group.
//   - UsageCount is computed on read and never stored.
type Group struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Order       int                `bson:"order" json:"order"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`

	UsageCount int64 `bson:"-" json:"usage_count"`
}

// DefaultGroupName is the group assigned to solutions submitted without one.
const DefaultGroupName = "Default"
