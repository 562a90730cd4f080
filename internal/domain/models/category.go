package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoRadarQuadrant keeps a category (and its solutions) off the radar.
const NoRadarQuadrant = -1

// Category groups solutions by kind and places them in a radar quadrant.
type Category struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	RadarQuadrant int                `bson:"radar_quadrant" json:"radar_quadrant"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

// OnRadar reports whether the category is shown on the radar.
func (c Category) OnRadar() bool {
	return c.RadarQuadrant >= 0 && c.RadarQuadrant <= 3
}
