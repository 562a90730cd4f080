package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Change types recorded in the history log.
const (
	ChangeCreate = "CREATE"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Object types recorded in the history log.
const (
	ObjectGroup      = "group"
	ObjectSolution   = "solution"
	ObjectCategory   = "category"
	ObjectSiteConfig = "site_config"
)

// ChangedField is one field-level difference inside a HistoryRecord.
type ChangedField struct {
	FieldName string `bson:"field_name" json:"field_name"`
	OldValue  any    `bson:"old_value" json:"old_value"`
	NewValue  any    `bson:"new_value" json:"new_value"`

	StatusChangeJustification string `bson:"status_change_justification,omitempty" json:"status_change_justification,omitempty"`
}

// HistoryRecord is an append-only entry in the history collection.
type HistoryRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ObjectType    string             `bson:"object_type" json:"object_type"`
	ObjectID      string             `bson:"object_id" json:"object_id"`
	ObjectName    string             `bson:"object_name" json:"object_name"`
	ChangeType    string             `bson:"change_type" json:"change_type"`
	ChangedFields []ChangedField     `bson:"changed_fields" json:"changed_fields"`
	ChangeSummary string             `bson:"change_summary,omitempty" json:"change_summary,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	UpdatedBy string    `bson:"updated_by" json:"updated_by"`
}
