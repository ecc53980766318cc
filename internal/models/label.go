package models

import "time"

// Label is a tenant-defined tag for grouping campaign objects. Labels and
// their assignments are managed by the external UI; the engine treats them as
// a pure lookup.
type Label struct {
	ID        string    `gorm:"primaryKey;size:100" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	OwnerID   uint      `gorm:"index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Label) TableName() string { return "labels" }

// LabelAssignment links a label to a campaign object (many-to-many).
type LabelAssignment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LabelID    string    `gorm:"uniqueIndex:idx_label_object;size:100;not null" json:"label_id"`
	ObjectID   string    `gorm:"uniqueIndex:idx_label_object;size:100;not null" json:"object_id"`
	ObjectType Scope     `gorm:"size:20;index" json:"object_type"`
	CreatedAt  time.Time `json:"created_at"`
}

func (LabelAssignment) TableName() string { return "label_assignments" }
