package models

import "time"

// RevertStatus is the state of a scheduled inverse action.
type RevertStatus string

const (
	RevertStatusPending    RevertStatus = "pending"
	RevertStatusProcessing RevertStatus = "processing"
	RevertStatusCompleted  RevertStatus = "completed"
	RevertStatusFailed     RevertStatus = "failed"
)

// PendingRevert is a scheduled inverse of an applied action, created at the
// moment an action with auto_revert is executed. The revert cycle claims a
// row by moving it from pending to processing before applying the reversal,
// so two overlapping cycles never act on the same row. Completed and failed
// are terminal; rows are kept for audit and never deleted.
type PendingRevert struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"` // uuid
	RuleID       uint         `gorm:"index;not null" json:"rule_id"`
	ObjectID     string       `gorm:"size:100;not null" json:"object_id"`
	ObjectType   Scope        `gorm:"size:20;not null" json:"object_type"`
	RevertAction string       `gorm:"size:50;not null" json:"revert_action"` // turn_off, turn_on, adjust_budget
	RevertValue  string       `gorm:"size:2000" json:"revert_value"`         // JSON payload, e.g. prior budget
	DueAt        time.Time    `gorm:"index;not null" json:"due_at"`          // normalized to the reference timezone
	Status       RevertStatus `gorm:"size:20;index;default:pending" json:"status"`
	ClaimedBy    string       `gorm:"size:100" json:"claimed_by"`
	ClaimedAt    *time.Time   `json:"claimed_at"`
	ErrorMessage string       `gorm:"size:2000" json:"error_message"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (PendingRevert) TableName() string { return "pending_reverts" }
