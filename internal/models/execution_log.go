package models

import "time"

// ExecutionStatus is the overall outcome of one rule evaluation cycle.
type ExecutionStatus string

const (
	ExecStatusSuccess ExecutionStatus = "success"
	ExecStatusFailed  ExecutionStatus = "failed"
	ExecStatusPartial ExecutionStatus = "partial"
	ExecStatusSkipped ExecutionStatus = "skipped"
)

// ExecutionLogEntry records the outcome of one rule evaluation cycle for one
// rule. Entries are append-only and never mutated after creation; they are the
// only audit surface an operator has to diagnose why a rule did or did not
// fire.
type ExecutionLogEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RuleID        uint            `gorm:"index;not null" json:"rule_id"`
	Rule          *AutomationRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
	ExecutedAt    time.Time       `gorm:"index;not null" json:"executed_at"`
	Status        ExecutionStatus `gorm:"size:20;index;not null" json:"status"`
	MatchedCount  int             `json:"matched_count"`
	ExecutedCount int             `json:"executed_count"`
	Details       string          `gorm:"type:text" json:"details"` // JSON list of per-object outcomes
	ErrorMessage  string          `gorm:"size:2000" json:"error_message"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (ExecutionLogEntry) TableName() string { return "execution_log_entries" }
