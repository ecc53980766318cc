package models

import (
	"time"

	"gorm.io/gorm"
)

// Scope is the object granularity an automation rule applies to.
type Scope string

const (
	ScopeCampaign Scope = "campaign"
	ScopeAdGroup  Scope = "ad_group"
	ScopeAd       Scope = "ad"
)

// ValidScope reports whether s is one of the supported rule scopes.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeCampaign, ScopeAdGroup, ScopeAd:
		return true
	}
	return false
}

// AutomationRule is a tenant-owned automation policy. Conditions and actions
// are stored as JSON and parsed into typed values by the engine package;
// definitions that fail to parse are rejected at the API and reported as
// configuration errors during evaluation.
type AutomationRule struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:200;not null" json:"name"`
	OwnerID  uint   `gorm:"index;not null" json:"owner_id"`
	// No column default on purpose: gorm omits zero-value fields that carry
	// a default tag, which would store a rule created disabled as active.
	IsActive bool   `json:"is_active"`
	Scope    Scope  `gorm:"size:20;not null" json:"scope"`

	// TargetLabelIDs is a JSON array of label IDs. Empty means the rule
	// applies to every object in scope owned by the tenant.
	TargetLabelIDs string `gorm:"size:2000" json:"target_label_ids"`

	Conditions string `gorm:"type:text;not null" json:"conditions"` // JSON: [{metric,operator,value}]
	Actions    string `gorm:"type:text;not null" json:"actions"`    // JSON: [{type,budget_mode,value,auto_revert,...}]

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AutomationRule) TableName() string { return "automation_rules" }
