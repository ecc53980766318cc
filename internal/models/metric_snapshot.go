package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricSnapshot is the latest known performance record for one object on one
// reporting day. Rows are written by the external sync job; the engine only
// reads them.
type MetricSnapshot struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ObjectID        string          `gorm:"uniqueIndex:idx_object_date;size:100;not null" json:"object_id"`
	Level           Scope           `gorm:"size:20;index;not null" json:"level"`
	OwnerID         uint            `gorm:"index" json:"owner_id"`
	Spend           decimal.Decimal `gorm:"type:decimal(20,4)" json:"spend"`
	Results         int64           `json:"results"`
	Impressions     int64           `json:"impressions"`
	Clicks          int64           `json:"clicks"`
	DailyBudget     decimal.Decimal `gorm:"type:decimal(20,4)" json:"daily_budget"`
	Status          string          `gorm:"size:50" json:"status"`
	EffectiveStatus string          `gorm:"size:50" json:"effective_status"`
	Date            string          `gorm:"uniqueIndex:idx_object_date;size:10;not null" json:"date"` // YYYY-MM-DD
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (MetricSnapshot) TableName() string { return "metric_snapshots" }

// Metric returns the named numeric metric. The boolean is false for unknown
// or non-numeric fields, which the condition evaluator treats as a failed
// condition.
func (m *MetricSnapshot) Metric(name string) (decimal.Decimal, bool) {
	switch name {
	case "spend":
		return m.Spend, true
	case "results":
		return decimal.NewFromInt(m.Results), true
	case "impressions":
		return decimal.NewFromInt(m.Impressions), true
	case "clicks":
		return decimal.NewFromInt(m.Clicks), true
	case "daily_budget":
		return m.DailyBudget, true
	case "cost_per_result":
		if m.Results == 0 {
			return decimal.Zero, false
		}
		return m.Spend.Div(decimal.NewFromInt(m.Results)), true
	}
	return decimal.Zero, false
}
