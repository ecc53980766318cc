package services

import (
	"time"

	"github.com/huyndq/adpilot/internal/models"
	"gorm.io/gorm"
)

// DashboardService aggregates the counters the overview page shows.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStats struct {
	ActiveRules     int64                     `json:"active_rules"`
	TotalRules      int64                     `json:"total_rules"`
	PendingReverts  int64                     `json:"pending_reverts"`
	DueReverts      int64                     `json:"due_reverts"` // pending and past due: nonzero means the revert cycle is behind
	FailedReverts   int64                     `json:"failed_reverts"`
	CyclesLast24h   int64                     `json:"cycles_last_24h"`
	FailuresLast24h int64                     `json:"failures_last_24h"`
	LastExecution   *models.ExecutionLogEntry `json:"last_execution,omitempty"`
}

func (s *DashboardService) GetStats() (*DashboardStats, error) {
	stats := &DashboardStats{}
	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)

	s.db.Model(&models.AutomationRule{}).Where("is_active = ?", true).Count(&stats.ActiveRules)
	s.db.Model(&models.AutomationRule{}).Count(&stats.TotalRules)
	s.db.Model(&models.PendingRevert{}).Where("status = ?", models.RevertStatusPending).Count(&stats.PendingReverts)
	s.db.Model(&models.PendingRevert{}).Where("status = ? AND due_at <= ?", models.RevertStatusPending, now).Count(&stats.DueReverts)
	s.db.Model(&models.PendingRevert{}).Where("status = ?", models.RevertStatusFailed).Count(&stats.FailedReverts)
	s.db.Model(&models.ExecutionLogEntry{}).Where("executed_at >= ?", dayAgo).Count(&stats.CyclesLast24h)
	s.db.Model(&models.ExecutionLogEntry{}).Where("executed_at >= ? AND status = ?", dayAgo, models.ExecStatusFailed).Count(&stats.FailuresLast24h)

	var last models.ExecutionLogEntry
	if err := s.db.Order("executed_at DESC").First(&last).Error; err == nil {
		stats.LastExecution = &last
	}

	return stats, nil
}
