package services

import (
	"time"

	"github.com/huyndq/adpilot/internal/models"
	"gorm.io/gorm"
)

// RevertService exposes the pending revert table to the UI. Mutation happens
// only through the engine's claim protocol; this service reads and counts.
type RevertService struct {
	db *gorm.DB
}

func NewRevertService(db *gorm.DB) *RevertService {
	return &RevertService{db: db}
}

type RevertListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	RuleID   uint   `form:"rule_id"`
	Status   string `form:"status"`
}

type RevertListResponse struct {
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Items    []models.PendingRevert `json:"items"`
}

func (s *RevertService) List(req *RevertListRequest) (*RevertListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.PendingRevert{})
	if req.RuleID != 0 {
		query = query.Where("rule_id = ?", req.RuleID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var reverts []models.PendingRevert
	err := query.Order("due_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&reverts).Error
	if err != nil {
		return nil, err
	}

	return &RevertListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    reverts,
	}, nil
}

func (s *RevertService) GetByID(id string) (*models.PendingRevert, error) {
	var revert models.PendingRevert
	if err := s.db.First(&revert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &revert, nil
}

// DueCount returns how many pending reverts are at or past their due time.
// Used by the dashboard to surface a stalled revert cycle.
func (s *RevertService) DueCount(now time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.PendingRevert{}).
		Where("status = ? AND due_at <= ?", models.RevertStatusPending, now).
		Count(&count).Error
	return count, err
}
