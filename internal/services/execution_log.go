package services

import (
	"github.com/huyndq/adpilot/internal/models"
	"gorm.io/gorm"
)

// ExecutionLogService exposes the append-only execution history to the UI.
// Entries are only ever written by the engine; this service reads.
type ExecutionLogService struct {
	db *gorm.DB
}

func NewExecutionLogService(db *gorm.DB) *ExecutionLogService {
	return &ExecutionLogService{db: db}
}

type ExecutionLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	RuleID    uint   `form:"rule_id"`
	Status    string `form:"status"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type ExecutionLogListResponse struct {
	Total    int64                      `json:"total"`
	Page     int                        `json:"page"`
	PageSize int                        `json:"page_size"`
	Items    []models.ExecutionLogEntry `json:"items"`
}

func (s *ExecutionLogService) List(req *ExecutionLogListRequest) (*ExecutionLogListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.ExecutionLogEntry{})

	if req.RuleID != 0 {
		query = query.Where("rule_id = ?", req.RuleID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.StartDate != "" {
		query = query.Where("executed_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("executed_at <= ?", req.EndDate+" 23:59:59")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var entries []models.ExecutionLogEntry
	err := query.Preload("Rule").
		Order("executed_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return &ExecutionLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    entries,
	}, nil
}

func (s *ExecutionLogService) GetByID(id uint) (*models.ExecutionLogEntry, error) {
	var entry models.ExecutionLogEntry
	if err := s.db.Preload("Rule").First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
