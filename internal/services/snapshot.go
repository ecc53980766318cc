package services

import (
	"context"
	"errors"

	"github.com/huyndq/adpilot/internal/engine"
	"github.com/huyndq/adpilot/internal/models"
	"gorm.io/gorm"
)

// SnapshotService reads the metric snapshot and label tables the external
// sync job maintains. It implements engine.MetricSource and
// engine.LabelResolver; the engine never writes these tables.
type SnapshotService struct {
	db *gorm.DB
}

func NewSnapshotService(db *gorm.DB) *SnapshotService {
	return &SnapshotService{db: db}
}

func (s *SnapshotService) GetSnapshot(ctx context.Context, objectID string, level models.Scope, date string) (*models.MetricSnapshot, error) {
	var snap models.MetricSnapshot
	err := s.db.WithContext(ctx).
		Where("object_id = ? AND level = ? AND date = ?", objectID, level, date).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, engine.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SnapshotService) ListObjects(ctx context.Context, ownerID uint, level models.Scope, date string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.MetricSnapshot{}).
		Where("owner_id = ? AND level = ? AND date = ?", ownerID, level, date).
		Distinct().Pluck("object_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SnapshotService) ResolveLabelObjects(ctx context.Context, labelIDs []string, level models.Scope) ([]string, error) {
	if len(labelIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.LabelAssignment{}).
		Where("label_id IN ? AND object_type = ?", labelIDs, level).
		Distinct().Pluck("object_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
