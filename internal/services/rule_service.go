package services

import (
	"errors"

	"github.com/huyndq/adpilot/internal/engine"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/pkg/response"
	"gorm.io/gorm"
)

// RuleService manages automation rule definitions. Conditions and actions are
// parse-validated on every write, so a rule the engine would reject as a
// configuration error never enters the table through the API.
type RuleService struct {
	db *gorm.DB
}

func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{db: db}
}

func (s *RuleService) validate(rule *models.AutomationRule) error {
	if !models.ValidScope(rule.Scope) {
		return response.NewBadRequest("unknown scope: " + string(rule.Scope))
	}
	if _, err := engine.ParseConditions(rule.Conditions); err != nil {
		return response.NewBadRequest(err.Error())
	}
	if _, err := engine.ParseActions(rule.Actions); err != nil {
		return response.NewBadRequest(err.Error())
	}
	return nil
}

func (s *RuleService) List(ownerID *uint) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	query := s.db.Model(&models.AutomationRule{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	if err := query.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *RuleService) GetByID(id uint) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("rule not found")
		}
		return nil, err
	}
	return &rule, nil
}

func (s *RuleService) Create(rule *models.AutomationRule) error {
	if err := s.validate(rule); err != nil {
		return err
	}
	return s.db.Create(rule).Error
}

func (s *RuleService) Update(id uint, updates map[string]interface{}) (*models.AutomationRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	merged := *rule
	if v, ok := updates["name"].(string); ok {
		merged.Name = v
	}
	if v, ok := updates["scope"].(string); ok {
		merged.Scope = models.Scope(v)
	}
	if v, ok := updates["conditions"].(string); ok {
		merged.Conditions = v
	}
	if v, ok := updates["actions"].(string); ok {
		merged.Actions = v
	}
	if v, ok := updates["target_label_ids"].(string); ok {
		merged.TargetLabelIDs = v
	}
	if v, ok := updates["is_active"].(bool); ok {
		merged.IsActive = v
	}
	if err := s.validate(&merged); err != nil {
		return nil, err
	}

	if err := s.db.Model(rule).Updates(map[string]interface{}{
		"name":             merged.Name,
		"scope":            merged.Scope,
		"conditions":       merged.Conditions,
		"actions":          merged.Actions,
		"target_label_ids": merged.TargetLabelIDs,
		"is_active":        merged.IsActive,
	}).Error; err != nil {
		return nil, err
	}

	s.db.First(rule, id)
	return rule, nil
}

func (s *RuleService) Toggle(id uint) (*models.AutomationRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	// Update writes the new value back into the bound model, so rule already
	// carries the post-toggle state here.
	if err := s.db.Model(rule).Update("is_active", !rule.IsActive).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) Delete(id uint) error {
	return s.db.Delete(&models.AutomationRule{}, id).Error
}
