package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huyndq/adpilot/internal/middleware"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/internal/services"
	"github.com/huyndq/adpilot/pkg/response"
	"gorm.io/gorm"
)

type RuleHandler struct {
	service *services.RuleService
}

func NewRuleHandler(db *gorm.DB) *RuleHandler {
	return &RuleHandler{service: services.NewRuleService(db)}
}

func (h *RuleHandler) List(c *gin.Context) {
	var ownerID *uint
	if oid := c.Query("owner_id"); oid != "" {
		id, _ := strconv.ParseUint(oid, 10, 32)
		uid := uint(id)
		ownerID = &uid
	}

	rules, err := h.service.List(ownerID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, rules)
}

func (h *RuleHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	rule, rErr := h.service.GetByID(uint(id))
	if rErr != nil {
		response.Error(c, rErr)
		return
	}
	response.Success(c, rule)
}

// createRuleRequest shadows is_active with a pointer so an omitted field can
// be told apart from an explicit false.
type createRuleRequest struct {
	models.AutomationRule
	IsActive *bool `json:"is_active"`
}

func (h *RuleHandler) Create(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rule := req.AutomationRule
	// Active unless the request explicitly disables it.
	rule.IsActive = req.IsActive == nil || *req.IsActive
	if rule.OwnerID == 0 {
		rule.OwnerID = middleware.GetUserID(c)
	}
	if err := h.service.Create(&rule); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

func (h *RuleHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rule, rErr := h.service.Update(uint(id), updates)
	if rErr != nil {
		response.Error(c, rErr)
		return
	}
	response.Success(c, rule)
}

func (h *RuleHandler) Toggle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	rule, rErr := h.service.Toggle(uint(id))
	if rErr != nil {
		response.Error(c, rErr)
		return
	}
	response.Success(c, rule)
}

func (h *RuleHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	if err := h.service.Delete(uint(id)); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "deleted"})
}
