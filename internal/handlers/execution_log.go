package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huyndq/adpilot/internal/services"
	"github.com/huyndq/adpilot/pkg/response"
	"gorm.io/gorm"
)

type ExecutionLogHandler struct {
	service *services.ExecutionLogService
}

func NewExecutionLogHandler(db *gorm.DB) *ExecutionLogHandler {
	return &ExecutionLogHandler{service: services.NewExecutionLogService(db)}
}

func (h *ExecutionLogHandler) List(c *gin.Context) {
	var req services.ExecutionLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.List(&req)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, resp)
}

func (h *ExecutionLogHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}

	entry, gErr := h.service.GetByID(uint(id))
	if gErr != nil {
		response.NotFound(c, "execution log entry not found")
		return
	}
	response.Success(c, entry)
}
