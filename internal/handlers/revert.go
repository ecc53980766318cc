package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huyndq/adpilot/internal/engine"
	"github.com/huyndq/adpilot/internal/services"
	"github.com/huyndq/adpilot/pkg/response"
	"gorm.io/gorm"
)

type RevertHandler struct {
	service *services.RevertService
	engine  *engine.Engine
}

func NewRevertHandler(db *gorm.DB, eng *engine.Engine) *RevertHandler {
	return &RevertHandler{service: services.NewRevertService(db), engine: eng}
}

func (h *RevertHandler) List(c *gin.Context) {
	var req services.RevertListRequest
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

func (h *RevertHandler) GetByID(c *gin.Context) {
	revert, err := h.service.GetByID(c.Param("id"))
	if err != nil {
		response.NotFound(c, "pending revert not found")
		return
	}
	response.Success(c, revert)
}

// Run executes one pending revert immediately, ahead of its due time.
// POST /api/pending-reverts/:id/run
func (h *RevertHandler) Run(c *gin.Context) {
	outcome, err := h.engine.ExecuteRevertNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if engine.KindOf(err) == engine.ErrKindConfiguration {
			response.BadRequest(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, outcome)
}
