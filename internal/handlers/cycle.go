package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huyndq/adpilot/internal/services"
	"github.com/huyndq/adpilot/pkg/response"
)

// CycleHandler lets operators trigger an engine cycle outside the schedule.
// The run itself still goes through the task queue and the lease lock.
type CycleHandler struct {
	queue services.TaskQueue
}

func NewCycleHandler(queue services.TaskQueue) *CycleHandler {
	return &CycleHandler{queue: queue}
}

// RunEvaluation enqueues a rule evaluation cycle.
// POST /api/cycles/evaluate
func (h *CycleHandler) RunEvaluation(c *gin.Context) {
	task := services.CycleTask{Kind: services.CycleKindEvaluate}
	if tid := c.Query("tenant_id"); tid != "" {
		id, err := strconv.ParseUint(tid, 10, 32)
		if err != nil {
			response.BadRequest(c, "invalid tenant_id")
			return
		}
		uid := uint(id)
		task.TenantID = &uid
	}

	if err := h.queue.Enqueue(&task); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "evaluation cycle enqueued"})
}

// RunRevert enqueues a revert cycle.
// POST /api/cycles/revert
func (h *CycleHandler) RunRevert(c *gin.Context) {
	task := services.CycleTask{Kind: services.CycleKindRevert}
	if err := h.queue.Enqueue(&task); err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "revert cycle enqueued"})
}
