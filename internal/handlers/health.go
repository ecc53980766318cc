package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/internal/services"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// A due pending revert means the revert cycle has not kept up.
	var dueReverts int64
	models.GetDB().Model(&models.PendingRevert{}).
		Where("status = ? AND due_at <= ?", models.RevertStatusPending, time.Now()).
		Count(&dueReverts)
	if dueReverts > 0 {
		overall = "degraded"
	}

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "adpilot",
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"due_reverts": dueReverts,
		},
	})
}
