package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huyndq/adpilot/internal/handlers"
	"github.com/huyndq/adpilot/internal/middleware"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Manual cycle triggers are cheap to request but expensive to run
	cycleLimiter := middleware.NewRateLimiter(1, 5)

	db := models.GetDB()

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(db)
			protected.GET("/dashboard/stats", dashboardHandler.GetStats)

			// Automation rules
			ruleHandler := handlers.NewRuleHandler(db)
			protected.GET("/rules", ruleHandler.List)
			protected.GET("/rules/:id", ruleHandler.GetByID)
			protected.POST("/rules", ruleHandler.Create)
			protected.PUT("/rules/:id", ruleHandler.Update)
			protected.POST("/rules/:id/toggle", ruleHandler.Toggle)
			protected.DELETE("/rules/:id", ruleHandler.Delete)

			// Execution logs
			logHandler := handlers.NewExecutionLogHandler(db)
			protected.GET("/execution-logs", logHandler.List)
			protected.GET("/execution-logs/:id", logHandler.GetByID)

			// Pending reverts
			revertHandler := handlers.NewRevertHandler(db, svc.engine)
			protected.GET("/pending-reverts", revertHandler.List)
			protected.GET("/pending-reverts/:id", revertHandler.GetByID)
			protected.POST("/pending-reverts/:id/run", revertHandler.Run)

			// Manual cycle triggers (rate limited)
			cycleHandler := handlers.NewCycleHandler(svc.taskQueue)
			cycles := protected.Group("/cycles", cycleLimiter.Middleware())
			{
				cycles.POST("/evaluate", cycleHandler.RunEvaluation)
				cycles.POST("/revert", cycleHandler.RunRevert)
			}
		}
	}
}
