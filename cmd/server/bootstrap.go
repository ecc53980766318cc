package main

import (
	"github.com/huyndq/adpilot/internal/config"
	"github.com/huyndq/adpilot/internal/engine"
	"github.com/huyndq/adpilot/internal/handlers"
	"github.com/huyndq/adpilot/internal/models"
	"github.com/huyndq/adpilot/internal/services"
	"github.com/huyndq/adpilot/internal/utils"
	"github.com/huyndq/adpilot/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg       *config.Config
	engine    *engine.Engine
	scheduler *services.CycleScheduler
	taskQueue services.TaskQueue
	worker    *services.Worker

	authHandler *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, engine, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()

	// Engine with its external collaborators
	snapshots := services.NewSnapshotService(db)
	platform := services.NewPlatformService(&cfg.Platform)
	eng, err := engine.New(db, snapshots, snapshots, platform, &cfg.Engine)
	if err != nil {
		logger.Fatalf("Failed to initialize engine: %v", err)
	}

	// Cron scheduler guarded by lease locks
	locks := services.NewSchedulerLockService(db)
	scheduler := services.NewCycleScheduler(eng, locks, &cfg.Engine)
	scheduler.Start()

	// Task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(scheduler.ProcessCycleTask)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(scheduler.ProcessCycleTask)
			worker.Start()
		}
	}

	// Create default admin user
	authHandler := handlers.NewAuthHandler(db, cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:         cfg,
		engine:      eng,
		scheduler:   scheduler,
		taskQueue:   taskQueue,
		worker:      worker,
		authHandler: authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Cycle scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
