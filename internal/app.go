package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"sitepulse/internal/aggregation"
	"sitepulse/internal/config"
	"sitepulse/internal/database"
	"sitepulse/internal/jobs"
	"sitepulse/internal/projects"
)

// Application wraps cartridge.Application with sitepulse-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // Sitepulse-specific DB manager with migration methods
	Scheduler *jobs.Scheduler
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	// Create logger
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize database manager (sitepulse-specific with migration methods)
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Build the aggregation engine and inject it into the scheduler
	db := dbManager.GetConnection()
	aggregator := aggregation.NewAggregator(db, logger, cfg)
	runner := aggregation.NewRunner(projects.NewRegistry(db), aggregator, logger, cfg)

	scheduler, err := jobs.NewScheduler(runner, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	// Create the cartridge application
	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    MountAppRoutes,
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Scheduler:   scheduler,
	}, nil
}
