// Package internal wires the application together
package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karloscodes/cartridge"

	"vitrine/internal/config"
	"vitrine/internal/database"
	"vitrine/internal/jobs"
	"vitrine/internal/pkg/geoip"
	"vitrine/internal/visits"
)

// Application wraps cartridge.Application with the application's components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Locator   *geoip.Locator
	Recorder  *visits.Recorder
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Shared by the visit recorder and the GeoLite updater
	locator := geoip.NewLocator(cfg.GeoDBPath, logger)

	recorder := NewVisitRecorder(cfg, dbManager.GetConnection(), logger, locator)

	scheduler := jobs.NewScheduler(dbManager, logger, cfg, locator)

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		RouteMountFunc: func(srv *cartridge.Server) {
			MountRoutesWithRecorder(srv, recorder)
		},
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Locator:     locator,
		Recorder:    recorder,
	}, nil
}

// Shutdown stops the workers and the server, then waits for visit inserts
// still in flight so none of them outlive the database.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.Application.Shutdown(ctx)
	a.drainVisits(ctx)
	return err
}

func (a *Application) drainVisits(ctx context.Context) {
	if a.Recorder == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		a.Recorder.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.Logger.Warn("Shutdown timed out with visits still being recorded", slog.Any("error", ctx.Err()))
	}
}
