package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"vitrine/internal/config"
	"vitrine/internal/pkg/geoip"
)

const geoLiteCheckInterval = 24 * time.Hour

// DBConnector hands out the shared database connection.
type DBConnector interface {
	GetConnection() *gorm.DB
}

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       *config.Config
	mu        sync.Mutex
	isRunning bool
	wg        sync.WaitGroup

	// Serializes job executions
	processingMutex sync.Mutex
	isProcessing    bool

	retention *RetentionJob
	geoLite   *GeoLiteUpdaterJob
}

// NewScheduler creates a scheduler. The locator is reloaded after each GeoLite download.
func NewScheduler(dbManager DBConnector, logger *slog.Logger, cfg *config.Config, locator *geoip.Locator) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	db := dbManager.GetConnection()

	return &Scheduler{
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		retention: NewRetentionJob(db, logger, cfg.ProjectViewsRetentionDays),
		geoLite:   NewGeoLiteUpdaterJob(db, logger, locator, cfg.GeoLiteLicenseKey),
	}
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}
	s.isRunning = true

	interval := time.Duration(s.cfg.JobIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	s.every("project_view_retention", interval, s.retention.Run)
	if s.geoLite.Configured() {
		s.every("geolite_updater", geoLiteCheckInterval, s.geoLite.Run)
	} else {
		s.logger.Info("GeoLite updates disabled, no license key configured")
	}

	s.logger.Info("Background jobs started")
	return nil
}

// every runs job now and then on each tick until Stop.
func (s *Scheduler) every(name string, interval time.Duration, job func() error) {
	s.logger.Info("Starting job", slog.String("job", name), slog.Duration("interval", interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.executeJobSafely(name, job)
		for {
			select {
			case <-ticker.C:
				s.executeJobSafely(name, job)
			case <-s.ctx.Done():
				s.logger.Info("Job stopped", slog.String("job", name))
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Stopping background jobs...")
	s.cancel()
	s.wg.Wait()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
