package jobs

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"vitrine/internal/projects"
)

// RetentionJob prunes project detail views older than the retention period.
// The per-project counters are not touched.
type RetentionJob struct {
	db            *gorm.DB
	logger        *slog.Logger
	retentionDays int
	now           func() time.Time
}

func NewRetentionJob(db *gorm.DB, logger *slog.Logger, retentionDays int) *RetentionJob {
	return &RetentionJob{
		db:            db,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Run deletes the expired rows. A non-positive retention keeps everything.
func (j *RetentionJob) Run() error {
	if j.retentionDays <= 0 {
		j.logger.Debug("Project view retention disabled")
		return nil
	}

	cutoff := j.now().AddDate(0, 0, -j.retentionDays)
	deleted, err := projects.PruneViews(j.logger, j.db, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.logger.Info("Pruned old project views",
			slog.Int64("deleted_count", deleted),
			slog.Int("retention_days", j.retentionDays))
	}
	return nil
}
