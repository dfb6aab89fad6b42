package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Status is the publication state of a project.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// ErrNotFound is returned when no published project matches a lookup.
var ErrNotFound = errors.New("project not found")

type Project struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"not null" json:"description"`
	Content     *string   `json:"content"`
	DemoURL     *string   `gorm:"column:demo_url" json:"demoUrl"`
	GithubURL   *string   `gorm:"column:github_url" json:"githubUrl"`
	Category    string    `gorm:"index;not null" json:"category"`
	Status      Status    `gorm:"index;not null;default:DRAFT" json:"status"`
	Featured    bool      `gorm:"not null;default:false" json:"featured"`
	Order       int       `gorm:"column:order;not null;default:0" json:"order"`
	Views       int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return nil
}

// ProjectView is one public detail fetch of a project. Nothing aggregates it;
// it is kept for later analysis and pruned by retention.
type ProjectView struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string    `gorm:"index;not null;size:36" json:"projectId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (ProjectView) TableName() string {
	return "project_views"
}

// BeforeCreate assigns a UUID.
func (v *ProjectView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return nil
}

// ListPublished returns published projects, featured first, then by display order and recency.
func ListPublished(ctx context.Context, db *gorm.DB) ([]Project, error) {
	var projects []Project
	err := db.WithContext(ctx).
		Where("status = ?", StatusPublished).
		Order("featured DESC").
		Order(`"order" ASC`).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list published projects: %w", err)
	}
	return projects, nil
}

// FindPublishedBySlug returns the published project with slug, or ErrNotFound.
func FindPublishedBySlug(ctx context.Context, db *gorm.DB, slug string) (*Project, error) {
	var project Project
	err := db.WithContext(ctx).Where("slug = ?", slug).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project %q: %w", slug, err)
	}
	if project.Status != StatusPublished {
		return nil, ErrNotFound
	}
	return &project, nil
}

// RecordView increments the counter of project and appends a ProjectView in one write transaction.
// The returned project carries the updated counter.
func RecordView(logger *slog.Logger, db *gorm.DB, project *Project) (*Project, error) {
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Project{}).
			Where("id = ?", project.ID).
			UpdateColumn("views", gorm.Expr("views + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&ProjectView{ProjectID: project.ID}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record view for project %s: %w", project.ID, err)
	}

	updated := *project
	updated.Views++
	return &updated, nil
}

// PruneViews deletes project views older than cutoff and returns how many were removed.
func PruneViews(logger *slog.Logger, db *gorm.DB, cutoff time.Time) (int64, error) {
	var deleted int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Where("created_at < ?", cutoff.UTC()).Delete(&ProjectView{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune project views: %w", err)
	}
	return deleted, nil
}
