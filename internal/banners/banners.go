package banners

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Banner struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Title     string     `gorm:"not null" json:"title"`
	Subtitle  *string    `json:"subtitle"`
	Image     string     `gorm:"not null" json:"image"`
	Link      *string    `json:"link"`
	Position  string     `gorm:"index;not null;default:home" json:"position"`
	Active    bool       `gorm:"index;not null" json:"active"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Order     int        `gorm:"column:order;not null;default:0" json:"order"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID.
func (b *Banner) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.CreatedAt = b.CreatedAt.UTC()
	if b.StartDate != nil {
		start := b.StartDate.UTC()
		b.StartDate = &start
	}
	if b.EndDate != nil {
		end := b.EndDate.UTC()
		b.EndDate = &end
	}
	return nil
}

// ListActive returns banners that are switched on and whose schedule covers now.
// An empty position matches every position.
func ListActive(ctx context.Context, db *gorm.DB, position string, now time.Time) ([]Banner, error) {
	now = now.UTC()
	query := db.WithContext(ctx).
		Where("active = ?", true).
		Where("(start_date IS NULL OR start_date <= ?)", now).
		Where("(end_date IS NULL OR end_date >= ?)", now)
	if position != "" {
		query = query.Where("position = ?", position)
	}

	var banners []Banner
	if err := query.Order(`"order" ASC`).Order("created_at DESC").Find(&banners).Error; err != nil {
		return nil, fmt.Errorf("failed to list active banners: %w", err)
	}
	return banners, nil
}
