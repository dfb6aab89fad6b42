package analytics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vitrine/internal/contacts"
	"vitrine/internal/projects"
	"vitrine/internal/timeframe"
	"vitrine/internal/visits"
)

const (
	DefaultTopLimit     = 10
	DefaultRecentLimit  = 20
	RecentContactsLimit = 5
	BreakdownLimit      = 10
)

// Bucket is one grouped count.
type Bucket struct {
	Key   string `gorm:"column:name"`
	Count int64  `gorm:"column:count"`
}

// ProjectRank is a published project in the views ranking.
type ProjectRank struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Views    int64  `json:"views"`
	Category string `json:"category"`
}

// RecentVisit is a visit in the activity feed.
type RecentVisit struct {
	ID        string    `json:"id"`
	Page      string    `json:"page"`
	Device    *string   `json:"device"`
	Browser   *string   `json:"browser"`
	Country   *string   `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecentContact is a contact message summary in the activity feed.
type RecentContact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the read side the reports are computed from.
type Store interface {
	CountVisitsInWindow(ctx context.Context, start, end time.Time) (int64, error)
	CountVisitsBetween(ctx context.Context, start, end time.Time) (int64, error)
	GroupVisitsByDay(ctx context.Context, w timeframe.Window) ([]timeframe.DayCount, error)
	GroupVisitsByDevice(ctx context.Context, w timeframe.Window) ([]Bucket, error)
	GroupVisitsByBrowser(ctx context.Context, w timeframe.Window) ([]Bucket, error)
	GroupVisitsByReferrer(ctx context.Context, w timeframe.Window) ([]Bucket, error)
	TopPages(ctx context.Context, w timeframe.Window, limit int) ([]Bucket, error)
	TopCountries(ctx context.Context, w timeframe.Window, limit int) ([]Bucket, error)
	TopProjects(ctx context.Context, limit int) ([]ProjectRank, error)
	RecentVisits(ctx context.Context, limit int) ([]RecentVisit, error)
	RecentContacts(ctx context.Context, limit int) ([]RecentContact, error)
	CountPublishedProjects(ctx context.Context) (int64, error)
	SumProjectViews(ctx context.Context) (int64, error)
	CountContacts(ctx context.Context) (int64, error)
	CountUnreadContacts(ctx context.Context) (int64, error)
	ListVisits(ctx context.Context, w timeframe.Window) ([]visits.Visit, error)
}

// GormStore implements Store over the application database.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) visits(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&visits.Visit{})
}

// CountVisitsInWindow counts visits with start <= created_at <= end.
func (s *GormStore) CountVisitsInWindow(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := s.visits(ctx).
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting visits: %w", err)
	}
	return count, nil
}

// CountVisitsBetween counts visits with start <= created_at < end.
func (s *GormStore) CountVisitsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := s.visits(ctx).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting visits: %w", err)
	}
	return count, nil
}

// GroupVisitsByDay groups by UTC calendar date.
func (s *GormStore) GroupVisitsByDay(ctx context.Context, w timeframe.Window) ([]timeframe.DayCount, error) {
	var results []timeframe.DayCount
	query := `
        SELECT
            strftime('%Y-%m-%d', created_at) AS date,
            COUNT(*) AS count
        FROM
            visits
        WHERE
            created_at >= ? AND created_at <= ?
        GROUP BY
            strftime('%Y-%m-%d', created_at)
        ORDER BY
            date ASC
    `
	if err := s.db.WithContext(ctx).Raw(query, w.Start.UTC(), w.End.UTC()).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error grouping visits by day: %w", err)
	}
	return results, nil
}

// groupBy counts non-null values of column over w, most frequent first.
// A limit of zero returns every group.
func (s *GormStore) groupBy(ctx context.Context, column string, w timeframe.Window, limit int) ([]Bucket, error) {
	query := s.visits(ctx).
		Select(column+" AS name, COUNT(*) AS count").
		Where("created_at >= ? AND created_at <= ?", w.Start.UTC(), w.End.UTC()).
		Where(column + " IS NOT NULL").
		Group(column).
		Order("count DESC").
		Order(column + " ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []Bucket
	if err := query.Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("error grouping visits by %s: %w", column, err)
	}
	return results, nil
}

func (s *GormStore) GroupVisitsByDevice(ctx context.Context, w timeframe.Window) ([]Bucket, error) {
	return s.groupBy(ctx, "device", w, 0)
}

func (s *GormStore) GroupVisitsByBrowser(ctx context.Context, w timeframe.Window) ([]Bucket, error) {
	return s.groupBy(ctx, "browser", w, 0)
}

func (s *GormStore) GroupVisitsByReferrer(ctx context.Context, w timeframe.Window) ([]Bucket, error) {
	return s.groupBy(ctx, "referrer", w, 0)
}

// TopPages groups by page. Page is never null.
func (s *GormStore) TopPages(ctx context.Context, w timeframe.Window, limit int) ([]Bucket, error) {
	return s.groupBy(ctx, "page", w, limit)
}

func (s *GormStore) TopCountries(ctx context.Context, w timeframe.Window, limit int) ([]Bucket, error) {
	return s.groupBy(ctx, "country", w, limit)
}

// TopProjects ranks published projects by views, ties by id.
func (s *GormStore) TopProjects(ctx context.Context, limit int) ([]ProjectRank, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	var results []ProjectRank
	err := s.db.WithContext(ctx).Model(&projects.Project{}).
		Select("id, title, slug, views, category").
		Where("status = ?", projects.StatusPublished).
		Order("views DESC").
		Order("id ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching top projects: %w", err)
	}
	return results, nil
}

func (s *GormStore) RecentVisits(ctx context.Context, limit int) ([]RecentVisit, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var rows []visits.Visit
	err := s.db.WithContext(ctx).
		Select("id, page, device, browser, country, created_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching recent visits: %w", err)
	}

	results := make([]RecentVisit, len(rows))
	for i, v := range rows {
		results[i] = RecentVisit{
			ID:        v.ID,
			Page:      v.Page,
			Device:    v.Device,
			Browser:   v.Browser,
			Country:   v.Country,
			CreatedAt: v.CreatedAt,
		}
	}
	return results, nil
}

func (s *GormStore) RecentContacts(ctx context.Context, limit int) ([]RecentContact, error) {
	var rows []contacts.Contact
	err := s.db.WithContext(ctx).
		Select("id, name, email, read, created_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching recent contacts: %w", err)
	}

	results := make([]RecentContact, len(rows))
	for i, c := range rows {
		results[i] = RecentContact{
			ID:        c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Read:      c.Read,
			CreatedAt: c.CreatedAt,
		}
	}
	return results, nil
}

func (s *GormStore) CountPublishedProjects(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&projects.Project{}).
		Where("status = ?", projects.StatusPublished).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting projects: %w", err)
	}
	return count, nil
}

// SumProjectViews sums views over all projects, 0 when there are none.
func (s *GormStore) SumProjectViews(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&projects.Project{}).
		Select("COALESCE(SUM(views), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("error summing project views: %w", err)
	}
	return total, nil
}

func (s *GormStore) CountContacts(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&contacts.Contact{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting contacts: %w", err)
	}
	return count, nil
}

func (s *GormStore) CountUnreadContacts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&contacts.Contact{}).
		Where("read = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting unread contacts: %w", err)
	}
	return count, nil
}

// ListVisits returns the raw visits of w, newest first.
func (s *GormStore) ListVisits(ctx context.Context, w timeframe.Window) ([]visits.Visit, error) {
	var rows []visits.Visit
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", w.Start.UTC(), w.End.UTC()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error listing visits: %w", err)
	}
	return rows, nil
}
