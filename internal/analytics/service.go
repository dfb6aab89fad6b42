package analytics

import (
	"context"
	"log/slog"
	"sort"

	"vitrine/internal/pkg/async"
	"vitrine/internal/pkg/referrers"
	"vitrine/internal/timeframe"
)

// DeviceStat is one slice of the device breakdown.
type DeviceStat struct {
	Device     string  `json:"device"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// BrowserStat is one slice of the browser breakdown.
type BrowserStat struct {
	Browser    string  `json:"browser"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type PageStat struct {
	Page   string `json:"page"`
	Visits int64  `json:"visits"`
}

type CountryStat struct {
	Country string `json:"country"`
	Visits  int64  `json:"visits"`
}

type ReferrerStat struct {
	Referrer string `json:"referrer"`
	Visits   int64  `json:"visits"`
}

// RecentActivity pairs the latest visits with the latest contact messages.
type RecentActivity struct {
	Visits   []RecentVisit   `json:"visits"`
	Contacts []RecentContact `json:"contacts"`
}

// Service computes the admin reports.
type Service struct {
	store    Store
	resolver *timeframe.Resolver
	pool     *async.Pool
	logger   *slog.Logger
}

// NewService creates a Service. A nil resolver uses the system clock in local time.
func NewService(store Store, resolver *timeframe.Resolver, logger *slog.Logger) *Service {
	if resolver == nil {
		resolver = timeframe.NewResolver(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		resolver: resolver,
		pool:     async.NewPool(4),
		logger:   logger,
	}
}

// Resolver returns the clock the service resolves periods with.
func (s *Service) Resolver() *timeframe.Resolver {
	return s.resolver
}

// VisitsOverTime returns the gap-free daily series of period.
func (s *Service) VisitsOverTime(ctx context.Context, period timeframe.Period) ([]timeframe.DateStat, error) {
	window := s.resolver.Resolve(period)
	counts, err := s.store.GroupVisitsByDay(ctx, window)
	if err != nil {
		return nil, err
	}
	return timeframe.FillDays(counts, window), nil
}

func (s *Service) Devices(ctx context.Context, period timeframe.Period) ([]DeviceStat, error) {
	buckets, err := s.store.GroupVisitsByDevice(ctx, s.resolver.Resolve(period))
	if err != nil {
		return nil, err
	}
	shares := Shares(buckets)
	result := make([]DeviceStat, len(shares))
	for i, share := range shares {
		result[i] = DeviceStat{Device: share.Key, Count: share.Count, Percentage: share.Percentage}
	}
	return result, nil
}

func (s *Service) Browsers(ctx context.Context, period timeframe.Period) ([]BrowserStat, error) {
	buckets, err := s.store.GroupVisitsByBrowser(ctx, s.resolver.Resolve(period))
	if err != nil {
		return nil, err
	}
	shares := Shares(buckets)
	result := make([]BrowserStat, len(shares))
	for i, share := range shares {
		result[i] = BrowserStat{Browser: share.Key, Count: share.Count, Percentage: share.Percentage}
	}
	return result, nil
}

// Pages returns the ten most visited pages.
func (s *Service) Pages(ctx context.Context, period timeframe.Period) ([]PageStat, error) {
	buckets, err := s.store.TopPages(ctx, s.resolver.Resolve(period), BreakdownLimit)
	if err != nil {
		return nil, err
	}
	result := make([]PageStat, len(buckets))
	for i, b := range buckets {
		result[i] = PageStat{Page: b.Key, Visits: b.Count}
	}
	return result, nil
}

// Countries returns the ten countries with the most visits.
func (s *Service) Countries(ctx context.Context, period timeframe.Period) ([]CountryStat, error) {
	buckets, err := s.store.TopCountries(ctx, s.resolver.Resolve(period), BreakdownLimit)
	if err != nil {
		return nil, err
	}
	result := make([]CountryStat, len(buckets))
	for i, b := range buckets {
		result[i] = CountryStat{Country: CountryName(b.Key), Visits: b.Count}
	}
	return result, nil
}

// Referrers folds raw referrers into named sources and returns the top ten.
func (s *Service) Referrers(ctx context.Context, period timeframe.Period) ([]ReferrerStat, error) {
	buckets, err := s.store.GroupVisitsByReferrer(ctx, s.resolver.Resolve(period))
	if err != nil {
		return nil, err
	}

	bySource := make(map[string]int64)
	for _, b := range buckets {
		bySource[referrers.Source(b.Key)] += b.Count
	}

	result := make([]ReferrerStat, 0, len(bySource))
	for source, count := range bySource {
		result = append(result, ReferrerStat{Referrer: source, Visits: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Visits != result[j].Visits {
			return result[i].Visits > result[j].Visits
		}
		return result[i].Referrer < result[j].Referrer
	})
	if len(result) > BreakdownLimit {
		result = result[:BreakdownLimit]
	}
	return result, nil
}

// TopProjects ranks published projects by views.
func (s *Service) TopProjects(ctx context.Context, limit int) ([]ProjectRank, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	projects, err := s.store.TopProjects(ctx, limit)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []ProjectRank{}
	}
	return projects, nil
}

// Recent returns the latest limit visits and the latest five contacts.
func (s *Service) Recent(ctx context.Context, limit int) (*RecentActivity, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	tasks := []async.Task{
		{Name: "visits", Execute: func(ctx context.Context) (interface{}, error) {
			return s.store.RecentVisits(ctx, limit)
		}},
		{Name: "contacts", Execute: func(ctx context.Context) (interface{}, error) {
			return s.store.RecentContacts(ctx, RecentContactsLimit)
		}},
	}
	results, err := s.pool.ExecuteAll(ctx, tasks)
	if err != nil {
		return nil, err
	}

	activity := &RecentActivity{Visits: []RecentVisit{}, Contacts: []RecentContact{}}
	if v, ok := results["visits"].Data.([]RecentVisit); ok && v != nil {
		activity.Visits = v
	}
	if c, ok := results["contacts"].Data.([]RecentContact); ok && c != nil {
		activity.Contacts = c
	}
	return activity, nil
}
