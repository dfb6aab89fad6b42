package analytics

import (
	"context"
	"fmt"

	"vitrine/internal/pkg/async"
	"vitrine/internal/timeframe"
)

type VisitsSummary struct {
	Today      int64   `json:"today"`
	Week       int64   `json:"week"`
	Month      int64   `json:"month"`
	GrowthRate float64 `json:"growthRate"`
}

type ProjectsSummary struct {
	Total      int64 `json:"total"`
	TotalViews int64 `json:"totalViews"`
}

type ContactsSummary struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}

// DashboardSummary is the headline block of the admin dashboard.
type DashboardSummary struct {
	Visits   VisitsSummary   `json:"visits"`
	Projects ProjectsSummary `json:"projects"`
	Contacts ContactsSummary `json:"contacts"`
}

// Dashboard runs every headline count concurrently. The visit counts always use
// the today, week and month anchors and the growth rate is always month over
// month, whatever period the caller is looking at. The first failing count
// cancels the others and fails the call.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	now := s.resolver.Now()
	today := timeframe.Resolve(timeframe.PeriodToday, now)
	week := timeframe.Resolve(timeframe.PeriodWeek, now)
	month, previous := timeframe.MonthOverMonth(now)

	count := func(w timeframe.Window) func(context.Context) (interface{}, error) {
		return func(ctx context.Context) (interface{}, error) {
			return s.store.CountVisitsInWindow(ctx, w.Start, w.End)
		}
	}

	tasks := []async.Task{
		{Name: "visits_today", Execute: count(today)},
		{Name: "visits_week", Execute: count(week)},
		{Name: "visits_month", Execute: count(month)},
		{Name: "visits_previous_month", Execute: func(ctx context.Context) (interface{}, error) {
			return s.store.CountVisitsBetween(ctx, previous.Start, previous.End)
		}},
		{Name: "projects_total", Execute: func(ctx context.Context) (interface{}, error) {
			return s.store.CountPublishedProjects(ctx)
		}},
		{Name: "projects_views", Execute: func(ctx context.Context) (interface{}, error) {
			return s.store.SumProjectViews(ctx)
		}},
		{Name: "contacts_total", Execute: func(ctx context.Context) (interface{}, error) {
			return s.store.CountContacts(ctx)
		}},
		{Name: "contacts_unread", Execute: func(ctx context.Context) (interface{}, error) {
			return s.store.CountUnreadContacts(ctx)
		}},
	}

	results, err := s.pool.ExecuteAll(ctx, tasks)
	if err != nil {
		return nil, err
	}

	values := make(map[string]int64, len(tasks))
	for _, task := range tasks {
		v, ok := results[task.Name].Data.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected result for %s: %T", task.Name, results[task.Name].Data)
		}
		values[task.Name] = v
	}

	return &DashboardSummary{
		Visits: VisitsSummary{
			Today:      values["visits_today"],
			Week:       values["visits_week"],
			Month:      values["visits_month"],
			GrowthRate: GrowthRate(values["visits_month"], values["visits_previous_month"]),
		},
		Projects: ProjectsSummary{
			Total:      values["projects_total"],
			TotalViews: values["projects_views"],
		},
		Contacts: ContactsSummary{
			Total:  values["contacts_total"],
			Unread: values["contacts_unread"],
		},
	}, nil
}
