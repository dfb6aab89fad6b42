package timeframe

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is the symbolic reporting window requested by the admin panel.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"

	// PeriodDefault is what an absent period parameter resolves through.
	// It is a trailing 30 days and intentionally differs from PeriodMonth.
	PeriodDefault Period = ""
)

// defaultWindowDays is the trailing window used by PeriodDefault.
const defaultWindowDays = 30

// ErrInvalidPeriod is returned for period values outside the closed set.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod validates a raw query value. An empty value yields PeriodDefault.
func ParsePeriod(raw string) (Period, error) {
	p := Period(strings.TrimSpace(raw))
	switch p {
	case PeriodDefault, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return PeriodDefault, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
}

// String implements fmt.Stringer.
func (p Period) String() string {
	if p == PeriodDefault {
		return "default"
	}
	return string(p)
}

// Window is a concrete [Start, End] instant range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Resolve maps a period to a window ending at now. Start is never after End.
func Resolve(p Period, now time.Time) Window {
	var start time.Time
	switch p {
	case PeriodToday:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
	case PeriodMonth:
		start = now.AddDate(0, -1, 0)
	case PeriodYear:
		start = now.AddDate(-1, 0, 0)
	default:
		start = now.AddDate(0, 0, -defaultWindowDays)
	}
	return Window{Start: start, End: now}
}

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// Resolver resolves periods against a clock and a location. The location decides
// where "today" starts; day buckets are always UTC dates.
type Resolver struct {
	timeProvider TimeProvider
	loc          *time.Location
}

func NewResolver(loc *time.Location, timeProvider ...TimeProvider) *Resolver {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{timeProvider: provider, loc: loc}
}

// Now returns the current instant in the resolver's location.
func (r *Resolver) Now() time.Time {
	return r.timeProvider.Now(r.loc)
}

// Resolve resolves p against the current instant.
func (r *Resolver) Resolve(p Period) Window {
	return Resolve(p, r.Now())
}

// MonthOverMonth returns the trailing calendar month ending at now and the
// calendar month immediately before it. The previous window is half-open at End.
func MonthOverMonth(now time.Time) (current, previous Window) {
	current = Resolve(PeriodMonth, now)
	previous = Window{Start: current.Start.AddDate(0, -1, 0), End: current.Start}
	return current, previous
}
