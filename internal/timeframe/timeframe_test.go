// Package timeframe_test contains tests for the timeframe package
package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/timeframe"
)

// MockTimeProvider implements the TimeProvider interface for testing
type MockTimeProvider struct {
	FixedTime time.Time
}

func (m *MockTimeProvider) Now(loc *time.Location) time.Time {
	return m.FixedTime.In(loc)
}

func TestParsePeriod(t *testing.T) {
	testCases := []struct {
		raw      string
		expected timeframe.Period
		wantErr  bool
	}{
		{raw: "", expected: timeframe.PeriodDefault},
		{raw: "today", expected: timeframe.PeriodToday},
		{raw: "week", expected: timeframe.PeriodWeek},
		{raw: "month", expected: timeframe.PeriodMonth},
		{raw: "year", expected: timeframe.PeriodYear},
		{raw: "decade", wantErr: true},
		{raw: "MONTH", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			p, err := timeframe.ParsePeriod(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, timeframe.ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, 3, 31, 15, 30, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		period        timeframe.Period
		expectedStart time.Time
	}{
		{"today starts at local midnight", timeframe.PeriodToday, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"week is seven days back", timeframe.PeriodWeek, time.Date(2024, 3, 24, 15, 30, 0, 0, time.UTC)},
		// Go normalizes Feb 31 to Mar 2.
		{"month is one calendar month back", timeframe.PeriodMonth, time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC)},
		{"year is one calendar year back", timeframe.PeriodYear, time.Date(2023, 3, 31, 15, 30, 0, 0, time.UTC)},
		{"default is thirty days back", timeframe.PeriodDefault, time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := timeframe.Resolve(tc.period, now)
			assert.Equal(t, tc.expectedStart, w.Start)
			assert.Equal(t, now, w.End)
			assert.False(t, w.Start.After(w.End))
		})
	}
}

func TestResolveDefaultDiffersFromMonth(t *testing.T) {
	now := time.Date(2024, 7, 31, 12, 0, 0, 0, time.UTC)

	month := timeframe.Resolve(timeframe.PeriodMonth, now)
	fallback := timeframe.Resolve(timeframe.PeriodDefault, now)

	assert.Equal(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), month.Start)
	assert.Equal(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), fallback.Start)

	now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	month = timeframe.Resolve(timeframe.PeriodMonth, now)
	fallback = timeframe.Resolve(timeframe.PeriodDefault, now)
	assert.NotEqual(t, month.Start, fallback.Start)
}

func TestResolveTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	// 01:00 UTC is still the previous day three hours west.
	fixed := time.Date(2024, 5, 10, 1, 0, 0, 0, time.UTC)
	resolver := timeframe.NewResolver(loc, &MockTimeProvider{FixedTime: fixed})

	w := resolver.Resolve(timeframe.PeriodToday)
	assert.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, loc), w.Start)
	assert.True(t, w.End.Equal(fixed))
}

func TestMonthOverMonth(t *testing.T) {
	fixed := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	current, previous := timeframe.MonthOverMonth(fixed)

	assert.Equal(t, time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC), current.Start)
	assert.Equal(t, fixed, current.End)
	assert.Equal(t, time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC), previous.Start)
	assert.Equal(t, current.Start, previous.End)
}

func TestDefaultResolverEndIsNow(t *testing.T) {
	resolver := timeframe.NewResolver(time.UTC)
	before := time.Now()
	w := resolver.Resolve(timeframe.PeriodWeek)

	assert.WithinDuration(t, before, w.End, 5*time.Second)
	assert.False(t, w.Start.After(w.End))
}

func TestWindowContains(t *testing.T) {
	w := timeframe.Window{
		Start: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.True(t, w.Contains(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End.Add(time.Nanosecond)))
}
