package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/timeframe"
)

func TestFillDays(t *testing.T) {
	w := timeframe.Window{
		Start: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC),
	}

	t.Run("fills missing days with zero", func(t *testing.T) {
		points := timeframe.FillDays([]timeframe.DayCount{{Date: "2024-01-02", Count: 1}}, w)

		assert.Equal(t, []timeframe.DateStat{
			{Date: "2024-01-01", Visits: 0},
			{Date: "2024-01-02", Visits: 1},
			{Date: "2024-01-03", Visits: 0},
		}, points)
	})

	t.Run("empty grouping still yields every day", func(t *testing.T) {
		points := timeframe.FillDays(nil, w)
		require.Len(t, points, 3)
		for _, p := range points {
			assert.Zero(t, p.Visits)
		}
	})

	t.Run("ignores counts outside the window", func(t *testing.T) {
		points := timeframe.FillDays([]timeframe.DayCount{
			{Date: "2023-12-31", Count: 9},
			{Date: "2024-01-03", Count: 4},
		}, w)
		require.Len(t, points, 3)
		assert.Equal(t, int64(4), points[2].Visits)
	})

	t.Run("accepts timestamp-shaped keys", func(t *testing.T) {
		points := timeframe.FillDays([]timeframe.DayCount{{Date: "2024-01-01 00:00:00", Count: 2}}, w)
		assert.Equal(t, int64(2), points[0].Visits)
	})

	t.Run("is a pure function of its inputs", func(t *testing.T) {
		counts := []timeframe.DayCount{{Date: "2024-01-02", Count: 7}}
		assert.Equal(t, timeframe.FillDays(counts, w), timeframe.FillDays(counts, w))
	})
}

func TestFillDaysLength(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		period   timeframe.Period
		expected int
	}{
		{timeframe.PeriodToday, 1},
		{timeframe.PeriodWeek, 8},
		{timeframe.PeriodMonth, 30}, // Feb 15 .. Mar 15 in a leap year
		{timeframe.PeriodDefault, 31},
		{timeframe.PeriodYear, 367},
	}

	for _, tc := range testCases {
		t.Run(tc.period.String(), func(t *testing.T) {
			points := timeframe.FillDays(nil, timeframe.Resolve(tc.period, now))
			require.Len(t, points, tc.expected)

			for i := 1; i < len(points); i++ {
				assert.Less(t, points[i-1].Date, points[i].Date)
			}
		})
	}
}

func TestFillDaysUsesUTCDates(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	// 22:00 local on Jan 1 is 01:00 UTC on Jan 2.
	w := timeframe.Window{
		Start: time.Date(2024, 1, 1, 22, 0, 0, 0, loc),
		End:   time.Date(2024, 1, 2, 22, 0, 0, 0, loc),
	}
	points := timeframe.FillDays(nil, w)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-01-02", points[0].Date)
	assert.Equal(t, "2024-01-03", points[1].Date)
}
