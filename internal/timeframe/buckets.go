package timeframe

import "time"

// DayLayout is the ISO calendar date format used for day buckets.
const DayLayout = "2006-01-02"

// maxDayPoints bounds the series length for absurd windows.
const maxDayPoints = 3660

// DateStat is a single point of a daily visit series.
type DateStat struct {
	Date   string `json:"date"`
	Visits int64  `json:"visits"`
}

// DayCount is a grouped count keyed by UTC calendar date.
type DayCount struct {
	Date  string
	Count int64
}

// FillDays returns one point per UTC calendar day from w.Start to w.End
// inclusive, ascending, with zero for days missing from counts.
func FillDays(counts []DayCount, w Window) []DateStat {
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		key := c.Date
		if len(key) > len(DayLayout) {
			key = key[:len(DayLayout)]
		}
		byDay[key] += c.Count
	}

	start := w.Start.UTC()
	end := w.End.UTC()
	current := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	points := make([]DateStat, 0)
	for !current.After(lastDay) && len(points) < maxDayPoints {
		key := current.Format(DayLayout)
		points = append(points, DateStat{Date: key, Visits: byDay[key]})
		current = current.AddDate(0, 0, 1)
	}
	return points
}
