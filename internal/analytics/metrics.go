package analytics

import "math"

// Share is a bucket with its one-decimal percentage of the set total.
type Share struct {
	Key        string
	Count      int64
	Percentage float64
}

// roundTenth rounds to one decimal place, half away from zero.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// Shares converts counts into percentages of their sum. A zero sum yields
// zero for every bucket.
func Shares(buckets []Bucket) []Share {
	var total int64
	for _, b := range buckets {
		total += b.Count
	}

	shares := make([]Share, len(buckets))
	for i, b := range buckets {
		shares[i] = Share{Key: b.Key, Count: b.Count}
		if total > 0 {
			shares[i].Percentage = roundTenth(float64(b.Count) / float64(total) * 100)
		}
	}
	return shares
}

// GrowthRate is the percentage change from previous to current, one decimal.
// It is zero when there is no previous value to compare against.
func GrowthRate(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return roundTenth(float64(current-previous) / float64(previous) * 100)
}
