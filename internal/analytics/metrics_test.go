package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShares(t *testing.T) {
	t.Run("one decimal of percent", func(t *testing.T) {
		shares := Shares([]Bucket{{Key: "desktop", Count: 2}, {Key: "mobile", Count: 1}})

		assert.Equal(t, []Share{
			{Key: "desktop", Count: 2, Percentage: 66.7},
			{Key: "mobile", Count: 1, Percentage: 33.3},
		}, shares)
	})

	t.Run("sums to about one hundred", func(t *testing.T) {
		shares := Shares([]Bucket{{Key: "a", Count: 7}, {Key: "b", Count: 5}, {Key: "c", Count: 3}, {Key: "d", Count: 1}})

		var sum float64
		for _, s := range shares {
			sum += s.Percentage
		}
		assert.InDelta(t, 100, sum, 0.5*float64(len(shares)))
	})

	t.Run("zero total never yields NaN", func(t *testing.T) {
		shares := Shares([]Bucket{{Key: "desktop", Count: 0}, {Key: "mobile", Count: 0}})

		for _, s := range shares {
			assert.False(t, math.IsNaN(s.Percentage))
			assert.Zero(t, s.Percentage)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Shares(nil))
	})
}

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		expected float64
	}{
		{"no previous visits", 5, 0, 0},
		{"both empty", 0, 0, 0},
		{"fifty percent up", 75, 50, 50},
		{"decline", 25, 50, -50},
		{"rounded to one decimal", 2, 3, -33.3},
		{"small increase", 101, 99, 2},
		{"all gone", 0, 10, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GrowthRate(tt.current, tt.previous))
		})
	}
}
