package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEfficiencyRatio(t *testing.T) {
	tests := []struct {
		name      string
		converted float64
		raw       float64
		expected  float64
	}{
		{"uplift", 1200, 1000, 0.2},
		{"no uplift", 1000, 1000, 0},
		{"zero raw", 1200, 0, 0},
		{"negative raw", 1200, -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EfficiencyRatio(tt.converted, tt.raw), 1e-9)
		})
	}
}

func TestCompletionPct(t *testing.T) {
	assert.InDelta(t, 120.0, CompletionPct(1200, 1000), 1e-9)
	assert.Equal(t, 0.0, CompletionPct(1200, 0))
	assert.Equal(t, 0.0, CompletionPct(1200, -1))
}

func TestDaysIn(t *testing.T) {
	tests := []struct {
		date     time.Time
		expected int
	}{
		{time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC), 29},
		{time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC), 28},
		{time.Date(2025, time.April, 30, 23, 0, 0, 0, time.UTC), 30},
		{time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), 31},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01"), func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysIn(tt.date))
		})
	}
}

func TestDailyTarget(t *testing.T) {
	now := time.Date(2025, time.April, 15, 9, 0, 0, 0, time.UTC)
	assert.InDelta(t, 100.0, DailyTarget(3000, now), 1e-9)
}

func TestProjectedMonthEnd(t *testing.T) {
	tests := []struct {
		name       string
		cumulative float64
		now        time.Time
		expected   float64
	}{
		{"mid month", 1400, time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC), 3000},
		{"first of month", 1400, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), 0},
		{"second of month", 100, time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), 3100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ProjectedMonthEnd(tt.cumulative, tt.now)
			assert.InDelta(t, tt.expected, v, 1e-9)
			assert.False(t, math.IsNaN(v))
		})
	}
}
