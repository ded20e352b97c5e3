// Package metrics derives KPIs from parsed reports. All functions are pure: the clock is
// passed in and every degenerate division yields 0.
package metrics

import "time"

// EfficiencyRatio is the uplift of converted revenue over raw revenue: converted/raw - 1.
func EfficiencyRatio(converted, raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return converted/raw - 1
}

// CompletionPct is actual as a percentage of target.
func CompletionPct(actual, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return actual / target * 100
}

// DaysIn returns the number of days of the month containing t.
func DaysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// DailyTarget spreads a monthly target evenly over the days of the current month.
func DailyTarget(monthly float64, now time.Time) float64 {
	return monthly / float64(DaysIn(now))
}

// ElapsedDays is the number of days covered by a cumulative report on now: the portal's
// cumulative figures run through the previous day.
func ElapsedDays(now time.Time) int {
	return now.Day() - 1
}

// ProjectedMonthEnd extrapolates a cumulative figure linearly to the end of the month.
func ProjectedMonthEnd(cumulative float64, now time.Time) float64 {
	elapsed := ElapsedDays(now)
	if elapsed <= 0 {
		return 0
	}
	return cumulative / float64(elapsed) * float64(DaysIn(now))
}
