package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// roundFloat rounds v half away from zero to the given number of decimal
// places. Rounding goes through decimal so 1.005 rounds to 1.01, not 1.0.
func roundFloat(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromFloat(v).Round(int32(decimals)).InexactFloat64()
}

func round2(v float64) float64 {
	return roundFloat(v, 2)
}

// nonNegative clamps negative and non-finite weights to zero.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// startOfDay returns local midnight of t in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// calendarDaysBetween counts whole calendar days from a to b in loc.
// It is DST-safe because it compares dates, not durations.
func calendarDaysBetween(a, b time.Time, loc *time.Location) int {
	da := startOfDay(a, loc)
	db := startOfDay(b, loc)
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Floor(ub.Sub(ua).Hours() / 24))
}

// withinWindow reports whether t falls in (now-days, now].
func withinWindow(t, now time.Time, days int) bool {
	from := now.AddDate(0, 0, -days)
	return t.After(from) && !t.After(now)
}
