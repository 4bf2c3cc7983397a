package analytics

import (
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

// CalculateTurnover computes the turnover of one category from its current
// stock and the weight distributed over windowDays. A non-positive window
// falls back to the default lookback.
func CalculateTurnover(category domain.Category, currentStock, totalDistributed float64, windowDays int) domain.TurnoverResult {
	windowDays = positiveOr(windowDays, DefaultLookbackDays)
	stock := nonNegative(currentStock)
	distributed := nonNegative(totalDistributed)

	result := domain.TurnoverResult{
		Category:         category,
		CurrentStock:     round2(stock),
		TotalDistributed: round2(distributed),
		WindowDays:       windowDays,
		Status:           domain.TurnoverInsufficientData,
	}

	avgDaily := distributed / float64(windowDays)
	result.AvgDailyDistribution = round2(avgDaily)

	// 1. Nothing to divide by: report the guarded values and stop.
	if stock == 0 || distributed == 0 {
		if stock > 0 {
			result.DaysOfSupply = NoDemandDaysOfSupply
		}
		return result
	}

	// 2. Rate and days of supply
	result.TurnoverRate = round2(distributed / stock)
	daysOfSupply := stock / avgDaily
	result.DaysOfSupply = round2(daysOfSupply)

	// 3. Status thresholds use the unrounded days of supply
	switch {
	case daysOfSupply < 3:
		result.Status = domain.TurnoverCritical
	case daysOfSupply < 7:
		result.Status = domain.TurnoverLow
	case daysOfSupply > 60:
		result.Status = domain.TurnoverSlow
	case daysOfSupply > 30:
		result.Status = domain.TurnoverHigh
	default:
		result.Status = domain.TurnoverNormal
	}

	return result
}

// TurnoverByCategory computes turnover for every category in stock, using
// events in the trailing windowDays before now.
func TurnoverByCategory(stock domain.CategoryTotals, events []domain.DistributionEvent, now time.Time, windowDays int) map[domain.Category]domain.TurnoverResult {
	windowDays = positiveOr(windowDays, DefaultLookbackDays)
	distributed := distributedInWindow(events, now, windowDays)

	out := make(map[domain.Category]domain.TurnoverResult, len(stock))
	for _, c := range domain.Categories {
		current, ok := stock[c]
		if !ok {
			continue
		}
		out[c] = CalculateTurnover(c, current, distributed[c], windowDays)
	}
	return out
}

// distributedInWindow sums category weights of events in (now-days, now].
func distributedInWindow(events []domain.DistributionEvent, now time.Time, days int) domain.CategoryTotals {
	totals := make(domain.CategoryTotals)
	for _, e := range events {
		if !withinWindow(e.OccurredAt, now, days) {
			continue
		}
		for c, w := range e.CategoryTotals {
			totals[c] += nonNegative(w)
		}
	}
	return totals
}
