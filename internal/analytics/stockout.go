package analytics

import (
	"math"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

const noRecentUsageNote = "no recent usage data in window"

// PredictStockout projects when a single category runs out.
//
// Zero stock is critical regardless of usage. Positive stock with no usage
// yields HasUsageData=false and a nil DaysUntilStockout rather than 0 or an
// unbounded value.
func PredictStockout(category domain.Category, currentStock, distributedInWindow float64, windowDays int, now time.Time) domain.StockoutPrediction {
	windowDays = positiveOr(windowDays, DefaultStockoutWindowDays)
	stock := nonNegative(currentStock)
	rate := nonNegative(distributedInWindow) / float64(windowDays)

	p := domain.StockoutPrediction{
		Category:     category,
		CurrentStock: round2(stock),
		AvgDailyRate: round2(rate),
		HasUsageData: rate > 0,
	}

	if stock == 0 {
		zero := 0
		at := now
		p.DaysUntilStockout = &zero
		p.StockoutDate = &at
		p.Urgency = domain.UrgencyCritical
		p.Note = "out of stock"
		return p
	}

	if rate <= 0 {
		p.Urgency = domain.UrgencyNone
		p.Note = noRecentUsageNote
		return p
	}

	days := int(math.Floor(stock / rate))
	at := now.AddDate(0, 0, days)
	p.DaysUntilStockout = &days
	p.StockoutDate = &at
	p.Urgency = urgencyForDays(days)
	return p
}

// PredictStockouts predicts every category present in stock using events in
// the trailing windowDays before now.
func PredictStockouts(stock domain.CategoryTotals, events []domain.DistributionEvent, now time.Time, windowDays int) map[domain.Category]domain.StockoutPrediction {
	windowDays = positiveOr(windowDays, DefaultStockoutWindowDays)
	used := distributedInWindow(events, now, windowDays)

	out := make(map[domain.Category]domain.StockoutPrediction, len(stock))
	for _, c := range domain.Categories {
		current, ok := stock[c]
		if !ok {
			continue
		}
		out[c] = PredictStockout(c, current, used[c], windowDays, now)
	}
	return out
}

func urgencyForDays(days int) domain.Urgency {
	switch {
	case days <= 3:
		return domain.UrgencyCritical
	case days <= 7:
		return domain.UrgencyHigh
	case days <= 14:
		return domain.UrgencyMedium
	case days <= 30:
		return domain.UrgencyLow
	default:
		return domain.UrgencyNone
	}
}
