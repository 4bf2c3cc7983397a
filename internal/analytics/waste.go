package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

const wasteHorizonDays = 14

// PredictWaste scores expiring items against category daily demand.
//
// Expired items are always listed. Items expiring within the next 14 days
// are listed only when the category cannot move their weight before they
// expire. Items without an expiration date never appear.
func PredictWaste(items []domain.DetailedItem, dailyDemand map[domain.Category]float64, now time.Time, loc *time.Location) domain.WasteSummary {
	if loc == nil {
		loc = time.UTC
	}

	summary := domain.WasteSummary{
		Risks:        make([]domain.WasteRisk, 0),
		CountByLevel: make(map[domain.WasteLevel]int),
	}

	for _, item := range items {
		if item.ExpirationDate == nil || item.ExpirationDate.IsZero() {
			continue
		}

		// expiration dates carry no time of day, so whole dates are compared
		days := calendarDaysBetween(now, *item.ExpirationDate, loc)
		weight := nonNegative(item.Weight)

		risk := domain.WasteRisk{
			Category:        item.Category,
			Name:            item.Name,
			Weight:          round2(weight),
			Source:          item.Source,
			ExpirationDate:  *item.ExpirationDate,
			DaysUntilExpiry: days,
		}

		if days < 0 {
			risk.Risk = domain.WasteExpired
			risk.Priority = 100
			risk.Recommendation = fmt.Sprintf("Expired %d day(s) ago: remove from inventory immediately", -days)
			summary.Risks = append(summary.Risks, risk)
			continue
		}

		if days > wasteHorizonDays {
			continue
		}

		demand := nonNegative(dailyDemand[item.Category])
		risk.CanDistributeInTime = demand > 0 && weight/demand <= float64(days)
		if risk.CanDistributeInTime {
			continue
		}

		switch {
		case days <= 3:
			risk.Risk = domain.WasteCritical
			risk.Recommendation = "Distribute immediately or offer to partner agencies"
		case days <= 7:
			risk.Risk = domain.WasteHigh
			risk.Recommendation = "Prioritize in the next distributions"
		default:
			risk.Risk = domain.WasteMedium
			risk.Recommendation = "Feature in upcoming distributions"
		}
		risk.Priority = 100 - days
		summary.Risks = append(summary.Risks, risk)
	}

	sort.SliceStable(summary.Risks, func(i, j int) bool {
		return summary.Risks[i].Priority > summary.Risks[j].Priority
	})

	var atRisk float64
	for _, r := range summary.Risks {
		summary.CountByLevel[r.Risk]++
		switch r.Risk {
		case domain.WasteExpired, domain.WasteCritical, domain.WasteHigh:
			atRisk += r.Weight
		}
	}
	summary.TotalAtRiskWeight = round2(atRisk)

	return summary
}

// FindSlowMovers lists items held longer than thresholdDays, oldest first.
func FindSlowMovers(items []domain.DetailedItem, now time.Time, loc *time.Location, thresholdDays int) []domain.SlowMover {
	if loc == nil {
		loc = time.UTC
	}
	thresholdDays = positiveOr(thresholdDays, DefaultSlowMovingThresholdDays)

	out := make([]domain.SlowMover, 0)
	for _, item := range items {
		if item.AddedDate.IsZero() {
			continue
		}
		held := calendarDaysBetween(item.AddedDate, now, loc)
		if held <= thresholdDays {
			continue
		}
		out = append(out, domain.SlowMover{
			Category:  item.Category,
			Name:      item.Name,
			Weight:    round2(nonNegative(item.Weight)),
			Source:    item.Source,
			AddedDate: item.AddedDate,
			DaysHeld:  held,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysHeld > out[j].DaysHeld })
	return out
}
