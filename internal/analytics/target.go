package analytics

import (
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

// CalculateTarget derives the target stock of a category from its projected
// daily demand and the lead plus safety cover days.
func CalculateTarget(category domain.Category, dailyDemand, currentStock float64, leadTimeDays, safetyStockDays int) domain.InventoryTarget {
	demand := nonNegative(dailyDemand)
	stock := nonNegative(currentStock)

	// 1. Target = demand × (lead time + safety stock)
	target := demand * float64(leadTimeDays+safetyStockDays)
	gap := target - stock

	// 2. Days of supply, finite when there is no demand
	daysOfSupply := NoDemandDaysOfSupply
	if demand > 0 {
		daysOfSupply = stock / demand
	}

	// 3. Status
	status := domain.TargetAdequate
	switch {
	case gap > 0.5*target:
		status = domain.TargetCritical
	case gap > 0.25*target:
		status = domain.TargetLow
	case gap < -0.5*target:
		status = domain.TargetOverstocked
	}

	return domain.InventoryTarget{
		Category:     category,
		CurrentStock: round2(stock),
		DailyDemand:  round2(demand),
		TargetStock:  round2(target),
		Gap:          round2(gap),
		DaysOfSupply: round2(daysOfSupply),
		Status:       status,
	}
}

// CalculateTargets computes targets for every category that has a forecast
// or a stock level, in canonical category order.
func CalculateTargets(forecast domain.DemandForecast, stock domain.CategoryTotals, leadTimeDays, safetyStockDays int) []domain.InventoryTarget {
	out := make([]domain.InventoryTarget, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		f, hasForecast := forecast.Forecast[c]
		current, hasStock := stock[c]
		if !hasForecast && !hasStock {
			continue
		}
		out = append(out, CalculateTarget(c, f.ProjectedDailyDemand, current, leadTimeDays, safetyStockDays))
	}
	return out
}
