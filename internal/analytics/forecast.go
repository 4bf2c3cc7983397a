package analytics

import (
	"math"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

const (
	minForecastEvents        = 3
	mediumConfidenceEvents   = 5
	highConfidenceEvents     = 10
	insufficientForecastText = "Insufficient historical data for forecasting"
)

// ForecastDemand produces a trend-adjusted moving-average forecast per
// category from events in the trailing lookbackDays before now.
//
// The trend is the ratio of the mean of the second half of a category's
// chronological values to the mean of the first half. It is a plain
// heuristic so operators can follow how every number was produced.
func ForecastDemand(events []domain.DistributionEvent, now time.Time, lookbackDays, horizonDays int) domain.DemandForecast {
	lookbackDays = positiveOr(lookbackDays, DefaultLookbackDays)
	horizonDays = positiveOr(horizonDays, DefaultForecastHorizonDays)

	window := make([]domain.DistributionEvent, 0, len(events))
	for _, e := range events {
		if withinWindow(e.OccurredAt, now, lookbackDays) {
			window = append(window, e)
		}
	}

	if len(window) < minForecastEvents {
		return domain.DemandForecast{
			Forecast:       map[domain.Category]domain.ForecastResult{},
			Confidence:     domain.ConfidenceLow,
			Message:        insufficientForecastText,
			HorizonDays:    horizonDays,
			EventsAnalyzed: len(window),
		}
	}

	// The half split is only meaningful on chronologically ordered values.
	SortEvents(window)

	series := make(map[domain.Category][]float64)
	for _, e := range window {
		for _, c := range domain.Categories {
			w := nonNegative(e.CategoryTotals[c])
			if w > 0 {
				series[c] = append(series[c], w)
			}
		}
	}

	forecast := make(map[domain.Category]domain.ForecastResult, len(series))
	for _, c := range domain.Categories {
		values, ok := series[c]
		if !ok {
			continue
		}
		forecast[c] = forecastCategory(c, values, lookbackDays, horizonDays)
	}

	return domain.DemandForecast{
		Forecast:       forecast,
		Confidence:     confidenceFor(len(window)),
		HorizonDays:    horizonDays,
		EventsAnalyzed: len(window),
	}
}

func forecastCategory(c domain.Category, values []float64, lookbackDays, horizonDays int) domain.ForecastResult {
	var sum float64
	for _, v := range values {
		sum += v
	}
	avgDaily := sum / float64(lookbackDays)

	mid := len(values) / 2
	firstMean := mean(values[:mid])
	secondMean := mean(values[mid:])

	trendFactor := 1.0
	if firstMean != 0 {
		trendFactor = secondMean / firstMean
	}

	projectionFactor := trendFactor
	if projectionFactor <= 0 {
		projectionFactor = 1
	}
	projected := avgDaily * projectionFactor

	trend := domain.TrendStable
	switch {
	case trendFactor > 1.1:
		trend = domain.TrendIncreasing
	case trendFactor < 0.9:
		trend = domain.TrendDecreasing
	}

	return domain.ForecastResult{
		Category:             c,
		AvgDailyDemand:       round2(avgDaily),
		ProjectedDailyDemand: round2(projected),
		ForecastedTotal:      round2(projected * float64(horizonDays)),
		Trend:                trend,
		TrendPercentage:      int(math.Round((trendFactor - 1) * 100)),
		DataPoints:           len(values),
	}
}

func confidenceFor(events int) domain.Confidence {
	switch {
	case events >= highConfidenceEvents:
		return domain.ConfidenceHigh
	case events >= mediumConfidenceEvents:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
