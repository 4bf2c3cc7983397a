package analytics

import (
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

// Input is the bounded, time-windowed view the read layer hands to the
// engine. Raw records are normalized once; already-normalized records are
// only sanitized.
type Input struct {
	Events       []domain.DistributionEvent `json:"events,omitempty"`
	RawEvents    []domain.RawEvent          `json:"raw_events,omitempty"`
	Snapshots    []domain.InventorySnapshot `json:"snapshots,omitempty"`
	RawSnapshots []domain.RawSnapshot       `json:"raw_snapshots,omitempty"`
	Items        []domain.DetailedItem      `json:"items,omitempty"`
}

// Report is the complete engine output for one call.
type Report struct {
	GeneratedAt    time.Time                                      `json:"generated_at"`
	Options        Options                                        `json:"options"`
	CurrentStock   domain.CategoryTotals                          `json:"current_stock"`
	StockTakenAt   *time.Time                                     `json:"stock_taken_at,omitempty"`
	TotalInventory float64                                        `json:"total_inventory"`
	Turnover       map[domain.Category]domain.TurnoverResult      `json:"turnover"`
	Stockouts      map[domain.Category]domain.StockoutPrediction  `json:"stockouts"`
	Forecast       domain.DemandForecast                          `json:"forecast"`
	Targets        []domain.InventoryTarget                       `json:"targets"`
	Waste          domain.WasteSummary                            `json:"waste"`
	SlowMovers     []domain.SlowMover                             `json:"slow_movers"`
	Restock        []domain.RestockRecommendation                 `json:"restock"`
	Risk           domain.RiskAssessment                          `json:"risk"`
	Trends         domain.TrendSeries                             `json:"trends"`
	Diagnostics    domain.Diagnostics                             `json:"diagnostics"`
}

// Analyze runs the whole data flow once: normalize, then turnover, stockout
// and forecast, then targets, waste and restocking, then risk. It always
// returns a complete report.
func Analyze(in Input, opts Options) Report {
	opts = opts.Normalize()
	now, loc := opts.Now, opts.Location

	diag := domain.Diagnostics{
		EventsReceived:    len(in.Events) + len(in.RawEvents),
		SnapshotsReceived: len(in.Snapshots) + len(in.RawSnapshots),
		ItemsReceived:     len(in.Items),
	}

	// 1. Normalize
	events := make([]domain.DistributionEvent, 0, diag.EventsReceived)
	for _, e := range in.Events {
		if e.OccurredAt.IsZero() {
			diag.UnparseableEvents++
			continue
		}
		events = append(events, sanitizeEvent(e, &diag))
	}
	events = append(events, NormalizeEvents(in.RawEvents, loc, &diag)...)
	SortEvents(events)

	snaps := make([]domain.InventorySnapshot, 0, diag.SnapshotsReceived)
	for _, s := range in.Snapshots {
		if s.TakenAt.IsZero() {
			diag.UnparseableSnapshots++
			continue
		}
		snaps = append(snaps, domain.InventorySnapshot{TakenAt: s.TakenAt, CategoryTotals: sanitizeTotals(s.CategoryTotals, &diag)})
	}
	snaps = append(snaps, NormalizeSnapshots(in.RawSnapshots, loc, &diag)...)
	snaps = dedupeSnapshots(snaps, loc, &diag)

	past := make([]domain.DistributionEvent, 0, len(events))
	for _, e := range events {
		if !e.OccurredAt.After(now) {
			past = append(past, e)
		}
	}
	diag.EventsUsed = len(past)

	stock, takenAt := currentStock(snaps, now)

	// 2. Leaf calculators
	turnover := TurnoverByCategory(stock, past, now, opts.LookbackDays)
	stockouts := PredictStockouts(stock, past, now, opts.StockoutWindowDays)
	forecast := ForecastDemand(past, now, opts.LookbackDays, opts.ForecastHorizonDays)

	// 3. Targets, waste and restocking
	targets := CalculateTargets(forecast, stock, opts.LeadTimeDays, opts.SafetyStockDays)
	waste := PredictWaste(in.Items, categoryDemand(forecast, stockouts), now, loc)
	slow := FindSlowMovers(in.Items, now, loc, opts.SlowMovingThresholdDays)
	// restock and stockout urgency share the stockout window's daily rate
	usage := turnover
	if opts.StockoutWindowDays != opts.LookbackDays {
		usage = TurnoverByCategory(stock, past, now, opts.StockoutWindowDays)
	}
	restock := RecommendRestock(usage, stockouts, opts.LeadTimeDays, opts.SafetyStockDays)

	// 4. Risk
	total := stock.Sum()
	risk := AssessRisk(stockouts, waste, total)

	return Report{
		GeneratedAt:    now,
		Options:        opts,
		CurrentStock:   stock,
		StockTakenAt:   takenAt,
		TotalInventory: round2(total),
		Turnover:       turnover,
		Stockouts:      stockouts,
		Forecast:       forecast,
		Targets:        targets,
		Waste:          waste,
		SlowMovers:     slow,
		Restock:        restock,
		Risk:           risk,
		Trends:         AggregateTrends(past, loc),
		Diagnostics:    diag,
	}
}

// currentStock returns the latest snapshot taken at or before now.
func currentStock(snaps []domain.InventorySnapshot, now time.Time) (domain.CategoryTotals, *time.Time) {
	for i := len(snaps) - 1; i >= 0; i-- {
		if snaps[i].TakenAt.After(now) {
			continue
		}
		at := snaps[i].TakenAt
		stock := make(domain.CategoryTotals, len(snaps[i].CategoryTotals))
		for c, w := range snaps[i].CategoryTotals {
			stock[c] = w
		}
		return stock, &at
	}
	return make(domain.CategoryTotals), nil
}

// categoryDemand prefers the forecast's projected demand and falls back to
// the recent stockout usage rate.
func categoryDemand(forecast domain.DemandForecast, stockouts map[domain.Category]domain.StockoutPrediction) map[domain.Category]float64 {
	demand := make(map[domain.Category]float64, len(domain.Categories))
	for _, c := range domain.Categories {
		if f, ok := forecast.Forecast[c]; ok && f.ProjectedDailyDemand > 0 {
			demand[c] = f.ProjectedDailyDemand
			continue
		}
		if s, ok := stockouts[c]; ok {
			demand[c] = s.AvgDailyRate
		}
	}
	return demand
}
