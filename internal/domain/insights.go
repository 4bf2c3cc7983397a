package domain

import "time"

// TurnoverResult is the turnover of one category over a window.
type TurnoverResult struct {
	Category             Category       `json:"category"`
	CurrentStock         float64        `json:"current_stock"`
	TotalDistributed     float64        `json:"total_distributed"`
	WindowDays           int            `json:"window_days"`
	AvgDailyDistribution float64        `json:"avg_daily_distribution"`
	TurnoverRate         float64        `json:"turnover_rate"`
	DaysOfSupply         float64        `json:"days_of_supply"`
	Status               TurnoverStatus `json:"status"`
}

// StockoutPrediction projects when a category runs out at its recent usage rate.
// When HasUsageData is false the category had no usage in the window and
// DaysUntilStockout and StockoutDate are nil.
type StockoutPrediction struct {
	Category          Category   `json:"category"`
	CurrentStock      float64    `json:"current_stock"`
	AvgDailyRate      float64    `json:"avg_daily_rate"`
	HasUsageData      bool       `json:"has_usage_data"`
	DaysUntilStockout *int       `json:"days_until_stockout"`
	StockoutDate      *time.Time `json:"stockout_date,omitempty"`
	Urgency           Urgency    `json:"urgency"`
	Note              string     `json:"note,omitempty"`
}

// ForecastResult is the trend-adjusted demand forecast for one category.
type ForecastResult struct {
	Category             Category       `json:"category"`
	AvgDailyDemand       float64        `json:"avg_daily_demand"`
	ProjectedDailyDemand float64        `json:"projected_daily_demand"`
	ForecastedTotal      float64        `json:"forecasted_total"`
	Trend                TrendDirection `json:"trend"`
	TrendPercentage      int            `json:"trend_percentage"`
	DataPoints           int            `json:"data_points"`
}

// DemandForecast is the forecaster output. An insufficient-data result has an
// empty Forecast, low confidence and an explanatory Message.
type DemandForecast struct {
	Forecast       map[Category]ForecastResult `json:"forecast"`
	Confidence     Confidence                  `json:"confidence"`
	Message        string                      `json:"message,omitempty"`
	HorizonDays    int                         `json:"horizon_days"`
	EventsAnalyzed int                         `json:"events_analyzed"`
}

// InventoryTarget compares the current stock of a category to its target.
type InventoryTarget struct {
	Category     Category     `json:"category"`
	CurrentStock float64      `json:"current_stock"`
	DailyDemand  float64      `json:"daily_demand"`
	TargetStock  float64      `json:"target_stock"`
	Gap          float64      `json:"gap"`
	DaysOfSupply float64      `json:"days_of_supply"`
	Status       TargetStatus `json:"status"`
}

// WasteRisk is an expiring item that cannot be distributed in time.
type WasteRisk struct {
	Category            Category   `json:"category"`
	Name                string     `json:"name"`
	Weight              float64    `json:"weight"`
	Source              string     `json:"source,omitempty"`
	ExpirationDate      time.Time  `json:"expiration_date"`
	DaysUntilExpiry     int        `json:"days_until_expiry"`
	Risk                WasteLevel `json:"risk"`
	Priority            int        `json:"priority"`
	CanDistributeInTime bool       `json:"can_distribute_in_time"`
	Recommendation      string     `json:"recommendation"`
}

// WasteSummary is the waste predictor output.
type WasteSummary struct {
	Risks             []WasteRisk        `json:"risks"`
	TotalAtRiskWeight float64            `json:"total_at_risk_weight"`
	CountByLevel      map[WasteLevel]int `json:"count_by_level"`
}

// SlowMover is an item that has been in stock longer than the slow-moving threshold.
type SlowMover struct {
	Category  Category  `json:"category"`
	Name      string    `json:"name"`
	Weight    float64   `json:"weight"`
	Source    string    `json:"source,omitempty"`
	AddedDate time.Time `json:"added_date"`
	DaysHeld  int       `json:"days_held"`
}

// RestockRecommendation is one ranked line of the restocking order list.
type RestockRecommendation struct {
	Category         Category `json:"category"`
	CurrentStock     float64  `json:"current_stock"`
	TargetStock      float64  `json:"target_stock"`
	RecommendedOrder float64  `json:"recommended_order"`
	Priority         Priority `json:"priority"`
	PriorityScore    int      `json:"priority_score"`
	Reasoning        string   `json:"reasoning"`
}

// RiskFactor explains one contribution to a risk assessment.
type RiskFactor struct {
	Type     string    `json:"type"`
	Severity RiskLevel `json:"severity"`
	Message  string    `json:"message"`
}

// RiskAssessment aggregates all signals into one score and level.
type RiskAssessment struct {
	Score          int          `json:"score"`
	Level          RiskLevel    `json:"level"`
	Recommendation string       `json:"recommendation"`
	Factors        []RiskFactor `json:"factors"`
}

// TrendBucket is one time bucket of the distribution rollups.
type TrendBucket struct {
	Key           string         `json:"key"`
	Start         *time.Time     `json:"start,omitempty"`
	Events        int            `json:"events"`
	TotalWeight   float64        `json:"total_weight"`
	ClientsServed int            `json:"clients_served"`
	AgeGroups     AgeGroups      `json:"age_groups"`
	ByCategory    CategoryTotals `json:"by_category"`
}

// DemographicShare is the per-week percentage breakdown across age groups.
type DemographicShare struct {
	Week       string  `json:"week"`
	ChildPct   float64 `json:"child_pct"`
	AdultPct   float64 `json:"adult_pct"`
	ElderPct   float64 `json:"elder_pct"`
	TotalCount int     `json:"total_count"`
}

// TrendSeries holds every rollup granularity with its peak bucket.
type TrendSeries struct {
	Daily        []TrendBucket      `json:"daily"`
	Weekly       []TrendBucket      `json:"weekly"`
	Monthly      []TrendBucket      `json:"monthly"`
	DayOfWeek    []TrendBucket      `json:"day_of_week"`
	PeakDay      *TrendBucket       `json:"peak_day,omitempty"`
	PeakWeek     *TrendBucket       `json:"peak_week,omitempty"`
	PeakMonth    *TrendBucket       `json:"peak_month,omitempty"`
	PeakWeekday  *TrendBucket       `json:"peak_weekday,omitempty"`
	Demographics []DemographicShare `json:"demographics"`
}

// Diagnostics counts records the engine excluded or corrected.
type Diagnostics struct {
	EventsReceived       int `json:"events_received"`
	EventsUsed           int `json:"events_used"`
	UnparseableEvents    int `json:"unparseable_events"`
	SnapshotsReceived    int `json:"snapshots_received"`
	UnparseableSnapshots int `json:"unparseable_snapshots"`
	DuplicateSnapshots   int `json:"duplicate_snapshots"`
	ItemsReceived        int `json:"items_received"`
	ClampedValues        int `json:"clamped_values"`
}
