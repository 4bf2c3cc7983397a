package analytics

import "time"

const (
	DefaultLookbackDays            = 30
	DefaultForecastHorizonDays     = 30
	DefaultLeadTimeDays            = 7
	DefaultSafetyStockDays         = 7
	DefaultSlowMovingThresholdDays = 45
	DefaultStockoutWindowDays      = 30

	// NoDemandDaysOfSupply is the finite days-of-supply reported when there is
	// no demand to divide by.
	NoDemandDaysOfSupply = 999.0
)

// Options is the explicit configuration passed to every engine call.
type Options struct {
	// Now anchors every window. Identical inputs and Now give identical output.
	Now time.Time `json:"now"`
	// Location is used for bare dates and calendar-day arithmetic. Nil means UTC.
	Location *time.Location `json:"-"`

	LookbackDays            int `json:"lookback_days"`
	ForecastHorizonDays     int `json:"forecast_horizon_days"`
	LeadTimeDays            int `json:"lead_time_days"`
	SafetyStockDays         int `json:"safety_stock_days"`
	SlowMovingThresholdDays int `json:"slow_moving_threshold_days"`
	StockoutWindowDays      int `json:"stockout_window_days"`
}

// DefaultOptions returns the documented defaults anchored at now.
func DefaultOptions(now time.Time) Options {
	return Options{
		Now:                     now,
		Location:                time.UTC,
		LookbackDays:            DefaultLookbackDays,
		ForecastHorizonDays:     DefaultForecastHorizonDays,
		LeadTimeDays:            DefaultLeadTimeDays,
		SafetyStockDays:         DefaultSafetyStockDays,
		SlowMovingThresholdDays: DefaultSlowMovingThresholdDays,
		StockoutWindowDays:      DefaultStockoutWindowDays,
	}
}

// Normalize clamps out-of-range values to their defaults. Windows, horizon
// and thresholds must be positive; lead and safety time may be zero.
func (o Options) Normalize() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	o.Now = o.Now.In(o.Location)

	o.LookbackDays = positiveOr(o.LookbackDays, DefaultLookbackDays)
	o.ForecastHorizonDays = positiveOr(o.ForecastHorizonDays, DefaultForecastHorizonDays)
	o.SlowMovingThresholdDays = positiveOr(o.SlowMovingThresholdDays, DefaultSlowMovingThresholdDays)
	o.StockoutWindowDays = positiveOr(o.StockoutWindowDays, DefaultStockoutWindowDays)
	if o.LeadTimeDays < 0 {
		o.LeadTimeDays = DefaultLeadTimeDays
	}
	if o.SafetyStockDays < 0 {
		o.SafetyStockDays = DefaultSafetyStockDays
	}
	return o
}

// CoverDays is the number of days of stock a target must cover.
func (o Options) CoverDays() int {
	return o.LeadTimeDays + o.SafetyStockDays
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
