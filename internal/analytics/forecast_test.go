package analytics

import (
	"reflect"
	"testing"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

func dairySeries(values ...float64) []domain.DistributionEvent {
	// values are chronological; the slice is built newest first so the
	// forecaster has to sort it.
	out := make([]domain.DistributionEvent, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		ago := float64(5 * (len(values) - i))
		out = append(out, event(string(rune('a'+i)), daysAgo(ago), domain.CategoryTotals{domain.CategoryDairy: values[i]}))
	}
	return out
}

func TestForecastDemand_InputOrderDoesNotMatter(t *testing.T) {
	chronological := dairySeries(10, 10, 20, 20, 30, 30)
	SortEvents(chronological)
	want := ForecastDemand(chronological, testNow, 30, 30)
	if f := want.Forecast[domain.CategoryDairy]; f.Trend != domain.TrendIncreasing {
		t.Fatalf("sorted series trend = %s, want increasing", f.Trend)
	}

	reordered := map[string][]int{
		"reversed": {5, 4, 3, 2, 1, 0},
		"shuffled": {3, 0, 5, 1, 4, 2},
		"halves":   {3, 4, 5, 0, 1, 2},
	}
	for name, order := range reordered {
		t.Run(name, func(t *testing.T) {
			events := make([]domain.DistributionEvent, 0, len(order))
			for _, i := range order {
				events = append(events, chronological[i])
			}
			got := ForecastDemand(events, testNow, 30, 30)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("forecast = %+v, want %+v", got.Forecast[domain.CategoryDairy], want.Forecast[domain.CategoryDairy])
			}
		})
	}
}

func TestForecastDemand_Insufficient(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		got := ForecastDemand(evenEvents(n, 10, domain.CategoryDairy, 10), testNow, 30, 30)
		if len(got.Forecast) != 0 {
			t.Errorf("%d events: forecast should be empty, got %d entries", n, len(got.Forecast))
		}
		if got.Forecast == nil {
			t.Errorf("%d events: forecast map should be empty, not nil", n)
		}
		if got.Confidence != domain.ConfidenceLow {
			t.Errorf("%d events: confidence = %s, want low", n, got.Confidence)
		}
		if got.Message != insufficientForecastText {
			t.Errorf("%d events: message = %q", n, got.Message)
		}
	}
}

func TestForecastDemand_Trend(t *testing.T) {
	tests := []struct {
		name          string
		values        []float64
		wantTrend     domain.TrendDirection
		wantPct       int
		wantAvg       float64
		wantProjected float64
		wantTotal     float64
	}{
		{name: "increasing", values: []float64{10, 10, 20, 20}, wantTrend: domain.TrendIncreasing, wantPct: 100, wantAvg: 2, wantProjected: 4, wantTotal: 120},
		{name: "decreasing", values: []float64{20, 20, 10, 10}, wantTrend: domain.TrendDecreasing, wantPct: -50, wantAvg: 2, wantProjected: 1, wantTotal: 30},
		{name: "stable", values: []float64{10, 11, 10, 11}, wantTrend: domain.TrendStable, wantPct: 0, wantAvg: 1.4, wantProjected: 1.4, wantTotal: 42},
		{name: "odd_count_puts_extra_in_second_half", values: []float64{10, 20, 30}, wantTrend: domain.TrendIncreasing, wantPct: 150, wantAvg: 2, wantProjected: 5, wantTotal: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForecastDemand(dairySeries(tt.values...), testNow, 30, 30)
			f, ok := got.Forecast[domain.CategoryDairy]
			if !ok {
				t.Fatalf("missing dairy forecast: %+v", got)
			}
			if f.Trend != tt.wantTrend || f.TrendPercentage != tt.wantPct {
				t.Errorf("trend = %s (%d%%), want %s (%d%%)", f.Trend, f.TrendPercentage, tt.wantTrend, tt.wantPct)
			}
			if f.AvgDailyDemand != tt.wantAvg {
				t.Errorf("avg daily = %v, want %v", f.AvgDailyDemand, tt.wantAvg)
			}
			if f.ProjectedDailyDemand != tt.wantProjected {
				t.Errorf("projected = %v, want %v", f.ProjectedDailyDemand, tt.wantProjected)
			}
			if f.ForecastedTotal != tt.wantTotal {
				t.Errorf("forecasted total = %v, want %v", f.ForecastedTotal, tt.wantTotal)
			}
			if f.DataPoints != len(tt.values) {
				t.Errorf("data points = %d, want %d", f.DataPoints, len(tt.values))
			}
		})
	}
}

func TestForecastDemand_Confidence(t *testing.T) {
	tests := []struct {
		events int
		want   domain.Confidence
	}{
		{events: 3, want: domain.ConfidenceLow},
		{events: 5, want: domain.ConfidenceMedium},
		{events: 9, want: domain.ConfidenceMedium},
		{events: 10, want: domain.ConfidenceHigh},
	}
	for _, tt := range tests {
		got := ForecastDemand(evenEvents(tt.events, 20, domain.CategoryGrain, 15), testNow, 30, 30)
		if got.Confidence != tt.want {
			t.Errorf("%d events: confidence = %s, want %s", tt.events, got.Confidence, tt.want)
		}
		if got.EventsAnalyzed != tt.events {
			t.Errorf("%d events: analyzed = %d", tt.events, got.EventsAnalyzed)
		}
	}
}

func TestForecastDemand_IgnoresEventsOutsideLookback(t *testing.T) {
	events := evenEvents(3, 10, domain.CategoryDairy, 30)
	events = append(events, event("old", daysAgo(40), domain.CategoryTotals{domain.CategoryDairy: 900}))

	got := ForecastDemand(events, testNow, 30, 30)
	if got.EventsAnalyzed != 3 {
		t.Fatalf("analyzed = %d, want 3", got.EventsAnalyzed)
	}
	if avg := got.Forecast[domain.CategoryDairy].AvgDailyDemand; avg != 3 {
		t.Errorf("avg daily = %v, want 3", avg)
	}
}

func TestForecastDemand_Idempotent(t *testing.T) {
	events := append(dairySeries(12, 8, 15, 9, 20), evenEvents(4, 25, domain.CategoryProtein, 7.5)...)

	first := ForecastDemand(events, testNow, 30, 14)
	second := ForecastDemand(events, testNow, 30, 14)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("forecast is not deterministic:\n%+v\n%+v", first, second)
	}
}
