package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

// Format is an output rendering of a report.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" and "csv"; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Extension returns the file extension of the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Render encodes the report in the given format.
func Render(r *analytics.Report, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, r)
	case FormatJSON:
		err = WriteJSON(&buf, r, true)
	default:
		err = fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON writes the report as JSON.
func WriteJSON(w io.Writer, r *analytics.Report, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteCSV flattens the report into section,key,field,value rows.
func WriteCSV(w io.Writer, r *analytics.Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"section", "key", "field", "value"}}
	add := func(section, key, field, value string) {
		rows = append(rows, []string{section, key, field, value})
	}

	add("summary", "", "generated_at", r.GeneratedAt.Format(time.RFC3339))
	add("summary", "", "total_inventory", num(r.TotalInventory))
	add("summary", "", "risk_score", strconv.Itoa(r.Risk.Score))
	add("summary", "", "risk_level", string(r.Risk.Level))
	add("summary", "", "forecast_confidence", string(r.Forecast.Confidence))
	if r.Forecast.Message != "" {
		add("summary", "", "forecast_message", r.Forecast.Message)
	}

	for _, c := range domain.Categories {
		t, ok := r.Turnover[c]
		if !ok {
			continue
		}
		key := string(c)
		add("turnover", key, "turnover_rate", num(t.TurnoverRate))
		add("turnover", key, "days_of_supply", num(t.DaysOfSupply))
		add("turnover", key, "avg_daily_distribution", num(t.AvgDailyDistribution))
		add("turnover", key, "status", string(t.Status))
	}

	for _, c := range domain.Categories {
		s, ok := r.Stockouts[c]
		if !ok {
			continue
		}
		key := string(c)
		days := ""
		if s.DaysUntilStockout != nil {
			days = strconv.Itoa(*s.DaysUntilStockout)
		}
		add("stockouts", key, "days_until_stockout", days)
		add("stockouts", key, "avg_daily_rate", num(s.AvgDailyRate))
		add("stockouts", key, "urgency", string(s.Urgency))
	}

	for _, c := range domain.Categories {
		f, ok := r.Forecast.Forecast[c]
		if !ok {
			continue
		}
		key := string(c)
		add("forecast", key, "projected_daily_demand", num(f.ProjectedDailyDemand))
		add("forecast", key, "forecasted_total", num(f.ForecastedTotal))
		add("forecast", key, "trend", string(f.Trend))
		add("forecast", key, "trend_percentage", strconv.Itoa(f.TrendPercentage))
	}

	for _, t := range r.Targets {
		key := string(t.Category)
		add("targets", key, "target_stock", num(t.TargetStock))
		add("targets", key, "gap", num(t.Gap))
		add("targets", key, "status", string(t.Status))
	}

	for _, rec := range r.Restock {
		key := string(rec.Category)
		add("restock", key, "recommended_order", num(rec.RecommendedOrder))
		add("restock", key, "priority", string(rec.Priority))
		add("restock", key, "priority_score", strconv.Itoa(rec.PriorityScore))
		add("restock", key, "reasoning", rec.Reasoning)
	}

	for _, wr := range r.Waste.Risks {
		key := fmt.Sprintf("%s/%s", wr.Category, wr.Name)
		add("waste", key, "risk", string(wr.Risk))
		add("waste", key, "days_until_expiry", strconv.Itoa(wr.DaysUntilExpiry))
		add("waste", key, "weight", num(wr.Weight))
	}

	for _, sm := range r.SlowMovers {
		add("slow_movers", fmt.Sprintf("%s/%s", sm.Category, sm.Name), "days_held", strconv.Itoa(sm.DaysHeld))
	}

	for _, f := range r.Risk.Factors {
		add("risk", f.Type, string(f.Severity), f.Message)
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write report csv: %w", err)
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
