package analytics

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

const (
	riskPerCriticalCategory = 30
	riskPerHighCategory     = 15
	riskHeavyWaste          = 25
	riskAnyWaste            = 10
	riskLowInventory        = 20

	heavyWasteWeight   = 1000.0
	lowInventoryWeight = 10000.0
)

var riskRecommendations = map[domain.RiskLevel]string{
	domain.RiskCritical: "Immediate action required: place emergency orders and redistribute expiring stock",
	domain.RiskHigh:     "Schedule restocking this week and review expiring items",
	domain.RiskMedium:   "Monitor closely and plan the next restock",
	domain.RiskLow:      "Inventory is healthy; continue regular monitoring",
}

// AssessRisk adds up stockout, waste and inventory-level signals into one
// score in [0, 100]. Factors are listed in the order the checks run.
func AssessRisk(stockouts map[domain.Category]domain.StockoutPrediction, waste domain.WasteSummary, totalInventory float64) domain.RiskAssessment {
	var (
		score    int
		factors  = make([]domain.RiskFactor, 0, 4)
		critical []string
		high     []string
	)

	for _, c := range domain.Categories {
		s, ok := stockouts[c]
		if !ok {
			continue
		}
		switch s.Urgency {
		case domain.UrgencyCritical:
			critical = append(critical, string(c))
		case domain.UrgencyHigh:
			high = append(high, string(c))
		}
	}

	// 1. Critical stockouts
	if len(critical) > 0 {
		score += riskPerCriticalCategory * len(critical)
		factors = append(factors, domain.RiskFactor{
			Type:     "stockout",
			Severity: domain.RiskCritical,
			Message:  fmt.Sprintf("%d categor%s at critical stockout risk: %s", len(critical), plural(len(critical)), strings.Join(critical, ", ")),
		})
	}

	// 2. High stockouts
	if len(high) > 0 {
		score += riskPerHighCategory * len(high)
		factors = append(factors, domain.RiskFactor{
			Type:     "stockout",
			Severity: domain.RiskHigh,
			Message:  fmt.Sprintf("%d categor%s at high stockout risk: %s", len(high), plural(len(high)), strings.Join(high, ", ")),
		})
	}

	// 3. Waste
	switch {
	case waste.TotalAtRiskWeight > heavyWasteWeight:
		score += riskHeavyWaste
		factors = append(factors, domain.RiskFactor{
			Type:     "waste",
			Severity: domain.RiskHigh,
			Message:  fmt.Sprintf("%.2f units of stock expired or about to expire", waste.TotalAtRiskWeight),
		})
	case len(waste.Risks) > 0:
		score += riskAnyWaste
		factors = append(factors, domain.RiskFactor{
			Type:     "waste",
			Severity: domain.RiskMedium,
			Message:  fmt.Sprintf("%d item(s) at risk of expiring before distribution", len(waste.Risks)),
		})
	}

	// 4. Low overall inventory
	if nonNegative(totalInventory) < lowInventoryWeight {
		score += riskLowInventory
		factors = append(factors, domain.RiskFactor{
			Type:     "inventory",
			Severity: domain.RiskMedium,
			Message:  fmt.Sprintf("Total inventory of %.2f units is below %.0f", nonNegative(totalInventory), lowInventoryWeight),
		})
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	level := riskLevelFor(score)
	return domain.RiskAssessment{
		Score:          score,
		Level:          level,
		Recommendation: riskRecommendations[level],
		Factors:        factors,
	}
}

func riskLevelFor(score int) domain.RiskLevel {
	switch {
	case score >= 50:
		return domain.RiskCritical
	case score >= 30:
		return domain.RiskHigh
	case score >= 15:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
