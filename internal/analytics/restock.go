package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

const slowMovingPenalty = 10

// RecommendRestock merges turnover and stockout signals into a ranked order
// list. Output is sorted by score descending; equal scores keep canonical
// category order.
func RecommendRestock(
	turnover map[domain.Category]domain.TurnoverResult,
	stockouts map[domain.Category]domain.StockoutPrediction,
	leadTimeDays, safetyStockDays int,
) []domain.RestockRecommendation {
	coverDays := leadTimeDays + safetyStockDays
	recs := make([]domain.RestockRecommendation, 0, len(domain.Categories))

	for _, c := range domain.Categories {
		t, hasTurnover := turnover[c]
		s, hasStockout := stockouts[c]
		if !hasTurnover && !hasStockout {
			continue
		}

		currentStock := t.CurrentStock
		if !hasTurnover {
			currentStock = s.CurrentStock
		}
		outOfStock := currentStock <= 0

		// Missing signals or no distribution history: nothing to size an
		// order against unless the shelf is empty.
		if !outOfStock && (!hasTurnover || !hasStockout || t.AvgDailyDistribution == 0) {
			continue
		}

		// 1. Target and order size
		target := t.AvgDailyDistribution * float64(coverDays)
		order := math.Max(0, target-currentStock)

		// 2. Priority tier and score
		var (
			priority domain.Priority
			score    int
			reasons  []string
		)
		switch {
		case s.Urgency == domain.UrgencyCritical:
			priority, score = domain.PriorityCritical, 100
			reasons = append(reasons, "critical stockout risk")
		case s.Urgency == domain.UrgencyHigh:
			priority, score = domain.PriorityHigh, 75
			reasons = append(reasons, "high stockout risk")
		case s.DaysUntilStockout != nil && *s.DaysUntilStockout < coverDays:
			priority, score = domain.PriorityMedium, 50
			reasons = append(reasons, fmt.Sprintf("stock lasts %d days, less than %d days of lead and safety time", *s.DaysUntilStockout, coverDays))
		default:
			priority, score = domain.PriorityLow, 0
		}
		if s.DaysUntilStockout != nil && s.HasUsageData && s.Urgency != domain.UrgencyCritical {
			reasons = append(reasons, fmt.Sprintf("about %d days until stockout", *s.DaysUntilStockout))
		}

		// 3. Slow movers lose score but keep their tier
		if t.Status == domain.TurnoverSlow {
			score -= slowMovingPenalty
			reasons = append(reasons, "slow moving, consider a smaller order")
		}

		// 4. An empty shelf overrides everything above
		if outOfStock {
			priority, score = domain.PriorityCritical, 100
			reasons = []string{"out of stock"}
		}

		if order <= 0 && priority != domain.PriorityCritical {
			continue
		}

		recs = append(recs, domain.RestockRecommendation{
			Category:         c,
			CurrentStock:     round2(currentStock),
			TargetStock:      round2(target),
			RecommendedOrder: round2(order),
			Priority:         priority,
			PriorityScore:    score,
			Reasoning:        reasoningText(reasons),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].PriorityScore > recs[j].PriorityScore
	})
	return recs
}

func reasoningText(reasons []string) string {
	if len(reasons) == 0 {
		return "Stock below target level"
	}
	text := strings.Join(reasons, "; ")
	return strings.ToUpper(text[:1]) + text[1:]
}
