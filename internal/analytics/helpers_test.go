package analytics

import (
	"fmt"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func daysAgo(days float64) time.Time {
	return testNow.Add(-time.Duration(days * float64(24*time.Hour)))
}

func event(id string, at time.Time, totals domain.CategoryTotals) domain.DistributionEvent {
	return domain.DistributionEvent{
		ID:             id,
		OccurredAt:     at,
		TotalWeight:    totals.Sum(),
		CategoryTotals: totals,
	}
}

// evenEvents spreads n events of weight w for category c over the last days.
func evenEvents(n int, days float64, c domain.Category, w float64) []domain.DistributionEvent {
	out := make([]domain.DistributionEvent, 0, n)
	for i := 0; i < n; i++ {
		at := daysAgo(days * (float64(i) + 0.5) / float64(n))
		out = append(out, event(fmt.Sprintf("e%02d", i), at, domain.CategoryTotals{c: w}))
	}
	return out
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int {
	return &v
}
