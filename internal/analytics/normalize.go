package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

const localDateLayout = "2006-01-02"

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseStampText classifies free text: a bare YYYY-MM-DD is a local date,
// anything else non-empty is treated as an ISO string.
func ParseStampText(text string) domain.Stamp {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Stamp{Kind: domain.StampUnparseable}
	}
	if len(text) == len(localDateLayout) {
		if _, err := time.Parse(localDateLayout, text); err == nil {
			return domain.Stamp{Kind: domain.StampLocalDate, Text: text}
		}
	}
	return domain.Stamp{Kind: domain.StampISO, Text: text}
}

// ResolveStamp converts a stamp into an instant. Zone-less ISO strings and
// bare dates are interpreted in loc; bare dates at local midnight.
func ResolveStamp(s domain.Stamp, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch s.Kind {
	case domain.StampInstant:
		if s.Instant.IsZero() {
			return time.Time{}, false
		}
		return s.Instant.In(loc), true
	case domain.StampISO:
		text := strings.TrimSpace(s.Text)
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, text, loc); err == nil {
				return t.In(loc), true
			}
		}
		return time.Time{}, false
	case domain.StampLocalDate:
		t, err := time.ParseInLocation(localDateLayout, strings.TrimSpace(s.Text), loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// NormalizeStamp resolves the highest-precedence shape that parses:
// structured instant, then ISO string, then bare local date. The returned
// stamp is StampInstant on success and StampUnparseable otherwise.
func NormalizeStamp(f domain.StampFields, loc *time.Location) domain.Stamp {
	candidates := make([]domain.Stamp, 0, 3)
	if f.Instant != nil && !f.Instant.IsZero() {
		candidates = append(candidates, domain.Stamp{Kind: domain.StampInstant, Instant: *f.Instant})
	}
	if strings.TrimSpace(f.ISO) != "" {
		candidates = append(candidates, domain.Stamp{Kind: domain.StampISO, Text: f.ISO})
	}
	if strings.TrimSpace(f.Date) != "" {
		candidates = append(candidates, domain.Stamp{Kind: domain.StampLocalDate, Text: f.Date})
	}

	for _, c := range candidates {
		if t, ok := ResolveStamp(c, loc); ok {
			return domain.Stamp{Kind: domain.StampInstant, Instant: t}
		}
	}
	return domain.Stamp{Kind: domain.StampUnparseable}
}

// NormalizeEvents resolves raw events into canonical events. Records without
// a parseable timestamp are dropped and counted in diag.
func NormalizeEvents(raw []domain.RawEvent, loc *time.Location, diag *domain.Diagnostics) []domain.DistributionEvent {
	out := make([]domain.DistributionEvent, 0, len(raw))
	for _, r := range raw {
		stamp := NormalizeStamp(r.When, loc)
		if stamp.Kind != domain.StampInstant {
			if diag != nil {
				diag.UnparseableEvents++
			}
			continue
		}
		out = append(out, sanitizeEvent(domain.DistributionEvent{
			ID:             r.ID,
			OccurredAt:     stamp.Instant,
			Recipient:      r.Recipient,
			TotalWeight:    r.TotalWeight,
			ClientsServed:  r.ClientsServed,
			AgeGroups:      r.AgeGroups,
			CategoryTotals: r.CategoryTotals,
		}, diag))
	}
	return out
}

// NormalizeSnapshots resolves raw snapshots into canonical snapshots.
func NormalizeSnapshots(raw []domain.RawSnapshot, loc *time.Location, diag *domain.Diagnostics) []domain.InventorySnapshot {
	out := make([]domain.InventorySnapshot, 0, len(raw))
	for _, r := range raw {
		stamp := NormalizeStamp(r.When, loc)
		if stamp.Kind != domain.StampInstant {
			if diag != nil {
				diag.UnparseableSnapshots++
			}
			continue
		}
		out = append(out, domain.InventorySnapshot{
			TakenAt:        stamp.Instant,
			CategoryTotals: sanitizeTotals(r.CategoryTotals, diag),
		})
	}
	return out
}

// SortEvents orders events by instant, then by ID, in place.
func SortEvents(events []domain.DistributionEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].ID < events[j].ID
	})
}

// dedupeSnapshots keeps one snapshot per calendar day (the latest taken) and
// returns them in chronological order.
func dedupeSnapshots(snaps []domain.InventorySnapshot, loc *time.Location, diag *domain.Diagnostics) []domain.InventorySnapshot {
	byDay := make(map[string]int, len(snaps))
	out := make([]domain.InventorySnapshot, 0, len(snaps))
	for _, s := range snaps {
		key := s.TakenAt.In(loc).Format(localDateLayout)
		if idx, ok := byDay[key]; ok {
			if diag != nil {
				diag.DuplicateSnapshots++
			}
			if !s.TakenAt.Before(out[idx].TakenAt) {
				out[idx] = s
			}
			continue
		}
		byDay[key] = len(out)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out
}

func sanitizeEvent(e domain.DistributionEvent, diag *domain.Diagnostics) domain.DistributionEvent {
	clampInt := func(v int) int {
		if v < 0 {
			if diag != nil {
				diag.ClampedValues++
			}
			return 0
		}
		return v
	}

	if e.TotalWeight != nonNegative(e.TotalWeight) {
		if diag != nil {
			diag.ClampedValues++
		}
		e.TotalWeight = 0
	}
	e.ClientsServed = clampInt(e.ClientsServed)
	e.AgeGroups = domain.AgeGroups{
		Child: clampInt(e.AgeGroups.Child),
		Adult: clampInt(e.AgeGroups.Adult),
		Elder: clampInt(e.AgeGroups.Elder),
	}
	e.CategoryTotals = sanitizeTotals(e.CategoryTotals, diag)
	return e
}

func sanitizeTotals(in domain.CategoryTotals, diag *domain.Diagnostics) domain.CategoryTotals {
	out := make(domain.CategoryTotals, len(in))
	for c, w := range in {
		if !c.Valid() {
			continue
		}
		clean := nonNegative(w)
		if clean != w && diag != nil {
			diag.ClampedValues++
		}
		out[c] = clean
	}
	return out
}
