package analytics

import (
	"testing"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

func TestParseStampText(t *testing.T) {
	tests := []struct {
		in   string
		want domain.StampKind
	}{
		{in: "2026-03-02", want: domain.StampLocalDate},
		{in: " 2026-03-02 ", want: domain.StampLocalDate},
		{in: "2026-03-02T10:00:00Z", want: domain.StampISO},
		{in: "2026-13-45", want: domain.StampISO},
		{in: "", want: domain.StampUnparseable},
	}
	for _, tt := range tests {
		if got := ParseStampText(tt.in); got.Kind != tt.want {
			t.Errorf("ParseStampText(%q) = %s, want %s", tt.in, got.Kind, tt.want)
		}
	}
}

func TestNormalizeStamp(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	instant := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		fields domain.StampFields
		want   time.Time
		ok     bool
	}{
		{
			name:   "instant_beats_iso",
			fields: domain.StampFields{Instant: &instant, ISO: "2026-01-01T00:00:00Z", Date: "2025-12-31"},
			want:   instant, ok: true,
		},
		{
			name:   "iso_with_zone",
			fields: domain.StampFields{ISO: "2026-03-02T10:00:00Z"},
			want:   time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC), ok: true,
		},
		{
			name:   "iso_without_zone_is_local",
			fields: domain.StampFields{ISO: "2026-03-02T10:00:00"},
			want:   time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC), ok: true,
		},
		{
			name:   "bare_date_is_local_midnight",
			fields: domain.StampFields{Date: "2026-03-02"},
			want:   time.Date(2026, time.March, 2, 5, 0, 0, 0, time.UTC), ok: true,
		},
		{
			name:   "bad_iso_falls_through_to_date",
			fields: domain.StampFields{ISO: "yesterday", Date: "2026-03-02"},
			want:   time.Date(2026, time.March, 2, 5, 0, 0, 0, time.UTC), ok: true,
		},
		{name: "garbage", fields: domain.StampFields{ISO: "soon", Date: "later"}},
		{name: "empty", fields: domain.StampFields{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeStamp(tt.fields, loc)
			if !tt.ok {
				if got.Kind != domain.StampUnparseable {
					t.Errorf("kind = %s, want unparseable", got.Kind)
				}
				return
			}
			if got.Kind != domain.StampInstant {
				t.Fatalf("kind = %s, want instant", got.Kind)
			}
			if !got.Instant.Equal(tt.want) {
				t.Errorf("instant = %v, want %v", got.Instant, tt.want)
			}
		})
	}
}

func TestNormalizeEvents_DropsAndClamps(t *testing.T) {
	raw := []domain.RawEvent{
		{
			ID:             "ok",
			When:           domain.StampFields{Date: "2026-03-02"},
			TotalWeight:    10,
			ClientsServed:  -1,
			CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: -5, domain.CategoryGrain: 10, "CANDY": 3},
		},
		{ID: "bad", When: domain.StampFields{ISO: "not a time"}},
	}
	var diag domain.Diagnostics

	got := NormalizeEvents(raw, time.UTC, &diag)

	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("events = %+v", got)
	}
	if diag.UnparseableEvents != 1 {
		t.Errorf("unparseable = %d, want 1", diag.UnparseableEvents)
	}
	if diag.ClampedValues != 2 {
		t.Errorf("clamped = %d, want 2", diag.ClampedValues)
	}
	e := got[0]
	if e.ClientsServed != 0 || e.CategoryTotals[domain.CategoryDairy] != 0 || e.CategoryTotals[domain.CategoryGrain] != 10 {
		t.Errorf("event not sanitized: %+v", e)
	}
	if _, ok := e.CategoryTotals["CANDY"]; ok {
		t.Error("unknown categories should be dropped")
	}
}

func TestSortEvents_TiesBreakOnID(t *testing.T) {
	same := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	events := []domain.DistributionEvent{
		{ID: "c", OccurredAt: same},
		{ID: "z", OccurredAt: same.Add(-time.Hour)},
		{ID: "a", OccurredAt: same},
	}

	SortEvents(events)

	want := []string{"z", "a", "c"}
	for i, id := range want {
		if events[i].ID != id {
			t.Errorf("events[%d] = %s, want %s", i, events[i].ID, id)
		}
	}
}

func TestDedupeSnapshots_LatestPerDayWins(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2026, time.March, d, h, 0, 0, 0, time.UTC) }
	snaps := []domain.InventorySnapshot{
		{TakenAt: day(3, 8), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 1}},
		{TakenAt: day(2, 18), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 2}},
		{TakenAt: day(3, 17), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 3}},
		{TakenAt: day(3, 9), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 4}},
	}
	var diag domain.Diagnostics

	got := dedupeSnapshots(snaps, time.UTC, &diag)

	if len(got) != 2 {
		t.Fatalf("snapshots = %+v", got)
	}
	if got[0].CategoryTotals[domain.CategoryDairy] != 2 || got[1].CategoryTotals[domain.CategoryDairy] != 3 {
		t.Errorf("unexpected survivors: %+v", got)
	}
	if diag.DuplicateSnapshots != 2 {
		t.Errorf("duplicates = %d, want 2", diag.DuplicateSnapshots)
	}
}
