package analytics

import (
	"testing"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

func TestPredictWaste(t *testing.T) {
	tests := []struct {
		name         string
		item         domain.DetailedItem
		demand       float64
		wantListed   bool
		wantLevel    domain.WasteLevel
		wantPriority int
		wantDays     int
	}{
		{
			name:       "expired_five_days_ago",
			item:       domain.DetailedItem{Category: domain.CategoryDairy, Name: "milk", Weight: 20, ExpirationDate: date(2026, time.March, 5)},
			demand:     1000,
			wantListed: true, wantLevel: domain.WasteExpired, wantPriority: 100, wantDays: -5,
		},
		{
			name:       "expires_today_too_heavy",
			item:       domain.DetailedItem{Category: domain.CategoryDairy, Name: "yogurt", Weight: 50, ExpirationDate: date(2026, time.March, 10)},
			demand:     10,
			wantListed: true, wantLevel: domain.WasteCritical, wantPriority: 100, wantDays: 0,
		},
		{
			name:   "expires_today_nothing_to_move",
			item:   domain.DetailedItem{Category: domain.CategoryDairy, Name: "empty crate", Weight: 0, ExpirationDate: date(2026, time.March, 10)},
			demand: 10,
		},
		{
			name:       "expires_tomorrow_counts_one_day",
			item:       domain.DetailedItem{Category: domain.CategoryDairy, Name: "cream", Weight: 50, ExpirationDate: date(2026, time.March, 11)},
			demand:     10,
			wantListed: true, wantLevel: domain.WasteCritical, wantPriority: 99, wantDays: 1,
		},
		{
			name:       "five_days_high",
			item:       domain.DetailedItem{Category: domain.CategoryFruit, Name: "apples", Weight: 100, ExpirationDate: date(2026, time.March, 15)},
			demand:     10,
			wantListed: true, wantLevel: domain.WasteHigh, wantPriority: 95, wantDays: 5,
		},
		{
			name:   "distributable_in_time",
			item:   domain.DetailedItem{Category: domain.CategoryFruit, Name: "pears", Weight: 100, ExpirationDate: date(2026, time.March, 20)},
			demand: 20,
		},
		{
			name:       "ten_days_medium",
			item:       domain.DetailedItem{Category: domain.CategoryFruit, Name: "plums", Weight: 100, ExpirationDate: date(2026, time.March, 20)},
			demand:     5,
			wantListed: true, wantLevel: domain.WasteMedium, wantPriority: 90, wantDays: 10,
		},
		{
			name:       "no_demand_never_distributable",
			item:       domain.DetailedItem{Category: domain.CategoryVeg, Name: "beans", Weight: 1, ExpirationDate: date(2026, time.March, 22)},
			demand:     0,
			wantListed: true, wantLevel: domain.WasteMedium, wantPriority: 88, wantDays: 12,
		},
		{
			name:   "beyond_horizon",
			item:   domain.DetailedItem{Category: domain.CategoryVeg, Name: "carrots", Weight: 500, ExpirationDate: date(2026, time.March, 30)},
			demand: 0,
		},
		{
			name:   "no_expiration_date",
			item:   domain.DetailedItem{Category: domain.CategoryMisc, Name: "soap", Weight: 500},
			demand: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			demand := map[domain.Category]float64{tt.item.Category: tt.demand}
			got := PredictWaste([]domain.DetailedItem{tt.item}, demand, testNow, time.UTC)

			if !tt.wantListed {
				if len(got.Risks) != 0 {
					t.Fatalf("expected item to be excluded, got %+v", got.Risks)
				}
				return
			}
			if len(got.Risks) != 1 {
				t.Fatalf("expected one risk, got %d", len(got.Risks))
			}
			r := got.Risks[0]
			if r.Risk != tt.wantLevel || r.Priority != tt.wantPriority || r.DaysUntilExpiry != tt.wantDays {
				t.Errorf("risk = %s/%d/%d days, want %s/%d/%d days", r.Risk, r.Priority, r.DaysUntilExpiry, tt.wantLevel, tt.wantPriority, tt.wantDays)
			}
			if r.Recommendation == "" {
				t.Error("recommendation should not be empty")
			}
		})
	}
}

func TestPredictWaste_SummaryAndOrdering(t *testing.T) {
	items := []domain.DetailedItem{
		{Category: domain.CategoryFruit, Name: "plums", Weight: 100, ExpirationDate: date(2026, time.March, 20)},
		{Category: domain.CategoryDairy, Name: "milk", Weight: 20, ExpirationDate: date(2026, time.March, 5)},
		{Category: domain.CategoryFruit, Name: "apples", Weight: 100, ExpirationDate: date(2026, time.March, 15)},
		{Category: domain.CategoryDairy, Name: "cheese", Weight: 30, ExpirationDate: date(2026, time.March, 1)},
	}
	demand := map[domain.Category]float64{domain.CategoryFruit: 5}

	got := PredictWaste(items, demand, testNow, time.UTC)

	wantOrder := []string{"milk", "cheese", "apples", "plums"}
	if len(got.Risks) != len(wantOrder) {
		t.Fatalf("got %d risks, want %d", len(got.Risks), len(wantOrder))
	}
	for i, name := range wantOrder {
		if got.Risks[i].Name != name {
			t.Errorf("risks[%d] = %s, want %s", i, got.Risks[i].Name, name)
		}
	}
	// medium risks do not count toward the at-risk weight
	if got.TotalAtRiskWeight != 150 {
		t.Errorf("total at risk = %v, want 150", got.TotalAtRiskWeight)
	}
	if got.CountByLevel[domain.WasteExpired] != 2 || got.CountByLevel[domain.WasteMedium] != 1 {
		t.Errorf("count by level = %v", got.CountByLevel)
	}
}

func TestPredictWaste_CalendarDaysInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 23:30 UTC on the 9th is already the 10th in loc.
	now := time.Date(2026, time.March, 9, 23, 30, 0, 0, time.UTC)
	exp := time.Date(2026, time.March, 10, 0, 0, 0, 0, loc)
	items := []domain.DetailedItem{{Category: domain.CategoryDairy, Name: "milk", Weight: 10, ExpirationDate: &exp}}

	got := PredictWaste(items, nil, now, loc)
	if len(got.Risks) != 1 || got.Risks[0].DaysUntilExpiry != 0 {
		t.Fatalf("expected item expiring today in loc, got %+v", got.Risks)
	}
}

func TestFindSlowMovers(t *testing.T) {
	items := []domain.DetailedItem{
		{Category: domain.CategoryGrain, Name: "rice", Weight: 40, AddedDate: testNow.AddDate(0, 0, -50)},
		{Category: domain.CategoryGrain, Name: "oats", Weight: 10, AddedDate: testNow.AddDate(0, 0, -45)},
		{Category: domain.CategoryMisc, Name: "tissue", Weight: 5, AddedDate: testNow.AddDate(0, 0, -90)},
		{Category: domain.CategoryMisc, Name: "unknown"},
	}

	got := FindSlowMovers(items, testNow, time.UTC, 45)

	if len(got) != 2 {
		t.Fatalf("got %d slow movers, want 2: %+v", len(got), got)
	}
	if got[0].Name != "tissue" || got[0].DaysHeld != 90 {
		t.Errorf("first = %+v, want tissue held 90 days", got[0])
	}
	if got[1].Name != "rice" || got[1].DaysHeld != 50 {
		t.Errorf("second = %+v, want rice held 50 days", got[1])
	}
}
