// backend-go/internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

// Category is one of the fixed food-type groupings partitioning all inventory.
type Category string

const (
	CategoryDairy   Category = "DAIRY"
	CategoryGrain   Category = "GRAIN"
	CategoryProtein Category = "PROTEIN"
	CategoryFruit   Category = "FRUIT"
	CategoryVeg     Category = "VEG"
	CategoryProduce Category = "PRODUCE"
	CategoryMisc    Category = "MISC"
)

// Categories lists every category in canonical order. Outputs that iterate
// categories use this order so results are deterministic.
var Categories = []Category{
	CategoryDairy,
	CategoryGrain,
	CategoryProtein,
	CategoryFruit,
	CategoryVeg,
	CategoryProduce,
	CategoryMisc,
}

var categoryIndex = func() map[Category]int {
	idx := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		idx[c] = i
	}
	return idx
}()

// ParseCategory returns the category for a label (case-insensitive, trimmed).
func ParseCategory(label string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(label)))
	_, ok := categoryIndex[c]
	return c, ok
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// Order returns the canonical position of c, or len(Categories) for unknown values.
func (c Category) Order() int {
	if i, ok := categoryIndex[c]; ok {
		return i
	}
	return len(Categories)
}

// CategoryTotals maps a category to a weight.
type CategoryTotals map[Category]float64

// Sum returns the total weight over all categories.
func (ct CategoryTotals) Sum() float64 {
	var total float64
	for _, c := range Categories {
		total += ct[c]
	}
	return total
}

// AgeGroups is the demographic breakdown of the clients served by one event.
type AgeGroups struct {
	Child int `json:"child"`
	Adult int `json:"adult"`
	Elder int `json:"elder"`
}

// Total returns the number of clients across all age groups.
func (a AgeGroups) Total() int {
	return a.Child + a.Adult + a.Elder
}

// DistributionEvent is one recorded distribution, read-only to the engine.
type DistributionEvent struct {
	ID             string         `json:"id" db:"id"`
	OccurredAt     time.Time      `json:"occurred_at" db:"occurred_at"`
	Recipient      string         `json:"recipient" db:"recipient"`
	TotalWeight    float64        `json:"total_weight" db:"total_weight"`
	ClientsServed  int            `json:"clients_served" db:"clients_served"`
	AgeGroups      AgeGroups      `json:"age_groups"`
	CategoryTotals CategoryTotals `json:"category_totals"`
}

// InventorySnapshot is the on-hand weight per category for one calendar day.
type InventorySnapshot struct {
	TakenAt        time.Time      `json:"taken_at" db:"taken_on"`
	CategoryTotals CategoryTotals `json:"category_totals"`
}

// DetailedItem is a single stocked item used for waste and slow-mover analysis.
type DetailedItem struct {
	Category       Category   `json:"category" db:"category"`
	Name           string     `json:"name" db:"name"`
	Weight         float64    `json:"weight" db:"weight"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty" db:"expiration_date"`
	Source         string     `json:"source" db:"source"`
	AddedDate      time.Time  `json:"added_date" db:"added_date"`
}

// StampKind tags which timestamp shape a Stamp carries.
type StampKind int

const (
	StampUnparseable StampKind = iota
	StampInstant
	StampISO
	StampLocalDate
)

// String returns the label for a stamp kind.
func (k StampKind) String() string {
	switch k {
	case StampInstant:
		return "instant"
	case StampISO:
		return "iso"
	case StampLocalDate:
		return "local_date"
	default:
		return "unparseable"
	}
}

// Stamp is a timestamp in one of the shapes records arrive with.
// Only the field matching Kind is meaningful.
type Stamp struct {
	Kind    StampKind
	Instant time.Time
	Text    string
}

// StampFields holds every timestamp shape a raw record may expose.
// Empty fields are absent.
type StampFields struct {
	Instant *time.Time `json:"instant,omitempty"`
	ISO     string     `json:"iso,omitempty"`
	Date    string     `json:"date,omitempty"`
}

// RawEvent is a distribution event before its timestamp has been resolved.
type RawEvent struct {
	ID             string         `json:"id"`
	When           StampFields    `json:"when"`
	Recipient      string         `json:"recipient"`
	TotalWeight    float64        `json:"total_weight"`
	ClientsServed  int            `json:"clients_served"`
	AgeGroups      AgeGroups      `json:"age_groups"`
	CategoryTotals CategoryTotals `json:"category_totals"`
}

// RawSnapshot is an inventory snapshot before its timestamp has been resolved.
type RawSnapshot struct {
	When           StampFields    `json:"when"`
	CategoryTotals CategoryTotals `json:"category_totals"`
}
