// backend-go/internal/repository/insights_repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

// ErrNotFound is returned when a tenant has no stored records.
var ErrNotFound = errors.New("not found")

const (
	DefaultMaxEvents = 1000
	// SnapshotLimit is how many of the latest snapshots a window loads.
	SnapshotLimit = 31
)

// Window is the bounded, time-windowed slice of a tenant's history handed to
// the engine. Events are restricted to (From, To] and capped at MaxEvents,
// keeping the most recent ones.
type Window struct {
	From      time.Time
	To        time.Time
	MaxEvents int
}

// NewWindow returns a window covering the trailing days before now.
func NewWindow(now time.Time, days, maxEvents int) Window {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return Window{
		From:      now.AddDate(0, 0, -days),
		To:        now,
		MaxEvents: maxEvents,
	}
}

// InsightsRepository is the read layer feeding the engine, plus the writes
// ingestion needs.
type InsightsRepository interface {
	LoadInput(ctx context.Context, tenant string, w Window) (analytics.Input, error)
	SaveEvents(ctx context.Context, tenant string, events []domain.DistributionEvent) (int, error)
	SaveSnapshots(ctx context.Context, tenant string, snaps []domain.InventorySnapshot) (int, error)
	ReplaceItems(ctx context.Context, tenant string, items []domain.DetailedItem) (int, error)
	ListTenants(ctx context.Context) ([]string, error)
}
