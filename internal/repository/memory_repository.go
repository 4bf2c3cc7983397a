package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

type tenantData struct {
	events    map[string]domain.DistributionEvent
	snapshots map[string]domain.InventorySnapshot
	items     []domain.DetailedItem
}

// MemoryRepository keeps tenant records in process. It backs the offline CLI
// and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]*tenantData
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tenants: make(map[string]*tenantData)}
}

func (r *MemoryRepository) tenant(name string) *tenantData {
	t, ok := r.tenants[name]
	if !ok {
		t = &tenantData{
			events:    make(map[string]domain.DistributionEvent),
			snapshots: make(map[string]domain.InventorySnapshot),
		}
		r.tenants[name] = t
	}
	return t
}

func (r *MemoryRepository) LoadInput(ctx context.Context, tenant string, w Window) (analytics.Input, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[tenant]
	if !ok {
		return analytics.Input{}, ErrNotFound
	}

	events := make([]domain.DistributionEvent, 0, len(t.events))
	for _, e := range t.events {
		if e.OccurredAt.After(w.From) && !e.OccurredAt.After(w.To) {
			events = append(events, e)
		}
	}
	analytics.SortEvents(events)
	if w.MaxEvents > 0 && len(events) > w.MaxEvents {
		events = events[len(events)-w.MaxEvents:]
	}

	snaps := make([]domain.InventorySnapshot, 0, len(t.snapshots))
	for _, s := range t.snapshots {
		if !s.TakenAt.After(w.To) {
			snaps = append(snaps, s)
		}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].TakenAt.Before(snaps[j].TakenAt) })
	if len(snaps) > SnapshotLimit {
		snaps = snaps[len(snaps)-SnapshotLimit:]
	}

	items := append([]domain.DetailedItem(nil), t.items...)

	return analytics.Input{Events: events, Snapshots: snaps, Items: items}, nil
}

func (r *MemoryRepository) SaveEvents(ctx context.Context, tenant string, events []domain.DistributionEvent) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.tenant(tenant)
	for _, e := range events {
		t.events[e.ID] = e
	}
	return len(events), nil
}

// SaveSnapshots keeps one snapshot per UTC calendar day; the latest taken wins.
func (r *MemoryRepository) SaveSnapshots(ctx context.Context, tenant string, snaps []domain.InventorySnapshot) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.tenant(tenant)
	for _, s := range snaps {
		key := s.TakenAt.UTC().Format("2006-01-02")
		if prev, ok := t.snapshots[key]; ok && prev.TakenAt.After(s.TakenAt) {
			continue
		}
		t.snapshots[key] = s
	}
	return len(snaps), nil
}

func (r *MemoryRepository) ReplaceItems(ctx context.Context, tenant string, items []domain.DetailedItem) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tenant(tenant).items = append([]domain.DetailedItem(nil), items...)
	return len(items), nil
}

func (r *MemoryRepository) ListTenants(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.tenants))
	for name := range r.tenants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
