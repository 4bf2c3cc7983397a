package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
)

func TestMemoryRepository_LoadInputWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()

	events := []domain.DistributionEvent{
		{ID: "old", OccurredAt: now.AddDate(0, 0, -40)},
		{ID: "a", OccurredAt: now.AddDate(0, 0, -3)},
		{ID: "b", OccurredAt: now.AddDate(0, 0, -2)},
		{ID: "c", OccurredAt: now.AddDate(0, 0, -1)},
		{ID: "future", OccurredAt: now.Add(time.Hour)},
	}
	if _, err := repo.SaveEvents(ctx, "north", events); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveSnapshots(ctx, "north", []domain.InventorySnapshot{
		{TakenAt: now.Add(-4 * time.Hour), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 1}},
		{TakenAt: now.Add(-2 * time.Hour), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 2}},
		{TakenAt: now.Add(-3 * time.Hour), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 3}},
	}); err != nil {
		t.Fatal(err)
	}

	in, err := repo.LoadInput(ctx, "north", NewWindow(now, 30, 2))
	if err != nil {
		t.Fatal(err)
	}

	if len(in.Events) != 2 || in.Events[0].ID != "b" || in.Events[1].ID != "c" {
		t.Errorf("events = %+v, want the two most recent in window", in.Events)
	}
	if len(in.Snapshots) != 1 || in.Snapshots[0].CategoryTotals[domain.CategoryDairy] != 2 {
		t.Errorf("snapshots = %+v, want the latest of the day", in.Snapshots)
	}
}

func TestMemoryRepository_UnknownTenant(t *testing.T) {
	_, err := NewMemoryRepository().LoadInput(context.Background(), "nobody", NewWindow(time.Now(), 30, 0))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_TenantsAndItems(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, _ = repo.ReplaceItems(ctx, "south", []domain.DetailedItem{{Name: "rice"}, {Name: "oats"}})
	_, _ = repo.ReplaceItems(ctx, "south", []domain.DetailedItem{{Name: "beans"}})
	_, _ = repo.SaveEvents(ctx, "north", nil)

	tenants, err := repo.ListTenants(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tenants) != 2 || tenants[0] != "north" || tenants[1] != "south" {
		t.Errorf("tenants = %v", tenants)
	}

	in, err := repo.LoadInput(ctx, "south", NewWindow(time.Now(), 30, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(in.Items) != 1 || in.Items[0].Name != "beans" {
		t.Errorf("items = %+v, want replaced list", in.Items)
	}
}
