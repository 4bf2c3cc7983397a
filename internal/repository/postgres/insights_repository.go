// backend-go/internal/repository/postgres/insights_repository.go
package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

// categoryTotalsJSON stores category weights in a jsonb column.
type categoryTotalsJSON domain.CategoryTotals

func (c *categoryTotalsJSON) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = categoryTotalsJSON{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported category_totals type %T", src)
	}
	totals := make(domain.CategoryTotals)
	if err := json.Unmarshal(raw, &totals); err != nil {
		return fmt.Errorf("decode category_totals: %w", err)
	}
	*c = categoryTotalsJSON(totals)
	return nil
}

func (c categoryTotalsJSON) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(domain.CategoryTotals(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type eventRow struct {
	ID             string             `db:"id"`
	OccurredAt     time.Time          `db:"occurred_at"`
	Recipient      string             `db:"recipient"`
	TotalWeight    float64            `db:"total_weight"`
	ClientsServed  int                `db:"clients_served"`
	Children       int                `db:"children"`
	Adults         int                `db:"adults"`
	Elders         int                `db:"elders"`
	CategoryTotals categoryTotalsJSON `db:"category_totals"`
}

type snapshotRow struct {
	TakenAt        time.Time          `db:"taken_at"`
	CategoryTotals categoryTotalsJSON `db:"category_totals"`
}

type insightsRepository struct {
	db *DB
}

func NewInsightsRepository(db *DB) repository.InsightsRepository {
	return &insightsRepository{db: db}
}

func (r *insightsRepository) LoadInput(ctx context.Context, tenant string, w repository.Window) (analytics.Input, error) {
	var in analytics.Input
	err := r.db.withSem(ctx, func() error {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tenants WHERE name = $1)`, tenant); err != nil {
			return fmt.Errorf("error checking tenant: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}

		maxEvents := w.MaxEvents
		if maxEvents <= 0 {
			maxEvents = repository.DefaultMaxEvents
		}

		// Most recent events first so the LIMIT keeps the newest ones.
		var events []eventRow
		if err := r.db.SelectContext(ctx, &events, `
			SELECT id, occurred_at, recipient, total_weight, clients_served,
			       children, adults, elders, category_totals
			FROM distribution_events
			WHERE tenant = $1 AND occurred_at > $2 AND occurred_at <= $3
			ORDER BY occurred_at DESC, id DESC
			LIMIT $4
		`, tenant, w.From, w.To, maxEvents); err != nil {
			return fmt.Errorf("error loading events: %w", err)
		}

		var snaps []snapshotRow
		if err := r.db.SelectContext(ctx, &snaps, `
			SELECT taken_at, category_totals
			FROM inventory_snapshots
			WHERE tenant = $1 AND taken_at <= $2
			ORDER BY taken_at DESC
			LIMIT $3
		`, tenant, w.To, repository.SnapshotLimit); err != nil {
			return fmt.Errorf("error loading snapshots: %w", err)
		}

		var items []domain.DetailedItem
		if err := r.db.SelectContext(ctx, &items, `
			SELECT category, name, weight, expiration_date, source, added_date
			FROM inventory_items
			WHERE tenant = $1
			ORDER BY added_date, name
		`, tenant); err != nil {
			return fmt.Errorf("error loading items: %w", err)
		}

		in = analytics.Input{
			Events:    make([]domain.DistributionEvent, 0, len(events)),
			Snapshots: make([]domain.InventorySnapshot, 0, len(snaps)),
			Items:     items,
		}
		for i := len(events) - 1; i >= 0; i-- {
			e := events[i]
			in.Events = append(in.Events, domain.DistributionEvent{
				ID:             e.ID,
				OccurredAt:     e.OccurredAt,
				Recipient:      e.Recipient,
				TotalWeight:    e.TotalWeight,
				ClientsServed:  e.ClientsServed,
				AgeGroups:      domain.AgeGroups{Child: e.Children, Adult: e.Adults, Elder: e.Elders},
				CategoryTotals: domain.CategoryTotals(e.CategoryTotals),
			})
		}
		for i := len(snaps) - 1; i >= 0; i-- {
			in.Snapshots = append(in.Snapshots, domain.InventorySnapshot{
				TakenAt:        snaps[i].TakenAt,
				CategoryTotals: domain.CategoryTotals(snaps[i].CategoryTotals),
			})
		}
		return nil
	})
	return in, err
}

func (r *insightsRepository) SaveEvents(ctx context.Context, tenant string, events []domain.DistributionEvent) (int, error) {
	saved := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertTenant(ctx, tx, tenant); err != nil {
			return err
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO distribution_events (
				tenant, id, occurred_at, recipient, total_weight, clients_served,
				children, adults, elders, category_totals, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			ON CONFLICT (tenant, id)
			DO UPDATE SET
				occurred_at = EXCLUDED.occurred_at,
				recipient = EXCLUDED.recipient,
				total_weight = EXCLUDED.total_weight,
				clients_served = EXCLUDED.clients_served,
				children = EXCLUDED.children,
				adults = EXCLUDED.adults,
				elders = EXCLUDED.elders,
				category_totals = EXCLUDED.category_totals,
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, e := range events {
			if _, err := stmt.ExecContext(ctx,
				tenant, e.ID, e.OccurredAt, e.Recipient, e.TotalWeight, e.ClientsServed,
				e.AgeGroups.Child, e.AgeGroups.Adult, e.AgeGroups.Elder, categoryTotalsJSON(e.CategoryTotals),
			); err != nil {
				return fmt.Errorf("failed to upsert event %s: %w", e.ID, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// SaveSnapshots keeps one row per calendar day; a later snapshot on the same
// day replaces an earlier one.
func (r *insightsRepository) SaveSnapshots(ctx context.Context, tenant string, snaps []domain.InventorySnapshot) (int, error) {
	saved := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertTenant(ctx, tx, tenant); err != nil {
			return err
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO inventory_snapshots (tenant, taken_on, taken_at, category_totals, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (tenant, taken_on)
			DO UPDATE SET
				taken_at = EXCLUDED.taken_at,
				category_totals = EXCLUDED.category_totals,
				updated_at = NOW()
			WHERE EXCLUDED.taken_at >= inventory_snapshots.taken_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, s := range snaps {
			day := s.TakenAt.Format("2006-01-02")
			if _, err := stmt.ExecContext(ctx, tenant, day, s.TakenAt, categoryTotalsJSON(s.CategoryTotals)); err != nil {
				return fmt.Errorf("failed to upsert snapshot %s: %w", day, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// ReplaceItems swaps the tenant's detailed item list for a new full listing.
func (r *insightsRepository) ReplaceItems(ctx context.Context, tenant string, items []domain.DetailedItem) (int, error) {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertTenant(ctx, tx, tenant); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE tenant = $1`, tenant); err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}

		rows := make([]map[string]interface{}, 0, len(items))
		for _, it := range items {
			rows = append(rows, map[string]interface{}{
				"tenant":          tenant,
				"category":        string(it.Category),
				"name":            it.Name,
				"weight":          it.Weight,
				"expiration_date": it.ExpirationDate,
				"source":          it.Source,
				"added_date":      it.AddedDate,
			})
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO inventory_items (tenant, category, name, weight, expiration_date, source, added_date)
			VALUES (:tenant, :category, :name, :weight, :expiration_date, :source, :added_date)
		`, rows); err != nil {
			return fmt.Errorf("failed to insert items: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *insightsRepository) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	err := r.db.withSem(ctx, func() error {
		if err := r.db.SelectContext(ctx, &tenants, `SELECT name FROM tenants ORDER BY name`); err != nil {
			return fmt.Errorf("error listing tenants: %w", err)
		}
		return nil
	})
	return tenants, err
}

func upsertTenant(ctx context.Context, tx *sqlx.Tx, tenant string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tenants (name, created_at) VALUES ($1, NOW())
		ON CONFLICT (name) DO NOTHING
	`, tenant); err != nil {
		return fmt.Errorf("failed to upsert tenant: %w", err)
	}
	return nil
}
