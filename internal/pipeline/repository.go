package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// RunRepository persists refresh run bookkeeping
type RunRepository interface {
	CreateRun(ctx context.Context, run *RefreshRun) error
	UpdateRun(ctx context.Context, run *RefreshRun) error
	GetRun(ctx context.Context, id string) (*RefreshRun, error)
}

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("refresh run not found")

// Repository handles database operations for run tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new run repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun inserts a new run record
func (r *Repository) CreateRun(ctx context.Context, run *RefreshRun) error {
	query := `
		INSERT INTO refresh_runs (
			id, started_at, finished_at, status, tenants, succeeded, failed, error
		) VALUES (:id, :started_at, :finished_at, :status, :tenants, :succeeded, :failed, :error)
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create refresh run: %w", err)
	}
	return nil
}

// UpdateRun updates an existing run record
func (r *Repository) UpdateRun(ctx context.Context, run *RefreshRun) error {
	query := `
		UPDATE refresh_runs
		SET finished_at = :finished_at, status = :status, tenants = :tenants,
		    succeeded = :succeeded, failed = :failed, error = :error
		WHERE id = :id
	`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("update refresh run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(ctx context.Context, id string) (*RefreshRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, tenants, succeeded, failed, error
		FROM refresh_runs
		WHERE id = $1
	`

	run := &RefreshRun{}
	err := r.db.GetContext(ctx, run, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh run: %w", err)
	}
	return run, nil
}

// MemoryRepository keeps runs in process for the offline CLI and tests.
type MemoryRepository struct {
	mu   sync.Mutex
	runs map[string]RefreshRun
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[string]RefreshRun)}
}

func (r *MemoryRepository) CreateRun(ctx context.Context, run *RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("refresh run %s already exists", run.ID)
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRepository) UpdateRun(ctx context.Context, run *RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRepository) GetRun(ctx context.Context, id string) (*RefreshRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}
