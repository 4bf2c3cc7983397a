package pipeline

import (
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/report"
)

// RunStatus represents the current state of a refresh run
type RunStatus string

const (
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	// StatusPartial means at least one tenant failed and at least one succeeded.
	StatusPartial RunStatus = "partial"
	StatusFailed  RunStatus = "failed"
)

// TenantStatus is the outcome of one tenant within a run
type TenantStatus string

const (
	TenantSucceeded TenantStatus = "succeeded"
	TenantFailed    TenantStatus = "failed"
)

// Config holds configuration for a refresh run
type Config struct {
	Workers int
	// Tenants restricts the run; empty means every stored tenant.
	Tenants []string
	// ExportFormat, when set, uploads every refreshed report in that format.
	ExportFormat report.Format
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// RefreshRun tracks a single execution over all tenants
type RefreshRun struct {
	ID           string         `json:"id" db:"id"`
	StartedAt    time.Time      `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty" db:"finished_at"`
	Status       RunStatus      `json:"status" db:"status"`
	Tenants      int            `json:"tenants" db:"tenants"`
	Succeeded    int            `json:"succeeded" db:"succeeded"`
	Failed       int            `json:"failed" db:"failed"`
	ErrorMessage string         `json:"error,omitempty" db:"error"`
	Results      []TenantResult `json:"results" db:"-"`
}

// TenantResult is the per-tenant summary of a run
type TenantResult struct {
	Tenant    string       `json:"tenant"`
	Status    TenantStatus `json:"status"`
	Duration  string       `json:"duration"`
	RiskScore int          `json:"risk_score"`
	RiskLevel string       `json:"risk_level,omitempty"`
	Critical  int          `json:"critical_restocks"`
	ExportKey string       `json:"export_key,omitempty"`
	Error     string       `json:"error,omitempty"`
}
