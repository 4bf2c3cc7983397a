package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
	"github.com/andresuchdata/pantrywise/backend-go/internal/report"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ReportSource produces one tenant's report.
type ReportSource interface {
	GetReport(ctx context.Context, tenant string, ov service.Overrides) (*analytics.Report, error)
	ListTenants(ctx context.Context) ([]string, error)
}

// Exporter uploads a rendered report.
type Exporter interface {
	Export(ctx context.Context, tenant string, ov service.Overrides, format report.Format) (*service.ExportResult, error)
}

// Worker refreshes every tenant's report with a bounded pool. Each tenant is
// one engine call; a failing tenant never stops the others.
type Worker struct {
	reports  ReportSource
	exporter Exporter
	runs     RunRepository
	config   Config
	now      func() time.Time
}

// NewWorker creates a new refresh worker. A nil run repository keeps runs in memory.
func NewWorker(reports ReportSource, runs RunRepository, config Config) *Worker {
	if runs == nil {
		runs = NewMemoryRepository()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	return &Worker{
		reports: reports,
		runs:    runs,
		config:  config,
		now:     time.Now,
	}
}

// WithExporter uploads each refreshed report when the config names a format.
func (w *Worker) WithExporter(e Exporter) *Worker {
	w.exporter = e
	return w
}

// Run refreshes all configured tenants and records the run.
func (w *Worker) Run(ctx context.Context) (*RefreshRun, error) {
	tenants, err := w.tenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	run := &RefreshRun{
		ID:        uuid.NewString(),
		StartedAt: w.now().UTC(),
		Status:    StatusProcessing,
		Tenants:   len(tenants),
	}
	if err := w.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create refresh run: %w", err)
	}

	log.Info().Str("run_id", run.ID).Int("tenants", len(tenants)).Int("workers", w.config.Workers).Msg("refresh: starting")

	run.Results = w.refreshAll(ctx, tenants)

	var failures []string
	for _, r := range run.Results {
		if r.Status == TenantSucceeded {
			run.Succeeded++
			continue
		}
		run.Failed++
		failures = append(failures, fmt.Sprintf("%s: %s", r.Tenant, r.Error))
	}

	switch {
	case ctx.Err() != nil:
		run.Status = StatusFailed
		run.ErrorMessage = ctx.Err().Error()
	case run.Failed == 0:
		run.Status = StatusCompleted
	case run.Succeeded == 0:
		run.Status = StatusFailed
		run.ErrorMessage = strings.Join(failures, "; ")
	default:
		run.Status = StatusPartial
		run.ErrorMessage = strings.Join(failures, "; ")
	}
	finished := w.now().UTC()
	run.FinishedAt = &finished

	// The caller's context may already be cancelled; the bookkeeping still lands.
	if err := w.runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("failed to complete refresh run: %w", err)
	}

	log.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("succeeded", run.Succeeded).
		Int("failed", run.Failed).
		Msg("refresh: completed")

	return run, nil
}

func (w *Worker) tenants(ctx context.Context) ([]string, error) {
	if len(w.config.Tenants) > 0 {
		return dedupeTenants(w.config.Tenants), nil
	}
	tenants, err := w.reports.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	return dedupeTenants(tenants), nil
}

// refreshAll processes tenants using a worker pool. Results keep tenant order.
func (w *Worker) refreshAll(ctx context.Context, tenants []string) []TenantResult {
	results := make([]TenantResult, len(tenants))

	var g errgroup.Group
	g.SetLimit(w.config.Workers)

	for i, tenant := range tenants {
		i, tenant := i, tenant
		g.Go(func() error {
			results[i] = w.refreshTenant(ctx, tenant)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (w *Worker) refreshTenant(ctx context.Context, tenant string) TenantResult {
	start := time.Now()
	res := TenantResult{Tenant: tenant}

	fail := func(err error) TenantResult {
		log.Error().Err(err).Str("tenant", tenant).Msg("refresh: tenant failed")
		res.Status = TenantFailed
		res.Error = err.Error()
		res.Duration = time.Since(start).Round(time.Millisecond).String()
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	r, err := w.reports.GetReport(ctx, tenant, service.Overrides{})
	if err != nil {
		return fail(err)
	}
	res.RiskScore = r.Risk.Score
	res.RiskLevel = string(r.Risk.Level)
	for _, rec := range r.Restock {
		if rec.Priority == domain.PriorityCritical {
			res.Critical++
		}
	}

	if w.exporter != nil && w.config.ExportFormat != "" {
		exp, err := w.exporter.Export(ctx, tenant, service.Overrides{}, w.config.ExportFormat)
		if err != nil {
			return fail(fmt.Errorf("export: %w", err))
		}
		res.ExportKey = exp.Key
	}

	res.Status = TenantSucceeded
	res.Duration = time.Since(start).Round(time.Millisecond).String()
	return res
}

func dedupeTenants(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
