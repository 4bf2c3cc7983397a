package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
	"github.com/andresuchdata/pantrywise/backend-go/internal/report"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
)

type fakeReports struct {
	tenants  []string
	failing  map[string]bool
	inFlight int32
	maxSeen  int32
	mu       sync.Mutex
	calls    []string
}

func (f *fakeReports) GetReport(ctx context.Context, tenant string, ov service.Overrides) (*analytics.Report, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxSeen)
		if n <= prev || atomic.CompareAndSwapInt32(&f.maxSeen, prev, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.calls = append(f.calls, tenant)
	f.mu.Unlock()

	if f.failing[tenant] {
		return nil, errors.New("boom")
	}
	return &analytics.Report{
		Risk: domain.RiskAssessment{Score: 45, Level: domain.RiskHigh},
		Restock: []domain.RestockRecommendation{
			{Category: domain.CategoryDairy, Priority: domain.PriorityCritical},
			{Category: domain.CategoryGrain, Priority: domain.PriorityLow},
		},
	}, nil
}

func (f *fakeReports) ListTenants(ctx context.Context) ([]string, error) {
	return f.tenants, nil
}

type fakeExporter struct{}

func (fakeExporter) Export(ctx context.Context, tenant string, ov service.Overrides, format report.Format) (*service.ExportResult, error) {
	return &service.ExportResult{Tenant: tenant, Key: "reports/" + tenant + "." + format.Extension(), Format: format}, nil
}

func TestWorker_Run(t *testing.T) {
	tests := []struct {
		name          string
		failing       map[string]bool
		wantStatus    RunStatus
		wantSucceeded int
		wantFailed    int
	}{
		{name: "all succeed", wantStatus: StatusCompleted, wantSucceeded: 5},
		{name: "partial", failing: map[string]bool{"c": true}, wantStatus: StatusPartial, wantSucceeded: 4, wantFailed: 1},
		{
			name:       "all fail",
			failing:    map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true},
			wantStatus: StatusFailed,
			wantFailed: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeReports{tenants: []string{"e", "a", "d", "b", "c", "a"}, failing: tt.failing}
			runs := NewMemoryRepository()
			w := NewWorker(src, runs, Config{Workers: 2})

			run, err := w.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			if run.Status != tt.wantStatus || run.Succeeded != tt.wantSucceeded || run.Failed != tt.wantFailed {
				t.Errorf("run = %s %d/%d, want %s %d/%d", run.Status, run.Succeeded, run.Failed, tt.wantStatus, tt.wantSucceeded, tt.wantFailed)
			}
			if run.Tenants != 5 || len(run.Results) != 5 {
				t.Fatalf("tenants = %d results = %d, want 5 deduplicated", run.Tenants, len(run.Results))
			}
			for i, want := range []string{"a", "b", "c", "d", "e"} {
				if run.Results[i].Tenant != want {
					t.Errorf("result %d tenant = %s, want %s", i, run.Results[i].Tenant, want)
				}
			}
			if src.maxSeen > 2 {
				t.Errorf("max concurrent tenants = %d, want <= 2", src.maxSeen)
			}

			stored, err := runs.GetRun(context.Background(), run.ID)
			if err != nil {
				t.Fatalf("stored run: %v", err)
			}
			if stored.Status != tt.wantStatus || stored.FinishedAt == nil {
				t.Errorf("stored run = %+v", stored)
			}
		})
	}
}

func TestWorker_ResultSummaryAndExport(t *testing.T) {
	src := &fakeReports{}
	w := NewWorker(src, nil, Config{Workers: 1, Tenants: []string{" north "}, ExportFormat: report.FormatCSV}).
		WithExporter(fakeExporter{})

	run, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(run.Results) != 1 {
		t.Fatalf("results = %+v", run.Results)
	}
	got := run.Results[0]
	if got.Tenant != "north" || got.RiskScore != 45 || got.RiskLevel != "high" || got.Critical != 1 {
		t.Errorf("result = %+v", got)
	}
	if got.ExportKey != "reports/north.csv" {
		t.Errorf("export key = %q", got.ExportKey)
	}
	if len(src.calls) != 1 || src.calls[0] != "north" {
		t.Errorf("configured tenants must replace the stored list, calls = %v", src.calls)
	}
}

func TestWorker_CancelledContext(t *testing.T) {
	src := &fakeReports{tenants: []string{"a", "b"}}
	w := NewWorker(src, nil, Config{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := w.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Status != StatusFailed || !strings.Contains(run.ErrorMessage, "canceled") {
		t.Errorf("run = %+v, want failed with cancellation", run)
	}
	if len(src.calls) != 0 {
		t.Errorf("no tenant should be refreshed after cancellation, calls = %v", src.calls)
	}
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("get missing err = %v", err)
	}
	if err := repo.UpdateRun(ctx, &RefreshRun{ID: "missing"}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("update missing err = %v", err)
	}

	run := &RefreshRun{ID: "r1", Status: StatusProcessing}
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateRun(ctx, run); err == nil {
		t.Error("duplicate create must fail")
	}
}
