package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/andresuchdata/pantrywise/backend-go/internal/storage"
	"github.com/gin-gonic/gin"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestRouterWithUploads(t, "")
}

func newTestRouterWithUploads(t *testing.T, uploadDir string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	repo := repository.NewMemoryRepository()
	events := make([]domain.DistributionEvent, 0, 7)
	for i := 0; i < 7; i++ {
		events = append(events, domain.DistributionEvent{
			ID:             "ev-" + string(rune('a'+i)),
			OccurredAt:     now.AddDate(0, 0, -i).Add(-time.Hour),
			TotalWeight:    100,
			CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 100},
		})
	}
	if _, err := repo.SaveEvents(ctx, "north", events); err != nil {
		t.Fatal(err)
	}
	snap := domain.InventorySnapshot{TakenAt: now.Add(-2 * time.Hour), CategoryTotals: domain.CategoryTotals{domain.CategoryDairy: 500}}
	if _, err := repo.SaveSnapshots(ctx, "north", []domain.InventorySnapshot{snap}); err != nil {
		t.Fatal(err)
	}

	insights := service.NewInsightsService(repo, nil, config.EngineConfig{}, 0).WithClock(func() time.Time { return now })
	services := &Services{
		InsightsService: insights,
		IngestService:   service.NewIngestService(repo, nil, time.UTC),
		ExportService:   service.NewExportService(insights, storage.NewLocalStorage(t.TempDir()), "reports"),
		UploadDir:       uploadDir,
	}
	return NewRouter(services, nil)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, target: "/health", wantStatus: http.StatusOK, wantBody: `"ok"`},
		{name: "report", method: http.MethodGet, target: "/api/v1/insights/north/report", wantStatus: http.StatusOK, wantBody: `"total_inventory":500`},
		{name: "unknown tenant", method: http.MethodGet, target: "/api/v1/insights/south/report", wantStatus: http.StatusNotFound, wantBody: `"error"`},
		{name: "bad override", method: http.MethodGet, target: "/api/v1/insights/north/report?lookback_days=abc", wantStatus: http.StatusBadRequest, wantBody: "lookback_days must be an integer"},
		{name: "bad now", method: http.MethodGet, target: "/api/v1/insights/north/risk?now=yesterday", wantStatus: http.StatusBadRequest, wantBody: "RFC3339"},
		{name: "risk section", method: http.MethodGet, target: "/api/v1/insights/north/risk", wantStatus: http.StatusOK, wantBody: `"score"`},
		{name: "stockouts section", method: http.MethodGet, target: "/api/v1/insights/north/stockouts?stockout_window_days=7", wantStatus: http.StatusOK, wantBody: `"DAIRY"`},
		{name: "trends section", method: http.MethodGet, target: "/api/v1/insights/north/trends", wantStatus: http.StatusOK, wantBody: `"daily"`},
		{name: "csv", method: http.MethodGet, target: "/api/v1/insights/north/report.csv", wantStatus: http.StatusOK, wantBody: "section,key,field,value"},
		{name: "analyze empty", method: http.MethodPost, target: "/api/v1/insights/analyze", body: `{}`, wantStatus: http.StatusOK, wantBody: `"score":20`},
		{name: "analyze invalid", method: http.MethodPost, target: "/api/v1/insights/analyze", body: `{"events":`, wantStatus: http.StatusBadRequest, wantBody: "invalid request body"},
		{name: "export", method: http.MethodPost, target: "/api/v1/insights/north/export?format=csv", wantStatus: http.StatusCreated, wantBody: `"key":"reports/north/2026-03-10/report-120000.csv"`},
		{name: "export bad format", method: http.MethodPost, target: "/api/v1/insights/north/export?format=xml", wantStatus: http.StatusBadRequest, wantBody: "invalid format"},
		{name: "invalidate", method: http.MethodDelete, target: "/api/v1/insights/north/cache", wantStatus: http.StatusNoContent},
		{name: "tenants", method: http.MethodGet, target: "/api/v1/tenants", wantStatus: http.StatusOK, wantBody: `["north"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := serve(router, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing request id header")
			}
		})
	}
}

func TestAnalyzeInlinePayload(t *testing.T) {
	router := newTestRouter(t)

	payload := map[string]interface{}{
		"now":                  now,
		"stockout_window_days": 7,
		"snapshots": []domain.InventorySnapshot{
			{TakenAt: now.Add(-time.Hour), CategoryTotals: domain.CategoryTotals{domain.CategoryGrain: 70}},
		},
		"events": []domain.DistributionEvent{
			{ID: "a", OccurredAt: now.AddDate(0, 0, -1), TotalWeight: 70, CategoryTotals: domain.CategoryTotals{domain.CategoryGrain: 70}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var got analytics.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Options.StockoutWindowDays != 7 {
		t.Errorf("stockout window = %d, want 7", got.Options.StockoutWindowDays)
	}
	grain := got.Stockouts[domain.CategoryGrain]
	if grain.DaysUntilStockout == nil || *grain.DaysUntilStockout != 7 {
		t.Errorf("grain stockout = %+v, want 7 days", grain)
	}
}

func TestUpload(t *testing.T) {
	uploadDir := t.TempDir()
	router := newTestRouterWithUploads(t, uploadDir)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "extra-events.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("id,date,DAIRY\nup-1,2026-03-09,25\n"))
	part, err = mw.CreateFormFile("files", "notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("hello"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/north/upload?kind=events", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Imported int `json:"imported"`
		Files    []struct {
			File  string `json:"file"`
			Error string `json:"error"`
		} `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Imported != 1 || len(resp.Files) != 2 || resp.Files[1].Error == "" {
		t.Errorf("response = %+v", resp)
	}

	archived, _ := filepath.Glob(filepath.Join(uploadDir, "north", "*_extra-events.csv"))
	if len(archived) != 1 {
		t.Errorf("archived uploads = %v", archived)
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/insights/north/diagnostics", nil))
	if !strings.Contains(rec.Body.String(), `"events_used":8`) {
		t.Errorf("diagnostics after upload = %s", rec.Body.String())
	}

	rec = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/insights/north/upload?kind=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d", rec.Code)
	}
}
