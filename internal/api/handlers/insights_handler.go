package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/report"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

// Section picks one part of a report.
type Section func(r *analytics.Report) interface{}

// Sections are served under /insights/:tenant/<name>.
var Sections = map[string]Section{
	"forecast":    func(r *analytics.Report) interface{} { return r.Forecast },
	"stockouts":   func(r *analytics.Report) interface{} { return r.Stockouts },
	"turnover":    func(r *analytics.Report) interface{} { return r.Turnover },
	"targets":     func(r *analytics.Report) interface{} { return r.Targets },
	"waste":       func(r *analytics.Report) interface{} { return r.Waste },
	"slow_movers": func(r *analytics.Report) interface{} { return r.SlowMovers },
	"restock":     func(r *analytics.Report) interface{} { return r.Restock },
	"risk":        func(r *analytics.Report) interface{} { return r.Risk },
	"trends":      func(r *analytics.Report) interface{} { return r.Trends },
	"diagnostics": func(r *analytics.Report) interface{} { return r.Diagnostics },
}

type InsightsHandler struct {
	service  *service.InsightsService
	exporter *service.ExportService
}

func NewInsightsHandler(svc *service.InsightsService, exporter *service.ExportService) *InsightsHandler {
	return &InsightsHandler{service: svc, exporter: exporter}
}

// AnalyzeRequest is the body of a stateless analysis.
type AnalyzeRequest struct {
	analytics.Input
	Now                     *time.Time `json:"now,omitempty"`
	LookbackDays            *int       `json:"lookback_days,omitempty"`
	ForecastHorizonDays     *int       `json:"horizon_days,omitempty"`
	LeadTimeDays            *int       `json:"lead_time_days,omitempty"`
	SafetyStockDays         *int       `json:"safety_stock_days,omitempty"`
	SlowMovingThresholdDays *int       `json:"slow_moving_days,omitempty"`
	StockoutWindowDays      *int       `json:"stockout_window_days,omitempty"`
}

func (r AnalyzeRequest) overrides() service.Overrides {
	return service.Overrides{
		Now:                     r.Now,
		LookbackDays:            r.LookbackDays,
		ForecastHorizonDays:     r.ForecastHorizonDays,
		LeadTimeDays:            r.LeadTimeDays,
		SafetyStockDays:         r.SafetyStockDays,
		SlowMovingThresholdDays: r.SlowMovingThresholdDays,
		StockoutWindowDays:      r.StockoutWindowDays,
	}
}

func parseOverrides(c *gin.Context) (service.Overrides, error) {
	var ov service.Overrides

	parseInt := func(param string, dst **int) error {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer", param)
		}
		*dst = &n
		return nil
	}

	for param, dst := range map[string]**int{
		"lookback_days":        &ov.LookbackDays,
		"horizon_days":         &ov.ForecastHorizonDays,
		"lead_time_days":       &ov.LeadTimeDays,
		"safety_stock_days":    &ov.SafetyStockDays,
		"slow_moving_days":     &ov.SlowMovingThresholdDays,
		"stockout_window_days": &ov.StockoutWindowDays,
	} {
		if err := parseInt(param, dst); err != nil {
			return ov, err
		}
	}

	if raw := strings.TrimSpace(c.Query("now")); raw != "" {
		now, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return ov, fmt.Errorf("now must be an RFC3339 timestamp")
		}
		ov.Now = &now
	}

	return ov, nil
}

func (h *InsightsHandler) loadReport(c *gin.Context) (*analytics.Report, bool) {
	ov, err := parseOverrides(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": err.Error()})
		return nil, false
	}

	r, err := h.service.GetReport(c.Request.Context(), c.Param("tenant"), ov)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "failed to build report", "details": err.Error()})
		return nil, false
	}
	return r, true
}

func (h *InsightsHandler) GetReport(c *gin.Context) {
	r, ok := h.loadReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *InsightsHandler) GetReportCSV(c *gin.Context) {
	r, ok := h.loadReport(c)
	if !ok {
		return
	}

	data, err := report.Render(r, report.FormatCSV)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report", "details": err.Error()})
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", strings.ToLower(c.Param("tenant")), r.GeneratedAt.UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, report.FormatCSV.ContentType(), data)
}

// GetSection serves one part of the tenant's report.
func (h *InsightsHandler) GetSection(pick Section) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := h.loadReport(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, pick(r))
	}
}

// Analyze runs the engine over the request body without reading storage.
func (h *InsightsHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.service.Analyze(req.Input, req.overrides()))
}

func (h *InsightsHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export storage is not configured"})
		return
	}

	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format", "details": err.Error()})
		return
	}
	ov, err := parseOverrides(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": err.Error()})
		return
	}

	res, err := h.exporter.Export(c.Request.Context(), c.Param("tenant"), ov, format)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": "failed to export report", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, res)
}

// InvalidateCache drops the tenant's cached reports.
func (h *InsightsHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context(), c.Param("tenant")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache", "details": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InsightsHandler) ListTenants(c *gin.Context) {
	tenants, err := h.service.ListTenants(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tenants", "details": err.Error()})
		return
	}
	if tenants == nil {
		tenants = make([]string, 0)
	}
	c.JSON(http.StatusOK, tenants)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTenantRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
