package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/cache"
	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// ErrTenantRequired is returned when a call names no tenant.
var ErrTenantRequired = errors.New("tenant is required")

// Overrides replace the configured engine parameters for one call. Nil fields
// keep the configured value.
type Overrides struct {
	Now                     *time.Time
	LookbackDays            *int
	ForecastHorizonDays     *int
	LeadTimeDays            *int
	SafetyStockDays         *int
	SlowMovingThresholdDays *int
	StockoutWindowDays      *int
}

func (o Overrides) apply(opts analytics.Options) analytics.Options {
	if o.Now != nil {
		opts.Now = *o.Now
	}
	if o.LookbackDays != nil {
		opts.LookbackDays = *o.LookbackDays
	}
	if o.ForecastHorizonDays != nil {
		opts.ForecastHorizonDays = *o.ForecastHorizonDays
	}
	if o.LeadTimeDays != nil {
		opts.LeadTimeDays = *o.LeadTimeDays
	}
	if o.SafetyStockDays != nil {
		opts.SafetyStockDays = *o.SafetyStockDays
	}
	if o.SlowMovingThresholdDays != nil {
		opts.SlowMovingThresholdDays = *o.SlowMovingThresholdDays
	}
	if o.StockoutWindowDays != nil {
		opts.StockoutWindowDays = *o.StockoutWindowDays
	}
	return opts.Normalize()
}

type InsightsService struct {
	repo      repository.InsightsRepository
	cache     cache.ReportCache
	engine    config.EngineConfig
	maxEvents int
	now       func() time.Time
}

func NewInsightsService(repo repository.InsightsRepository, cacheImpl cache.ReportCache, engine config.EngineConfig, maxEvents int) *InsightsService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if maxEvents <= 0 {
		maxEvents = repository.DefaultMaxEvents
	}
	return &InsightsService{
		repo:      repo,
		cache:     cacheImpl,
		engine:    engine,
		maxEvents: maxEvents,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock used when a call does not pin Now.
func (s *InsightsService) WithClock(now func() time.Time) *InsightsService {
	s.now = now
	return s
}

// Options resolves the configured parameters plus overrides. Without a pinned
// Now the clock is truncated to the minute so repeated calls share a cache entry.
func (s *InsightsService) Options(ov Overrides) analytics.Options {
	return ov.apply(s.engine.Options(s.now().Truncate(time.Minute)))
}

// GetReport loads the tenant's bounded window and runs the engine over it,
// serving from the report cache when the same inputs were analyzed before.
func (s *InsightsService) GetReport(ctx context.Context, tenant string, ov Overrides) (*analytics.Report, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return nil, ErrTenantRequired
	}

	opts := s.Options(ov)
	days := opts.LookbackDays
	if opts.StockoutWindowDays > days {
		days = opts.StockoutWindowDays
	}

	in, err := s.repo.LoadInput(ctx, tenant, repository.NewWindow(opts.Now, days, s.maxEvents))
	if err != nil {
		return nil, fmt.Errorf("load input for %s: %w", tenant, err)
	}

	return s.analyzeCached(ctx, tenant, in, opts), nil
}

// Analyze runs the engine over an inline payload without touching storage.
func (s *InsightsService) Analyze(in analytics.Input, ov Overrides) *analytics.Report {
	report := analytics.Analyze(in, s.Options(ov))
	return &report
}

// Invalidate drops cached reports for one tenant, or for all tenants when
// tenant is empty.
func (s *InsightsService) Invalidate(ctx context.Context, tenant string) error {
	if strings.TrimSpace(tenant) == "" {
		return s.cache.InvalidateAll(ctx)
	}
	return s.cache.InvalidateTenant(ctx, tenant)
}

func (s *InsightsService) ListTenants(ctx context.Context) ([]string, error) {
	return s.repo.ListTenants(ctx)
}

func (s *InsightsService) analyzeCached(ctx context.Context, tenant string, in analytics.Input, opts analytics.Options) *analytics.Report {
	key, err := cache.ReportKey(tenant, in, opts)
	if err != nil {
		log.Warn().Err(err).Str("tenant", tenant).Msg("insights: build cache key failed")
		report := analytics.Analyze(in, opts)
		return &report
	}

	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		cached.Options.Location = opts.Location
		return cached
	} else if err != nil {
		log.Warn().Err(err).Str("tenant", tenant).Msg("insights: cache get report failed")
	}

	report := analytics.Analyze(in, opts)

	if err := s.cache.Set(ctx, key, &report); err != nil {
		log.Warn().Err(err).Str("tenant", tenant).Msg("insights: cache set report failed")
	}

	return &report
}
