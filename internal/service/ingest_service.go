package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/cache"
	"github.com/andresuchdata/pantrywise/backend-go/internal/ingest"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// IngestResult summarizes one imported file.
type IngestResult struct {
	Tenant string       `json:"tenant"`
	Source string       `json:"source,omitempty"`
	Stored int          `json:"stored"`
	Stats  ingest.Stats `json:"stats"`
}

// IngestService parses CSV/XLSX exports into a tenant's history and drops the
// tenant's cached reports afterwards.
type IngestService struct {
	repo  repository.InsightsRepository
	cache cache.ReportCache
	loc   *time.Location
}

func NewIngestService(repo repository.InsightsRepository, cacheImpl cache.ReportCache, loc *time.Location) *IngestService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &IngestService{repo: repo, cache: cacheImpl, loc: loc}
}

// Import parses r as the given kind and format and stores the accepted rows.
func (s *IngestService) Import(ctx context.Context, tenant string, kind ingest.Kind, format ingest.Format, source string, r io.Reader) (*IngestResult, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return nil, ErrTenantRequired
	}

	batch, stats, err := ingest.Parse(kind, r, format, s.loc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}

	stored, err := s.Store(ctx, tenant, batch)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("tenant", tenant).
		Str("kind", string(kind)).
		Str("source", source).
		Int("rows", stats.Rows).
		Int("stored", stored).
		Int("skipped", stats.Skipped).
		Msg("ingest: file imported")

	return &IngestResult{Tenant: tenant, Source: source, Stored: stored, Stats: stats}, nil
}

// Store saves an already parsed batch. Items replace the tenant's current
// item list; events and snapshots are upserted.
func (s *IngestService) Store(ctx context.Context, tenant string, batch ingest.Batch) (int, error) {
	var (
		stored int
		err    error
	)
	switch batch.Kind {
	case ingest.KindEvents:
		stored, err = s.repo.SaveEvents(ctx, tenant, batch.Events)
	case ingest.KindSnapshots:
		stored, err = s.repo.SaveSnapshots(ctx, tenant, batch.Snapshots)
	case ingest.KindItems:
		stored, err = s.repo.ReplaceItems(ctx, tenant, batch.Items)
	default:
		return 0, fmt.Errorf("unknown ingest kind %q", batch.Kind)
	}
	if err != nil {
		return 0, fmt.Errorf("store %s for %s: %w", batch.Kind, tenant, err)
	}

	if err := s.cache.InvalidateTenant(ctx, tenant); err != nil {
		log.Warn().Err(err).Str("tenant", tenant).Msg("ingest: cache invalidate failed")
	}
	return stored, nil
}
