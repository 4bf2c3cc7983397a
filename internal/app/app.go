// Package app wires configuration into repositories, caches and services for
// the command entrypoints.
package app

import (
	"context"
	"fmt"

	"github.com/andresuchdata/pantrywise/backend-go/internal/cache"
	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/andresuchdata/pantrywise/backend-go/internal/pipeline"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/andresuchdata/pantrywise/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// Options select the backing stores.
type Options struct {
	// Memory keeps every record in process instead of Postgres.
	Memory bool
	// DatabaseURL overrides the configured connection.
	DatabaseURL string
	// NoStorage skips object storage; exports are unavailable.
	NoStorage bool
}

type App struct {
	Config   *config.Config
	DB       *postgres.DB
	Repo     repository.InsightsRepository
	Runs     pipeline.RunRepository
	Cache    cache.ReportCache
	Storage  storage.ObjectStorage
	Insights *service.InsightsService
	Ingest   *service.IngestService
	Export   *service.ExportService
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	if opts.Memory {
		a.Repo = repository.NewMemoryRepository()
		a.Runs = pipeline.NewMemoryRepository()
	} else {
		var (
			db  *postgres.DB
			err error
		)
		if opts.DatabaseURL != "" {
			db, err = postgres.NewDBFromURL(opts.DatabaseURL)
		} else {
			db, err = postgres.NewDB(&cfg.Database)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = db
		a.Repo = postgres.NewInsightsRepository(db)
		a.Runs = pipeline.NewRepository(db.DB)
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("report cache unavailable, continuing without cache")
		reportCache = cache.NewNoopReportCache()
	}
	a.Cache = reportCache

	loc := cfg.Engine.Location()
	a.Insights = service.NewInsightsService(a.Repo, a.Cache, cfg.Engine, cfg.Database.MaxEvents)
	a.Ingest = service.NewIngestService(a.Repo, a.Cache, loc)

	if !opts.NoStorage {
		store, err := storage.New(ctx, cfg.Storage, cfg.App.DataDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.Storage = store
		a.Export = service.NewExportService(a.Insights, store, cfg.Storage.Prefix)
	}

	return a, nil
}

// Refresher returns a worker that refreshes every tenant's report.
func (a *App) Refresher(cfg pipeline.Config) *pipeline.Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = a.Config.Pipeline.Workers
	}
	if len(cfg.Tenants) == 0 {
		cfg.Tenants = a.Config.Pipeline.Tenants
	}
	w := pipeline.NewWorker(a.Insights, a.Runs, cfg)
	if a.Export != nil {
		w = w.WithExporter(a.Export)
	}
	return w
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
