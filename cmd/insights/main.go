package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/app"
	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/andresuchdata/pantrywise/backend-go/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const appKey ctxKey = "app"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func newTenantFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Usage:    "Tenant (food bank) whose history is used",
		Required: required,
		EnvVars:  []string{"INSIGHTS_TENANT"},
	}
}

func overrideFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "lookback-days", Usage: "Forecast and turnover lookback window"},
		&cli.IntFlag{Name: "horizon-days", Usage: "Forecast horizon"},
		&cli.IntFlag{Name: "lead-time-days", Usage: "Restock lead time"},
		&cli.IntFlag{Name: "safety-stock-days", Usage: "Safety stock days"},
		&cli.IntFlag{Name: "slow-moving-days", Usage: "Age after which an item is a slow mover"},
		&cli.IntFlag{Name: "stockout-window-days", Usage: "Trailing window for usage rates (7, 14 or 30)"},
		&cli.TimestampFlag{Name: "now", Usage: "Anchor instant (RFC3339); defaults to the current time", Layout: time.RFC3339},
	}
}

// initApp opens the configured stores and keeps the app in the command context.
func initApp(c *cli.Context) error {
	logger.SetLevel(c.String("log-level"))

	a, err := app.New(c.Context, config.Load(), app.Options{
		Memory:      c.Bool("memory"),
		DatabaseURL: c.String("db-url"),
	})
	if err != nil {
		return err
	}

	c.Context = context.WithValue(c.Context, appKey, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) (*app.App, error) {
	a, ok := c.Context.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application is not initialized")
	}
	return a, nil
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	storeFlags := []cli.Flag{
		newDBURLFlag(),
		&cli.BoolFlag{
			Name:    "memory",
			Usage:   "Keep records in process instead of Postgres",
			EnvVars: []string{"INSIGHTS_MEMORY"},
		},
	}

	cliApp := &cli.App{
		Name:  "insights",
		Usage: "Inventory analytics and demand forecasting for food banks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   cfg.Log.Level,
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "analyze",
				Usage:     "Analyze exported files or a JSON payload without a database",
				ArgsUsage: " ",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON payload with events, snapshots and items"},
					&cli.StringSliceFlag{Name: "events", Usage: "Distribution event export (CSV or XLSX)"},
					&cli.StringSliceFlag{Name: "snapshots", Usage: "Inventory snapshot export (CSV or XLSX)"},
					&cli.StringSliceFlag{Name: "items", Usage: "Detailed item export (CSV or XLSX)"},
					&cli.StringFlag{Name: "section", Usage: "Print only one report section"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format (json or csv)", Value: "json"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
				}, overrideFlags()...),
				Action: runAnalyze,
			},
			{
				Name:      "ingest",
				Usage:     "Import CSV/XLSX exports into a tenant's history",
				ArgsUsage: "FILE...",
				Flags: append([]cli.Flag{
					newTenantFlag(true),
					&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Record kind (events, snapshots, items); inferred from file name when empty"},
				}, storeFlags...),
				Before: initApp,
				After:  closeApp,
				Action: runIngest,
			},
			{
				Name:  "drive-sync",
				Usage: "Import every CSV, XLSX and Sheets file of a Google Drive folder",
				Flags: append([]cli.Flag{
					newTenantFlag(true),
					&cli.StringFlag{Name: "folder-id", Usage: "Drive folder id", EnvVars: []string{"DRIVE_FOLDER_ID"}},
					&cli.StringFlag{Name: "folder-path", Usage: "Drive folder path, resolved from the root"},
					&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Record kind; inferred per file name when empty"},
					&cli.StringFlag{Name: "credentials", Usage: "Service account JSON", EnvVars: []string{"GOOGLE_APPLICATION_CREDENTIALS"}},
					&cli.StringFlag{Name: "download-dir", Usage: "Keep a copy of imported files here", EnvVars: []string{"DRIVE_DOWNLOAD_DIR"}},
					&cli.BoolFlag{Name: "watch", Usage: "Keep polling the folder"},
					&cli.DurationFlag{Name: "interval", Usage: "Polling interval with --watch", Value: 5 * time.Minute},
				}, storeFlags...),
				Before: initApp,
				After:  closeApp,
				Action: runDriveSync,
			},
			{
				Name:  "refresh",
				Usage: "Recompute and cache every tenant's report",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "Limit the refresh to these tenants", EnvVars: []string{"PIPELINE_TENANTS"}},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent tenants", EnvVars: []string{"PIPELINE_WORKERS"}},
					&cli.StringFlag{Name: "export-format", Usage: "Also export each report (json or csv)"},
				}, storeFlags...),
				Before: initApp,
				After:  closeApp,
				Action: runRefresh,
			},
			{
				Name:  "export",
				Usage: "Render a tenant's report and upload it to object storage",
				Flags: append(append([]cli.Flag{
					newTenantFlag(true),
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json or csv", Value: "json"},
				}, storeFlags...), overrideFlags()...),
				Before: initApp,
				After:  closeApp,
				Action: runExport,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		stop()
		logger.Log.Fatal().Err(err).Msg("insights failed")
	}
}
