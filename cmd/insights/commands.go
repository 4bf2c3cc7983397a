package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/api/handlers"
	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/andresuchdata/pantrywise/backend-go/internal/drive"
	"github.com/andresuchdata/pantrywise/backend-go/internal/ingest"
	"github.com/andresuchdata/pantrywise/backend-go/internal/pipeline"
	"github.com/andresuchdata/pantrywise/backend-go/internal/report"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func overridesFrom(c *cli.Context) service.Overrides {
	var ov service.Overrides
	intFlag := func(name string) *int {
		if !c.IsSet(name) {
			return nil
		}
		v := c.Int(name)
		return &v
	}
	ov.LookbackDays = intFlag("lookback-days")
	ov.ForecastHorizonDays = intFlag("horizon-days")
	ov.LeadTimeDays = intFlag("lead-time-days")
	ov.SafetyStockDays = intFlag("safety-stock-days")
	ov.SlowMovingThresholdDays = intFlag("slow-moving-days")
	ov.StockoutWindowDays = intFlag("stockout-window-days")
	if c.IsSet("now") {
		ov.Now = c.Timestamp("now")
	}
	return ov
}

// runAnalyze is fully offline: files are parsed in memory and the engine runs once.
func runAnalyze(c *cli.Context) error {
	cfg := config.Load()
	loc := cfg.Engine.Location()

	var in analytics.Input
	if path := c.String("input"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("decode input: %w", err)
		}
	}

	for _, src := range []struct {
		flag string
		kind ingest.Kind
	}{
		{"events", ingest.KindEvents},
		{"snapshots", ingest.KindSnapshots},
		{"items", ingest.KindItems},
	} {
		for _, path := range c.StringSlice(src.flag) {
			batch, err := parseFile(path, src.kind, loc)
			if err != nil {
				return err
			}
			in.Events = append(in.Events, batch.Events...)
			in.Snapshots = append(in.Snapshots, batch.Snapshots...)
			in.Items = append(in.Items, batch.Items...)
		}
	}

	svc := service.NewInsightsService(nil, nil, cfg.Engine, cfg.Database.MaxEvents)
	r := svc.Analyze(in, overridesFrom(c))

	out, closeOut, err := output(c.String("out"))
	if err != nil {
		return err
	}
	defer closeOut()

	if name := c.String("section"); name != "" {
		pick, ok := handlers.Sections[name]
		if !ok {
			return fmt.Errorf("unknown section %q", name)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(pick(r))
	}

	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	if format == report.FormatCSV {
		return report.WriteCSV(out, r)
	}
	return report.WriteJSON(out, r, true)
}

func parseFile(path string, kind ingest.Kind, loc *time.Location) (ingest.Batch, error) {
	format, err := ingest.DetectFormat(path)
	if err != nil {
		return ingest.Batch{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return ingest.Batch{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	batch, stats, err := ingest.Parse(kind, f, format, loc)
	if err != nil {
		return ingest.Batch{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if stats.Skipped > 0 {
		log.Warn().Str("file", path).Int("skipped", stats.Skipped).Interface("reasons", stats.Reasons).Msg("skipped malformed rows")
	}
	return batch, nil
}

func output(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func runIngest(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}

	var forced ingest.Kind
	if raw := c.String("kind"); raw != "" {
		if forced, err = ingest.ParseKind(raw); err != nil {
			return err
		}
	}

	tenant := c.String("tenant")
	for _, path := range c.Args().Slice() {
		kind := forced
		if kind == "" {
			if kind, err = drive.InferKind(filepath.Base(path)); err != nil {
				return err
			}
		}
		format, err := ingest.DetectFormat(path)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		res, err := a.Ingest.Import(c.Context, tenant, kind, format, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.Writer, "%s: %d %s stored, %d skipped\n", path, res.Stored, kind, res.Stats.Skipped)
	}
	return nil
}

func runDriveSync(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}

	src, err := drive.NewServiceFromFile(c.Context, c.String("credentials"))
	if err != nil {
		return err
	}

	opts := drive.SyncOptions{
		FolderID:    c.String("folder-id"),
		Tenant:      c.String("tenant"),
		DownloadDir: c.String("download-dir"),
	}
	if raw := c.String("kind"); raw != "" {
		if opts.Kind, err = ingest.ParseKind(raw); err != nil {
			return err
		}
	}
	if path := c.String("folder-path"); path != "" {
		if opts.FolderID, err = src.FindFolderByPath(c.Context, path); err != nil {
			return err
		}
	}

	syncer := drive.NewSyncer(drive.NewIngestService(src, a.Ingest))
	if c.Bool("watch") {
		err := syncer.Watch(c.Context, opts, c.Duration("interval"))
		if errors.Is(err, c.Context.Err()) {
			return nil
		}
		return err
	}

	results, err := syncer.SyncFolder(c.Context, opts)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Fprintf(c.App.Writer, "%s: failed: %s\n", r.File.Name, r.Error)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: %d stored, %d skipped\n", r.File.Name, r.Result.Stored, r.Result.Stats.Skipped)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func runRefresh(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Workers: c.Int("workers"),
		Tenants: c.StringSlice("tenant"),
	}
	if raw := c.String("export-format"); raw != "" {
		if cfg.ExportFormat, err = report.ParseFormat(raw); err != nil {
			return err
		}
	}

	run, err := a.Refresher(cfg).Run(c.Context)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return err
	}
	if run.Status == pipeline.StatusFailed {
		return fmt.Errorf("refresh run %s failed: %s", run.ID, run.ErrorMessage)
	}
	return nil
}

func runExport(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	if a.Export == nil {
		return errors.New("object storage is not configured")
	}

	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	res, err := a.Export.Export(c.Context, c.String("tenant"), overridesFrom(c), format)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "exported %s (%d bytes)\n", res.Key, res.Size)
	return nil
}
