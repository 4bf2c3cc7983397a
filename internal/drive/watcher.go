package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/ingest"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/rs/zerolog/log"
)

// SyncOptions controls how a Drive folder is imported.
type SyncOptions struct {
	FolderID string
	Tenant   string
	// Kind forces the record kind; empty infers it per file name.
	Kind ingest.Kind
	// DownloadDir keeps a copy of every imported file when set.
	DownloadDir string
}

// FileResult is the outcome for one file of a sync.
type FileResult struct {
	File   *File                 `json:"file"`
	Result *service.IngestResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// Syncer imports every CSV, XLSX and Sheets file in a folder, skipping files
// whose modified time has not changed since the last successful import.
type Syncer struct {
	ingest *IngestService

	mu   sync.Mutex
	seen map[string]string
}

func NewSyncer(s *IngestService) *Syncer {
	return &Syncer{ingest: s, seen: make(map[string]string)}
}

// SyncFolder imports the folder once. A failing file does not stop the others.
func (s *Syncer) SyncFolder(ctx context.Context, opts SyncOptions) ([]FileResult, error) {
	if opts.DownloadDir != "" {
		if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create download dir: %w", err)
		}
	}

	files, err := s.ingest.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var results []FileResult
	for _, f := range files {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		if !f.Importable() || !s.changed(f) {
			continue
		}

		res, err := s.syncFile(ctx, f, opts)
		if err != nil {
			log.Error().Err(err).Str("file", f.Name).Str("tenant", opts.Tenant).Msg("drive: import failed")
			results = append(results, FileResult{File: f, Error: err.Error()})
			continue
		}
		s.markSeen(f)
		results = append(results, FileResult{File: f, Result: res})
	}

	return results, nil
}

func (s *Syncer) syncFile(ctx context.Context, f *File, opts SyncOptions) (*service.IngestResult, error) {
	if opts.DownloadDir == "" {
		return s.ingest.ingest(ctx, f, opts.Tenant, opts.Kind, nil)
	}

	localPath := filepath.Join(opts.DownloadDir, f.LocalName())
	out, err := os.Create(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer out.Close()

	return s.ingest.ingest(ctx, f, opts.Tenant, opts.Kind, out)
}

// Watch polls the folder every interval until ctx is done.
func (s *Syncer) Watch(ctx context.Context, opts SyncOptions, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		results, err := s.SyncFolder(ctx, opts)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("folder", opts.FolderID).Msg("drive: sync failed")
		}
		if len(results) > 0 {
			log.Info().Int("files", len(results)).Str("tenant", opts.Tenant).Msg("drive: folder synced")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Syncer) changed(f *File) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.seen[f.ID]
	return !ok || prev != f.ModifiedTime
}

func (s *Syncer) markSeen(f *File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[f.ID] = f.ModifiedTime
}
