package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/pantrywise/backend-go/internal/ingest"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
)

var ErrNotFound = errors.New("not found")

// Source is the part of Drive the importer needs.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	DownloadFile(ctx context.Context, f *File, w io.Writer) error
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

type IngestService struct {
	source   Source
	ingester *service.IngestService
}

func NewIngestService(source Source, ingester *service.IngestService) *IngestService {
	return &IngestService{
		source:   source,
		ingester: ingester,
	}
}

// InferKind guesses the record kind from a file name such as
// "north-distributions-2026-03.csv" or "inventory_snapshot.xlsx".
func InferKind(name string) (ingest.Kind, error) {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "snapshot"), strings.Contains(n, "inventory"):
		return ingest.KindSnapshots, nil
	case strings.Contains(n, "item"):
		return ingest.KindItems, nil
	case strings.Contains(n, "event"), strings.Contains(n, "distribution"):
		return ingest.KindEvents, nil
	}
	return "", fmt.Errorf("cannot infer record kind from file name %q", name)
}

// IngestFile downloads one Drive file and imports it for tenant. An empty kind
// is inferred from the file name.
func (s *IngestService) IngestFile(ctx context.Context, fileID, tenant string, kind ingest.Kind) (*service.IngestResult, error) {
	f, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, f, tenant, kind, nil)
}

// ingest streams the file through the parser. When archive is set, the raw
// bytes are copied to it as they are read.
func (s *IngestService) ingest(ctx context.Context, f *File, tenant string, kind ingest.Kind, archive io.Writer) (*service.IngestResult, error) {
	format, err := f.Format()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	if kind == "" {
		if kind, err = InferKind(f.Name); err != nil {
			return nil, err
		}
	}

	// 1. Download file from Drive
	pr, pw := io.Pipe()
	defer pr.Close()
	go func() {
		err := s.source.DownloadFile(ctx, f, pw)
		pw.CloseWithError(err)
	}()

	var r io.Reader = pr
	if archive != nil {
		r = io.TeeReader(pr, archive)
	}

	// 2. Parse and store
	res, err := s.ingester.Import(ctx, tenant, kind, format, f.Name, r)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", f.Name, err)
	}
	return res, nil
}
