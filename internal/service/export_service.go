package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/report"
	"github.com/andresuchdata/pantrywise/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// ExportResult describes one report written to object storage.
type ExportResult struct {
	Tenant      string        `json:"tenant"`
	Key         string        `json:"key"`
	Format      report.Format `json:"format"`
	Size        int           `json:"size"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type ExportService struct {
	insights *InsightsService
	store    storage.ObjectStorage
	prefix   string
}

func NewExportService(insights *InsightsService, store storage.ObjectStorage, prefix string) *ExportService {
	return &ExportService{insights: insights, store: store, prefix: strings.Trim(prefix, "/")}
}

// Export renders the tenant's current report and uploads it.
func (s *ExportService) Export(ctx context.Context, tenant string, ov Overrides, format report.Format) (*ExportResult, error) {
	r, err := s.insights.GetReport(ctx, tenant, ov)
	if err != nil {
		return nil, err
	}

	data, err := report.Render(r, format)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	key := ExportKey(s.prefix, tenant, r.GeneratedAt, format)
	if err := s.store.UploadObject(ctx, key, data, format.ContentType()); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	log.Info().Str("tenant", tenant).Str("key", key).Int("bytes", len(data)).Msg("export: report uploaded")

	return &ExportResult{
		Tenant:      strings.TrimSpace(tenant),
		Key:         key,
		Format:      format,
		Size:        len(data),
		GeneratedAt: r.GeneratedAt,
	}, nil
}

// ExportKey is <prefix>/<tenant>/<yyyy-mm-dd>/report-<hhmmss>.<ext>, in UTC.
func ExportKey(prefix, tenant string, at time.Time, format report.Format) string {
	at = at.UTC()
	name := fmt.Sprintf("report-%s.%s", at.Format("150405"), format.Extension())
	return path.Join(prefix, strings.ToLower(strings.TrimSpace(tenant)), at.Format("2006-01-02"), name)
}
