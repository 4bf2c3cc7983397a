package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the minimal S3-compatible operations report export needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// New returns the configured remote store when storage is enabled and a local
// directory store under fallbackDir otherwise.
func New(ctx context.Context, cfg config.StorageConfig, fallbackDir string) (ObjectStorage, error) {
	if !cfg.Enabled {
		return NewLocalStorage(fallbackDir), nil
	}
	switch cfg.Driver {
	case "", "minio":
		return NewMinioClient(ctx, cfg)
	case "s3":
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
