package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/chartmuseum/storage"
)

// BackendStore implements ObjectStorage on top of a chartmuseum storage
// backend. It serves S3-compatible providers that MinIO's client does not
// sign for, such as path-style-only gateways.
type BackendStore struct {
	backend storage.Backend
}

func NewBackendStore(backend storage.Backend) *BackendStore {
	return &BackendStore{backend: backend}
}

// NewS3Store builds a BackendStore on chartmuseum's Amazon S3 backend.
func NewS3Store(cfg config.StorageConfig) (*BackendStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint must be provided")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	endpoint := cfg.Endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if !cfg.UseSSL {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, strings.TrimPrefix(cfg.Endpoint, "//"))
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	// the AWS session inside the backend reads credentials from the environment
	os.Setenv("AWS_ACCESS_KEY_ID", cfg.AccessKey)
	os.Setenv("AWS_SECRET_ACCESS_KEY", cfg.SecretKey)
	os.Setenv("AWS_REGION", region)
	os.Setenv("AWS_DEFAULT_REGION", region)

	forcePathStyle := true
	backend := storage.NewAmazonS3BackendWithOptions(cfg.Bucket, "", region, endpoint, "", &storage.AmazonS3Options{
		S3ForcePathStyle: &forcePathStyle,
	})
	return NewBackendStore(backend), nil
}

// ListObjects lists all objects for a given prefix. Backends report paths
// relative to the prefix, so keys are rebuilt here.
func (s *BackendStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects, err := s.backend.ListObjects(prefix)
	if err != nil {
		return nil, fmt.Errorf("storage list failed: %w", err)
	}
	out := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		out = append(out, ObjectInfo{
			Key:          path.Join(prefix, obj.Path),
			Size:         int64(len(obj.Content)),
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

// DownloadObject downloads an object to the provided destination path.
func (s *BackendStore) DownloadObject(ctx context.Context, key, destPath string) error {
	obj, err := s.backend.GetObject(key)
	if err != nil {
		return fmt.Errorf("storage get %s failed: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", destPath, err)
	}
	if err := os.WriteFile(destPath, obj.Content, 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", destPath, err)
	}
	return nil
}

// UploadObject stores data under key. The backend infers the content type.
func (s *BackendStore) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	if err := s.backend.PutObject(key, data); err != nil {
		return fmt.Errorf("storage put %s failed: %w", key, err)
	}
	return nil
}

var _ ObjectStorage = (*BackendStore)(nil)
