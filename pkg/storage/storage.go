package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/pkg/logger"
	"github.com/vincentdare/auto-extractor/pkg/storage/local"
	"github.com/vincentdare/auto-extractor/pkg/storage/minio"
)

// BackendType selects where run artifacts are archived.
type BackendType string

const (
	// BackendMinio archives to a MinIO bucket, which also fronts any
	// S3-compatible endpoint.
	BackendMinio BackendType = "minio"
	// BackendLocal archives to a directory outside the purgeable workspace.
	BackendLocal BackendType = "local"
)

// Storage archives source PDFs and run artifacts so the delayed workspace
// cleanup never destroys the only copy of a result.
type Storage interface {
	// Store writes the object under key and returns the key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get opens the object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes one object.
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes every object last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage builds the archive backend named by backendType.
func NewStorage(backendType BackendType, app *config.AppConfig, log logger.Logger) (Storage, error) {
	switch backendType {
	case BackendMinio:
		return minio.NewMinioStorage(app, log)
	case BackendLocal:
		return local.NewLocalStorage(app.ArchiveDir(), log)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backendType)
	}
}
