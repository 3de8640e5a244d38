package extraction

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/internal/utils/validator"
	"github.com/vincentdare/auto-extractor/pkg/queue"
)

// Service is what the HTTP handlers and the worker talk to: uploads into the
// class dataset folders, queued pipeline runs, artifact browsing, and the
// delayed workspace cleanup.
type Service interface {
	UploadDocument(ctx context.Context, class models.DocumentClass, file multipart.File, header *multipart.FileHeader) (*UploadResult, error)
	UploadBatch(ctx context.Context, class models.DocumentClass, files []*multipart.FileHeader) ([]*UploadResult, error)

	StartRun(ctx context.Context) (*models.ProcessingTask, error)
	GetTaskStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	CancelTask(ctx context.Context, taskID string) error

	// HandleRun and HandleCleanup are the worker-side task handlers.
	HandleRun(ctx context.Context, task *queue.Task) error
	HandleCleanup(ctx context.Context, task *queue.Task) error

	ListArtifacts() ([]Artifact, error)
	ArtifactPath(rel string) (string, error)
	Purge() error
}

// UploadResult reports where one accepted PDF landed.
type UploadResult struct {
	Class      models.DocumentClass        `json:"class"`
	Path       string                      `json:"path"`
	ArchiveKey string                      `json:"archiveKey,omitempty"`
	Validation *validator.ValidationResult `json:"validation"`
}

// Artifact describes one file under the output tree.
type Artifact struct {
	Path     string    `json:"path"` // relative to the output root
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}
