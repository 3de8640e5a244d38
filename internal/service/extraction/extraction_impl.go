package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/internal/pipeline"
	"github.com/vincentdare/auto-extractor/internal/utils/validator"
	"github.com/vincentdare/auto-extractor/pkg/converters"
	"github.com/vincentdare/auto-extractor/pkg/logger"
	"github.com/vincentdare/auto-extractor/pkg/queue"
	"github.com/vincentdare/auto-extractor/pkg/storage"
)

type ExtractionService struct {
	runner    *pipeline.Runner
	queue     queue.Queue
	archive   storage.Storage
	validator *validator.DocumentValidator
	converter converters.ReportConverter
	logger    logger.Logger
	app       *config.AppConfig

	// maxConcurrent bounds the batch-upload fan-out.
	maxConcurrent int
}

func NewService(
	runner *pipeline.Runner,
	q queue.Queue,
	archive storage.Storage,
	log logger.Logger,
	app *config.AppConfig,
) Service {
	return &ExtractionService{
		runner:        runner,
		queue:         q,
		archive:       archive,
		validator:     validator.NewDocumentValidator(log, nil),
		converter:     converters.NewJSONConverter(),
		logger:        log.Named("service"),
		app:           app,
		maxConcurrent: 5,
	}
}

// GetService wires the full stack from environment configuration: pipeline
// config and message templates from the config dir, Redis-backed queue, and
// the configured archive backend.
func GetService(log logger.Logger) (Service, error) {
	app := config.GetAppConfig()

	pipeCfg, err := config.LoadPipelineConfig(filepath.Join(app.ConfigDir(), "pipeline.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}
	fields, err := config.LoadFields(app.ConfigDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load field structures: %w", err)
	}
	templates, err := config.LoadTemplates(app.ConfigDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load message templates: %w", err)
	}

	q, err := queue.NewAsynqQueue(&queue.QueueConfig{
		RedisAddr: app.RedisAddr,
		RedisDB:   app.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	archive, err := storage.NewStorage(storage.BackendType(app.ArchiveBackend), app, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive storage: %w", err)
	}

	runner := pipeline.NewRunner(app, pipeCfg, fields, templates, log)
	return NewService(runner, q, archive, log, app), nil
}

// UploadDocument validates one PDF and places it in the class dataset folder.
// An archive copy is stored as well, so the post-run cleanup cannot destroy
// the only copy of a source document.
func (s *ExtractionService) UploadDocument(
	ctx context.Context,
	class models.DocumentClass,
	file multipart.File,
	header *multipart.FileHeader,
) (*UploadResult, error) {
	s.logger.Info("Receiving document",
		logger.String("class", string(class)),
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	result, err := s.validator.ValidateFile(header)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !result.IsValid {
		return &UploadResult{Class: class, Validation: result}, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	destDir := filepath.Join(s.app.DatasetDir(), class.FolderName())
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset folder: %w", err)
	}

	name := filepath.Base(header.Filename)
	destPath := filepath.Join(destDir, name)
	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to write dataset file: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush dataset file: %w", err)
	}

	archiveKey := fmt.Sprintf("uploads/%s/%s", class, name)
	src, err := os.Open(destPath)
	if err == nil {
		defer src.Close()
		if _, err := s.archive.Store(ctx, src, archiveKey); err != nil {
			s.logger.Warn("Failed to archive upload",
				logger.String("key", archiveKey),
				logger.Error(err),
			)
			archiveKey = ""
		}
	}

	return &UploadResult{
		Class:      class,
		Path:       destPath,
		ArchiveKey: archiveKey,
		Validation: result,
	}, nil
}

// UploadBatch fans the files out over a bounded errgroup. One rejected file
// fails the batch; partially accepted uploads are reported back so the
// dashboard can show what landed.
func (s *ExtractionService) UploadBatch(ctx context.Context, class models.DocumentClass, files []*multipart.FileHeader) ([]*UploadResult, error) {
	results := make([]*UploadResult, 0, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", header.Filename, err)
			}
			defer file.Close()

			result, err := s.UploadDocument(ctx, class, file, header)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", header.Filename, err)
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// StartRun enqueues the pipeline run and, behind it, the delayed workspace
// cleanup. The run task ID is returned for status polling.
func (s *ExtractionService) StartRun(ctx context.Context) (*models.ProcessingTask, error) {
	if s.runner.Running() {
		return nil, pipeline.ErrRunInProgress
	}

	taskID := uuid.New().String()
	now := time.Now()
	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypePipelineRun,
		Priority:  2,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]string{"trigger": "api"},
	}

	runTask := &queue.Task{
		ID:        taskID,
		Type:      queue.TaskTypePipelineRun,
		Priority:  2,
		Metadata:  task.Metadata,
		CreatedAt: now,
	}
	if err := s.queue.Enqueue(ctx, runTask); err != nil {
		return nil, fmt.Errorf("failed to enqueue pipeline run: %w", err)
	}

	cleanupTask := &queue.Task{
		ID:        uuid.New().String(),
		Type:      queue.TaskTypeArtifactsCleanup,
		Priority:  3,
		Delay:     s.app.CleanupDelay(),
		Metadata:  map[string]string{"runTaskId": taskID},
		CreatedAt: now,
	}
	if err := s.queue.Enqueue(ctx, cleanupTask); err != nil {
		// The run still happens; only automatic cleanup is lost.
		s.logger.Error("Failed to schedule artifact cleanup", logger.Error(err))
	}

	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:    taskID,
		Status:    "pending",
		StartedAt: now,
	}); err != nil {
		s.logger.Error("Failed to save initial status", logger.Error(err))
	}

	s.logger.Info("Pipeline run enqueued",
		logger.String("taskId", taskID),
		logger.Duration("cleanupDelay", s.app.CleanupDelay()),
	)
	return task, nil
}

func (s *ExtractionService) GetTaskStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task := &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    models.ProcessingStatus(status.Status),
		Progress:  status.Progress,
		Error:     status.Error,
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}
	return task, nil
}

func (s *ExtractionService) CancelTask(ctx context.Context, taskID string) error {
	return s.queue.CancelTask(ctx, taskID)
}

// HandleRun executes the pipeline from the worker. The run summary is written
// into the output tree and archived together with every artifact the run
// produced.
func (s *ExtractionService) HandleRun(ctx context.Context, task *queue.Task) error {
	started := time.Now()
	s.saveStatus(ctx, task.ID, "running", 0.1, "", started, time.Time{})

	reports, err := s.runner.Run(ctx)
	if err != nil {
		s.saveStatus(ctx, task.ID, "failed", 0, err.Error(), started, time.Now())
		return err
	}

	summary, err := s.converter.Convert(reports)
	if err != nil {
		s.saveStatus(ctx, task.ID, "failed", 0, err.Error(), started, time.Now())
		return err
	}

	if err := s.writeSummary(summary); err != nil {
		s.logger.Error("Failed to write run summary", logger.Error(err))
	}
	if err := s.archiveArtifacts(ctx, started); err != nil {
		s.logger.Error("Failed to archive run artifacts", logger.Error(err))
	}

	progress := 1.0
	statusText := summary.Status
	s.saveStatus(ctx, task.ID, statusText, progress, "", started, time.Now())

	s.logger.Info("Pipeline run finished",
		logger.String("taskId", task.ID),
		logger.String("status", statusText),
	)
	return nil
}

// HandleCleanup purges the workspace after the download window and sweeps the
// archive past its retention. A run in flight defers the purge to the next
// retry rather than deleting files mid-write.
func (s *ExtractionService) HandleCleanup(ctx context.Context, task *queue.Task) error {
	if err := s.runner.Purge(); err != nil {
		return fmt.Errorf("workspace purge deferred: %w", err)
	}

	threshold := time.Now().AddDate(0, 0, -s.app.ArchiveRetentionDays)
	if err := s.archive.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("archive sweep failed: %w", err)
	}

	s.logger.Info("Artifact cleanup finished",
		logger.String("taskId", task.ID),
		logger.Time("archiveThreshold", threshold),
	)
	return nil
}

// ListArtifacts walks the output tree. Paths are relative with forward
// slashes so they round-trip through the download endpoint.
func (s *ExtractionService) ListArtifacts() ([]Artifact, error) {
	root := s.app.OutputDir()
	var artifacts []Artifact

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, Artifact{
			Path:     filepath.ToSlash(rel),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// ArtifactPath resolves a relative artifact path to a file under the output
// root, rejecting traversal.
func (s *ExtractionService) ArtifactPath(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid artifact path: %q", rel)
	}

	path := filepath.Join(s.app.OutputDir(), clean)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("artifact not found: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("artifact path is a directory: %q", rel)
	}
	return path, nil
}

func (s *ExtractionService) Purge() error {
	return s.runner.Purge()
}

func (s *ExtractionService) writeSummary(summary *converters.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.app.OutputDir(), "run_report.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// archiveArtifacts copies the full output tree into the archive under a
// per-run prefix.
func (s *ExtractionService) archiveArtifacts(ctx context.Context, started time.Time) error {
	prefix := fmt.Sprintf("runs/%s", started.Format("2006-01-02T15-04-05"))
	artifacts, err := s.ListArtifacts()
	if err != nil {
		return err
	}

	for _, a := range artifacts {
		data, err := os.ReadFile(filepath.Join(s.app.OutputDir(), filepath.FromSlash(a.Path)))
		if err != nil {
			return err
		}
		key := prefix + "/" + a.Path
		if _, err := s.archive.Store(ctx, bytes.NewReader(data), key); err != nil {
			return fmt.Errorf("failed to archive %s: %w", a.Path, err)
		}
	}

	s.logger.Info("Run artifacts archived",
		logger.String("prefix", prefix),
		logger.Int("count", len(artifacts)),
	)
	return nil
}

func (s *ExtractionService) saveStatus(ctx context.Context, taskID, status string, progress float64, errMsg string, started, finished time.Time) {
	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:     taskID,
		Status:     status,
		Progress:   progress,
		Error:      errMsg,
		StartedAt:  started,
		FinishedAt: finished,
	}); err != nil {
		s.logger.Error("Failed to save task status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}
}
