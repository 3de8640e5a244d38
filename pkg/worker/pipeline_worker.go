package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vincentdare/auto-extractor/internal/service/extraction"
	"github.com/vincentdare/auto-extractor/pkg/logger"
	"github.com/vincentdare/auto-extractor/pkg/queue"
)

// PipelineWorker consumes pipeline run and artifact cleanup tasks. One worker
// process serves both; the run-in-progress guard inside the service keeps a
// cleanup from racing a run even at concurrency above one.
type PipelineWorker struct {
	BaseWorker
	service extraction.Service
}

func NewPipelineWorker(cfg *Config, service extraction.Service, log logger.Logger) (*PipelineWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &PipelineWorker{
		BaseWorker: BaseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			logger: log.Named("worker"),
		},
		service: service,
	}

	w.registerHandlers()
	return w, nil
}

func (w *PipelineWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypePipelineRun, w.handlePipelineRun)
	w.mux.HandleFunc(queue.TaskTypeArtifactsCleanup, w.handleArtifactsCleanup)
}

func (w *PipelineWorker) handlePipelineRun(ctx context.Context, t *asynq.Task) error {
	task, err := w.decodeTask(t)
	if err != nil {
		return err
	}

	w.logger.Info("Processing pipeline run",
		logger.String("taskId", task.ID),
		logger.Any("metadata", task.Metadata),
	)

	if err := w.service.HandleRun(ctx, task); err != nil {
		w.logger.Error("Pipeline run failed",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (w *PipelineWorker) handleArtifactsCleanup(ctx context.Context, t *asynq.Task) error {
	task, err := w.decodeTask(t)
	if err != nil {
		return err
	}

	w.logger.Info("Processing artifact cleanup",
		logger.String("taskId", task.ID),
	)

	if err := w.service.HandleCleanup(ctx, task); err != nil {
		// A deferred purge (run still in flight) comes back here and
		// retries on the worker's backoff schedule.
		w.logger.Warn("Artifact cleanup not completed",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
		return err
	}
	return nil
}

func (w *PipelineWorker) decodeTask(t *asynq.Task) (*queue.Task, error) {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.ID == "" {
		return nil, fmt.Errorf("invalid task data: missing task ID")
	}
	return &task, nil
}

func (w *PipelineWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
