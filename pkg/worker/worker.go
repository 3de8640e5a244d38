package worker

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// Worker consumes queued tasks until its context is cancelled.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr   string
	RedisDB     int
	Concurrency int
	Queues      map[string]int
}

// BaseWorker wraps an asynq server and its handler mux. Stop drains the
// in-flight task before shutting down: a pipeline run must not be killed
// halfway through writing its artifacts.
type BaseWorker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger logger.Logger
}

func (w *BaseWorker) Stop() error {
	w.server.Stop()
	w.server.Shutdown()
	return nil
}
