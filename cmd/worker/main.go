package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/service/extraction"
	"github.com/vincentdare/auto-extractor/pkg/logger"
	"github.com/vincentdare/auto-extractor/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	app := config.GetAppConfig()

	service, err := extraction.GetService(log)
	if err != nil {
		log.Error("Failed to build extraction service", logger.Error(err))
		os.Exit(1)
	}

	// Concurrency stays at 1: a pipeline run owns the whole workspace, and
	// the cleanup task must never overlap it.
	workerCfg := &worker.Config{
		RedisAddr:   app.RedisAddr,
		RedisDB:     app.RedisDB,
		Concurrency: 1,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	pipelineWorker, err := worker.NewPipelineWorker(workerCfg, service, log)
	if err != nil {
		log.Error("Failed to create pipeline worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pipelineWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	pipelineWorker.Stop()
	log.Info("Worker stopped")
}
