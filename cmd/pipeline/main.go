package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/pipeline"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// One-shot runner: processes whatever sits in the dataset folders and exits.
// No queue, no server; meant for cron jobs and manual reruns.
func main() {
	purgeFirst := flag.Bool("purge", false, "clear dataset, image and output trees instead of running")
	flag.Parse()

	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stdout"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	app := config.GetAppConfig()

	pipeCfg, err := config.LoadPipelineConfig(filepath.Join(app.ConfigDir(), "pipeline.yaml"))
	if err != nil {
		log.Fatal("Failed to load pipeline config", logger.Error(err))
	}
	fields, err := config.LoadFields(app.ConfigDir())
	if err != nil {
		log.Fatal("Failed to load field structures", logger.Error(err))
	}
	templates, err := config.LoadTemplates(app.ConfigDir())
	if err != nil {
		log.Fatal("Failed to load message templates", logger.Error(err))
	}

	runner := pipeline.NewRunner(app, pipeCfg, fields, templates, log)

	if *purgeFirst {
		if err := runner.Purge(); err != nil {
			log.Fatal("Purge failed", logger.Error(err))
		}
		log.Info("Workspace purged")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		cancel()
	}()

	reports, err := runner.Run(ctx)
	if err != nil {
		log.Fatal("Pipeline run failed", logger.Error(err))
	}

	failed := 0
	for _, report := range reports {
		log.Info("Class finished",
			logger.String("class", string(report.Class)),
			logger.Int("pages", report.Pages),
			logger.Int("rawRecords", report.RawRecords),
			logger.Int("cleanRecords", report.CleanRecords),
			logger.Int("missingNames", report.MissingNames),
			logger.Int("stageErrors", len(report.StageErrors)),
		)
		for _, se := range report.StageErrors {
			failed++
			log.Error("Stage failed",
				logger.String("class", string(report.Class)),
				logger.String("stage", se.Stage),
				logger.String("error", se.Err),
			)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "run finished with %d stage failures\n", failed)
		os.Exit(1)
	}
}
