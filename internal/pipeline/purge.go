package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// Purge deletes uploaded PDFs, rasterized pages and output artifacts, leaving
// the directory skeleton and the config directory in place. It refuses while
// a run is in progress so a scheduled cleanup can never delete files a live
// run is still producing.
func (r *Runner) Purge() error {
	if r.running.Load() {
		return ErrRunInProgress
	}

	for _, dir := range []string{r.app.DatasetDir(), r.app.ImagesDir(), r.app.OutputDir()} {
		if err := removeContents(dir); err != nil {
			return fmt.Errorf("failed to purge %s: %w", dir, err)
		}
	}
	r.logger.Info("purged run artifacts",
		logger.String("dataset", r.app.DatasetDir()),
		logger.String("images", r.app.ImagesDir()),
		logger.String("output", r.app.OutputDir()))
	return nil
}

func removeContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
