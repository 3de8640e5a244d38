package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// MissingNamesLog appends records whose customer name could not be resolved
// to a dedicated audit CSV, so they can be reviewed manually instead of
// disappearing from the output.
type MissingNamesLog struct {
	path string
	mu   sync.Mutex
}

func NewMissingNamesLog(path string) *MissingNamesLog {
	return &MissingNamesLog{path: path}
}

// Append writes one audit row: source image, row sequence, raw chunk text.
func (l *MissingNamesLog) Append(filename string, seq int, rawText string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open missing-names log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{filename, strconv.Itoa(seq), rawText}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
