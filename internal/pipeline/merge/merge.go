package merge

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// Merger unions the per-class extracted CSVs into one dataset.csv for
// downstream analysis. The two classes name their identifier column
// differently (NO_SBG vs NO_KREDIT); the merge reconciles them under NO_SBG
// so consumers key on a single column.
type Merger struct {
	logger logger.Logger
	outDir string
}

func New(outDir string, log logger.Logger) *Merger {
	return &Merger{
		logger: log.Named("merge"),
		outDir: outDir,
	}
}

// Build reads every CSV under parsed_output and writes the merged dataset.
// Columns are unioned in first-seen order; a record without some column gets
// an empty cell. It returns the dataset path and the row count.
func (m *Merger) Build() (string, int, error) {
	parsedDir := filepath.Join(m.outDir, "parsed_output")
	entries, err := os.ReadDir(parsedDir)
	if os.IsNotExist(err) {
		return "", 0, fmt.Errorf("no parsed output at %s: run the parsing stage first", parsedDir)
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to list parsed output: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
			files = append(files, filepath.Join(parsedDir, e.Name()))
		}
	}
	if len(files) == 0 {
		return "", 0, fmt.Errorf("no parsed CSV files in %s: run the parsing stage first", parsedDir)
	}
	sort.Strings(files) // jatuh_tempo before kredit_bermasalah

	var columns []string
	seen := map[string]bool{}
	var records []map[string]string

	for _, path := range files {
		header, rows, err := readCSV(path)
		if err != nil {
			return "", 0, err
		}
		for i, col := range header {
			header[i] = canonicalColumn(col)
		}
		for _, col := range header {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
		for _, row := range rows {
			rec := make(map[string]string, len(header))
			for i, col := range header {
				if i < len(row) {
					rec[col] = row[i]
				}
			}
			records = append(records, rec)
		}
	}

	datasetDir := filepath.Join(m.outDir, "dataset_clustering")
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create dataset dir: %w", err)
	}
	datasetPath := filepath.Join(datasetDir, "dataset.csv")
	if err := writeDataset(datasetPath, columns, records); err != nil {
		return "", 0, err
	}

	m.logger.Info("merged dataset",
		logger.String("path", datasetPath),
		logger.Int("sources", len(files)),
		logger.Int("rows", len(records)))
	return datasetPath, len(records), nil
}

// canonicalColumn upper-cases a header cell and folds the problem-credit
// identifier name into the shared one.
func canonicalColumn(col string) string {
	col = strings.ToUpper(strings.TrimSpace(col))
	if col == "NO_KREDIT" {
		return "NO_SBG"
	}
	return col
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

func writeDataset(path string, columns []string, records []map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
