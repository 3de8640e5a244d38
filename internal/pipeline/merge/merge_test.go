package merge

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdare/auto-extractor/pkg/logger"
)

func writeParsed(t *testing.T, outDir, name string, rows [][]string) {
	t.Helper()
	dir := filepath.Join(outDir, "parsed_output")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
}

func readDataset(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestBuildUnionsBothClasses(t *testing.T) {
	outDir := t.TempDir()
	writeParsed(t, outDir, "jatuh_tempo_extracted.csv", [][]string{
		{"NO_SBG", "NASABAH", "TELP_HP", "TGL_JATUH_TEMPO", "UANG_PINJAMAN"},
		{"1202400186700123", "BUDI", "081234567890", "05-01-2024", "1.250.000"},
	})
	writeParsed(t, outDir, "kredit_bermasalah_extracted.csv", [][]string{
		{"NO_KREDIT", "NASABAH", "UANG_PINJAMAN"},
		{"120240018670012345", "SITI", "2.000.000"},
	})

	path, n, err := New(outDir, logger.NewTestLogger()).Build()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, filepath.Join(outDir, "dataset_clustering", "dataset.csv"), path)

	rows := readDataset(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"NO_SBG", "NASABAH", "TELP_HP", "TGL_JATUH_TEMPO", "UANG_PINJAMAN"}, rows[0])

	// The problem-credit identifier lands in NO_SBG; its missing columns
	// are empty cells.
	assert.Equal(t, []string{"120240018670012345", "SITI", "", "", "2.000.000"}, rows[2])
}

func TestBuildCanonicalizesHeaderCase(t *testing.T) {
	outDir := t.TempDir()
	writeParsed(t, outDir, "jatuh_tempo_extracted.csv", [][]string{
		{"no_sbg", "Nasabah"},
		{"1202400186700123", "BUDI"},
	})

	path, _, err := New(outDir, logger.NewTestLogger()).Build()
	require.NoError(t, err)
	rows := readDataset(t, path)
	assert.Equal(t, []string{"NO_SBG", "NASABAH"}, rows[0])
}

func TestBuildWithoutParsedOutputFails(t *testing.T) {
	_, _, err := New(t.TempDir(), logger.NewTestLogger()).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the parsing stage first")
}

func TestBuildEmptyParsedDirFails(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "parsed_output"), 0o755))
	_, _, err := New(outDir, logger.NewTestLogger()).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the parsing stage first")
}
