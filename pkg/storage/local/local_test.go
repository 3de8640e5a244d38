package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdare/auto-extractor/pkg/logger"
)

func newStore(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)
	return s
}

func TestStoreAndGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	key, err := s.Store(ctx, strings.NewReader("No_SBG,Nasabah\n"), "runs/2026-01-05/dataset.csv")
	require.NoError(t, err)
	assert.Equal(t, "runs/2026-01-05/dataset.csv", key)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "No_SBG,Nasabah\n", string(data))
}

func TestRejectsTraversalKeys(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"../escape.csv", "/etc/passwd", "a/../../b"} {
		_, err := s.Store(ctx, strings.NewReader("x"), key)
		assert.Error(t, err, key)
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Delete(context.Background(), "never/stored.csv"))
}

func TestCleanupBeforeSweepsOldFilesAndEmptyDirs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Store(ctx, strings.NewReader("old"), "runs/old/report.csv")
	require.NoError(t, err)
	_, err = s.Store(ctx, strings.NewReader("new"), "runs/new/report.csv")
	require.NoError(t, err)

	oldPath := filepath.Join(s.root, "runs", "old", "report.csv")
	past := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	require.NoError(t, s.CleanupBefore(ctx, time.Now().AddDate(0, 0, -30)))

	assert.NoFileExists(t, oldPath)
	assert.NoDirExists(t, filepath.Join(s.root, "runs", "old"))
	assert.FileExists(t, filepath.Join(s.root, "runs", "new", "report.csv"))
}
