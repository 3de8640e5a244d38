package converters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdare/auto-extractor/internal/models"
)

func TestConvertCleanRun(t *testing.T) {
	start := time.Now().Add(-2 * time.Minute)
	reports := []models.RunReport{
		{RunID: "a", Class: models.DueDate, Pages: 3, RawRecords: 40, CleanRecords: 37, StartedAt: start, FinishedAt: start.Add(time.Minute)},
		{RunID: "b", Class: models.ProblemCredit, Pages: 1, RawRecords: 9, CleanRecords: 9, StartedAt: start, FinishedAt: start.Add(90 * time.Second)},
	}

	summary, err := NewJSONConverter().Convert(reports)
	require.NoError(t, err)

	assert.Equal(t, "completed", summary.Status)
	require.Len(t, summary.Classes, 2)
	assert.Equal(t, "jatuh_tempo", summary.Classes[0].Class)
	assert.Equal(t, int64(60_000), summary.Classes[0].DurationMs)
	assert.Equal(t, 37, summary.Classes[0].CleanRecords)
}

func TestConvertDegradedOnStageError(t *testing.T) {
	reports := []models.RunReport{
		{RunID: "a", Class: models.DueDate},
		{RunID: "b", Class: models.ProblemCredit, StageErrors: []models.StageError{{Stage: "merge", Err: "boom"}}},
	}

	summary, err := NewJSONConverter().Convert(reports)
	require.NoError(t, err)
	assert.Equal(t, "degraded", summary.Status)
}

func TestConvertEmptyFails(t *testing.T) {
	_, err := NewJSONConverter().Convert(nil)
	assert.Error(t, err)
}
