package converters

import (
	"fmt"
	"time"

	"github.com/vincentdare/auto-extractor/internal/models"
)

// ReportConverter flattens per-class run reports into the summary document
// the dashboard polls and the archive stores alongside the run's CSVs.
type ReportConverter interface {
	Convert(reports []models.RunReport) (*RunSummary, error)
}

// RunSummary is the processed form of one full pipeline run.
type RunSummary struct {
	Status      string         `json:"status"`
	Classes     []ClassOutcome `json:"classes"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// ClassOutcome carries one document class's counters and failures.
type ClassOutcome struct {
	RunID        string              `json:"runId"`
	Class        string              `json:"class"`
	Pages        int                 `json:"pages"`
	EmptyPages   int                 `json:"emptyPages"`
	Chunks       int                 `json:"chunks"`
	Rejected     int                 `json:"rejectedChunks"`
	RawRecords   int                 `json:"rawRecords"`
	CleanRecords int                 `json:"cleanRecords"`
	MissingNames int                 `json:"missingNames"`
	DurationMs   int64               `json:"durationMs"`
	StageErrors  []models.StageError `json:"stageErrors,omitempty"`
}

type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

// Convert summarizes the run. The overall status is "completed" only when no
// class recorded a stage failure; a run with failures but records is
// "degraded", so the dashboard can distinguish partial output from success.
func (c *JSONConverter) Convert(reports []models.RunReport) (*RunSummary, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("no run reports to convert")
	}

	summary := &RunSummary{
		Status:      "completed",
		GeneratedAt: time.Now(),
		Classes:     make([]ClassOutcome, 0, len(reports)),
	}

	for _, r := range reports {
		outcome := ClassOutcome{
			RunID:        r.RunID,
			Class:        string(r.Class),
			Pages:        r.Pages,
			EmptyPages:   r.EmptyPages,
			Chunks:       r.Chunks,
			Rejected:     r.Rejected,
			RawRecords:   r.RawRecords,
			CleanRecords: r.CleanRecords,
			MissingNames: r.MissingNames,
			StageErrors:  r.StageErrors,
		}
		if !r.FinishedAt.IsZero() {
			outcome.DurationMs = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
		}
		if len(r.StageErrors) > 0 {
			summary.Status = "degraded"
		}
		summary.Classes = append(summary.Classes, outcome)
	}

	return summary, nil
}
