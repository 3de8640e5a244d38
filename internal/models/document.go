package models

import (
	"fmt"
	"time"
)

// DocumentClass identifies which report layout a scanned PDF follows. The class
// decides the rasterizer post-processing, the extraction rules and the required
// column set, and it is fixed for the lifetime of a run.
type DocumentClass string

const (
	// DueDate is the "Daftar Kredit Jatuh Tempo" report: loans approaching
	// their repayment deadline.
	DueDate DocumentClass = "jatuh_tempo"
	// ProblemCredit is the "Daftar Kredit Bermasalah" report: loans already
	// in arrears.
	ProblemCredit DocumentClass = "kredit_bermasalah"
)

// Classes lists every known document class in processing order.
var Classes = []DocumentClass{DueDate, ProblemCredit}

// ParseClass maps a folder or request value to a DocumentClass.
func ParseClass(s string) (DocumentClass, error) {
	switch DocumentClass(s) {
	case DueDate, ProblemCredit:
		return DocumentClass(s), nil
	default:
		return "", fmt.Errorf("unknown document class: %q", s)
	}
}

// FolderName returns the dataset folder the dashboard uploads PDFs into.
func (c DocumentClass) FolderName() string {
	switch c {
	case DueDate:
		return "Dataset Daftar Kredit Jatuh Tempo"
	case ProblemCredit:
		return "Dataset Daftar Kredit Bermasalah"
	}
	return string(c)
}

// PageImage is one rasterized PDF page, ready for recognition.
type PageImage struct {
	SourcePDF string `json:"sourcePdf"`
	Page      int    `json:"page"` // 1-based
	Path      string `json:"path"` // PNG on disk
}

// RawRecord is the extracted-but-unvalidated field set for one customer row.
// Empty strings and zero amounts mean "no match", which is a degraded outcome,
// not an error; the cleaner is the gatekeeper of record validity.
type RawRecord struct {
	Filename   string        `json:"filename"`
	Seq        int           `json:"no"`
	Class      DocumentClass `json:"class"`
	LoanNumber string        `json:"noSbg"`      // 15-16 digit SBG/Kredit number
	Customer   string        `json:"nasabah"`
	Phone      string        `json:"telpHp"`     // "; "-joined when multiple
	CreditDate string        `json:"tglKredit"`
	DueDate    string        `json:"tglJatuhTempo"`
	Appraisal  int64         `json:"taksiran"`
	LoanAmount int64         `json:"uangPinjaman"`
	ServiceFee int64         `json:"sm"`
	RawText    string        `json:"rawText,omitempty"`
}

// CleanRecord is the validated, normalized form of a RawRecord. LoanNumber and
// Customer are guaranteed non-empty; everything else may still be a zero value.
type CleanRecord struct {
	Class      DocumentClass `json:"class"`
	LoanNumber string        `json:"noSbg"`
	Customer   string        `json:"nasabah"`
	Phone      string        `json:"telpHp"`
	CreditDate string        `json:"tglKredit"`     // DD-MM-YYYY when parseable
	DueDate    string        `json:"tglJatuhTempo"` // DD-MM-YYYY when parseable
	Appraisal  int64         `json:"taksiran"`
	LoanAmount int64         `json:"uangPinjaman"`
	ServiceFee int64         `json:"sm"`
}

// PrimaryDate returns the date field downstream ordering keys on for the class.
func (r CleanRecord) PrimaryDate() string {
	if r.Class == ProblemCredit {
		return r.CreditDate
	}
	return r.DueDate
}

// RunReport accumulates per-stage counters for one pipeline run so the
// dashboard can show what each stage produced (and dropped).
type RunReport struct {
	RunID        string        `json:"runId"`
	Class        DocumentClass `json:"class"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt,omitempty"`
	Pages        int           `json:"pages"`
	EmptyPages   int           `json:"emptyPages"`
	Chunks       int           `json:"chunks"`
	Rejected     int           `json:"rejectedChunks"`
	RawRecords   int           `json:"rawRecords"`
	CleanRecords int           `json:"cleanRecords"`
	MissingNames int           `json:"missingNames"`
	StageErrors  []StageError  `json:"stageErrors,omitempty"`
}

// StageError records a stage that failed without aborting the whole run.
type StageError struct {
	Stage string `json:"stage"`
	Err   string `json:"error"`
}

// ProcessingTask mirrors the queue task shown to API clients.
type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)
