package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
)

func newSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	s, err := New(config.DefaultPipelineConfig().Segment)
	require.NoError(t, err)
	return s
}

func TestSplitTwoRecordsWithTotalFooter(t *testing.T) {
	s := newSegmenter(t)

	text := "1234567890123456 NAME A 08123456789 01-02-2024 1,500,000 " +
		"9876543210987654 NAME B 08198765432 03-04-2024 2,000,000 " +
		"TOTAL 123456789"

	chunks := s.Split(text, models.DueDate)
	require.Len(t, chunks, 2)

	assert.Equal(t, "1234567890123456", chunks[0].LoanNumber)
	assert.Equal(t, "9876543210987654", chunks[1].LoanNumber)

	// First chunk ends before the second anchor.
	assert.NotContains(t, chunks[0].Text, "9876543210987654")
	// Final chunk is cut before the TOTAL marker; the footer total must not
	// leak into it.
	assert.NotContains(t, chunks[1].Text, "TOTAL")
	assert.NotContains(t, chunks[1].Text, "123456789 ")
}

func TestSplitIdentifierConsistency(t *testing.T) {
	s := newSegmenter(t)

	text := "1234567890123456 STEVEN LANGI 08123456789 01-02-2024 " +
		"9876543210987654 MARIA WUISAN 05-06-2024 750,000"

	for _, c := range s.Split(text, models.DueDate) {
		assert.Equal(t, c.LoanNumber, ExtractLoanNumber(c.Text),
			"re-extracting the identifier must yield the producing anchor")
	}
}

func TestSplitDropsShortChunk(t *testing.T) {
	s := newSegmenter(t)

	// Second anchor carries no record body at all.
	text := "1234567890123456 NAME A 08123456789 01-02-2024 1,500,000 9876543210987654"
	chunks := s.Split(text, models.DueDate)
	require.Len(t, chunks, 1)
	assert.Equal(t, "1234567890123456", chunks[0].LoanNumber)
}

func TestSplitDropsTrailerChunk(t *testing.T) {
	s := newSegmenter(t)

	// A lone anchor followed by footer text must not survive as a record:
	// the chunk is cut at TOTAL and the remainder is too short.
	text := "1234567890123456 TOTAL 901,392,824 KOTA MANADO Dibuat Oleh"
	assert.Empty(t, s.Split(text, models.DueDate))
}

func TestSplitProblemCreditLooserRule(t *testing.T) {
	s := newSegmenter(t)

	// No date, but a capitalized name token: valid for problem-credit.
	withName := "1234567890123456 12 00123456 HENDRIK MANOPO 5.000.000"
	require.Len(t, s.Split(withName, models.ProblemCredit), 1)

	// Neither a date nor a name-like token: rejected.
	bare := "1234567890123456 12 000 123"
	assert.Empty(t, s.Split(bare, models.ProblemCredit))
}

func TestNormalizeSeparatesFusedRuns(t *testing.T) {
	s := newSegmenter(t)

	assert.Equal(t, "STEVEN 123", s.Normalize("STEVEN123"))
	assert.Equal(t, "123 STEVEN", s.Normalize("123STEVEN"))
}

func TestNormalizeStripsDisallowedCharacters(t *testing.T) {
	s := newSegmenter(t)

	got := s.Normalize("NAMA* [08123456789] ~01-02-2024")
	assert.Equal(t, "NAMA 08123456789 01-02-2024", got)
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	s := newSegmenter(t)

	assert.Equal(t, "A B C", s.Normalize("  A \t B\n\nC "))
}

func TestNormalizeFixesTrailingOhDigits(t *testing.T) {
	s := newSegmenter(t)

	assert.Equal(t, "1,202,0", s.Normalize("1,202,0oo"))
}

func TestNormalizeAppliesConfiguredCorrections(t *testing.T) {
	cfg := config.DefaultPipelineConfig().Segment
	cfg.Corrections = []config.Correction{{Pattern: `\bBTEVEN\b`, Replace: "STEVEN"}}
	s, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, "STEVEN LANGI", s.Normalize("BTEVEN LANGI"))
}

func TestExtractLoanNumber(t *testing.T) {
	assert.Equal(t, "1234567890123456", ExtractLoanNumber("x 1234567890123456 y"))
	assert.Equal(t, "123456789012345", ExtractLoanNumber("123456789012345 name"))
	assert.Empty(t, ExtractLoanNumber("12345 too short"))
}
