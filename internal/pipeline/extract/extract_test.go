package extract

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/internal/pipeline/segment"
)

func newExtractor() *Extractor {
	return New(config.DefaultPipelineConfig().Extract)
}

func chunk(text string) segment.Chunk {
	return segment.Chunk{LoanNumber: segment.ExtractLoanNumber(text), Text: text}
}

func TestDueDateRecord(t *testing.T) {
	e := newExtractor()

	rec := e.DueDate(chunk(
		"1234567890123456 STEVEN LANGI 08123456789 01-02-2024 15-03-2024 2,500,000 2,000,000 120,000"))

	assert.Equal(t, "1234567890123456", rec.LoanNumber)
	assert.Equal(t, "STEVEN LANGI", rec.Customer)
	assert.Equal(t, "08123456789", rec.Phone)
	assert.Equal(t, "01-02-2024", rec.CreditDate)
	assert.Equal(t, "15-03-2024", rec.DueDate)
	assert.Equal(t, int64(2_500_000), rec.Appraisal)
	assert.Equal(t, int64(2_000_000), rec.LoanAmount)
	assert.Equal(t, int64(120_000), rec.ServiceFee)
}

func TestDueDateNameCutoffs(t *testing.T) {
	e := newExtractor()

	cases := []struct {
		text string
		want string
	}{
		// phone terminates the name
		{"1234567890123456 STEVEN LANGI 08123456789 01-02-2024", "STEVEN LANGI"},
		// no phone: the first date terminates it
		{"1234567890123456 MARIA WUISAN 01-02-2024 15-03-2024", "MARIA WUISAN"},
		// neither: the first thousands-grouped amount terminates it
		{"1234567890123456 BUDI 1,500,000 120,000", "BUDI"},
		// stray punctuation around the name is stripped
		{"1234567890123456 - BUDI SANTOSO, 08123456789", "BUDI SANTOSO"},
	}
	for _, tc := range cases {
		rec := e.DueDate(chunk(tc.text))
		assert.Equal(t, tc.want, rec.Customer, "text: %s", tc.text)
	}
}

func TestDueDateNameEmptyWithoutIdentifier(t *testing.T) {
	e := newExtractor()
	assert.Empty(t, e.dueDateName("no identifier here 08123456789"))
}

func TestPhonesDedupedAndJoined(t *testing.T) {
	e := newExtractor()

	got := e.phones("x 08198765432 y 08123456789 z 08123456789")
	assert.Equal(t, "08123456789; 08198765432", got)
}

func TestPhonesLengthBounds(t *testing.T) {
	e := newExtractor()

	// 10 digits is the shortest accepted form.
	assert.Equal(t, "0812345678", e.phones("0812345678"))
	// 9 digits is not a mobile number.
	assert.Empty(t, e.phones("081234567 "))
}

func TestLoosePhonesForProblemCredit(t *testing.T) {
	e := newExtractor()

	// Separators are stripped before the length check.
	assert.Equal(t, "08123456789", e.loosePhones("tunggakan 0812-3456-789 hari"))
	assert.Empty(t, e.phones("tunggakan 0812-3456-789 hari"), "strict pattern skips separator-laced numbers")

	// The 08 prefix misread as 02 is still collected.
	assert.Equal(t, "0212345678", e.loosePhones("telp 0212345678"))
	assert.Empty(t, e.loosePhones("0312345678"), "other prefixes stay out")
}

func TestDatesInAppearanceOrder(t *testing.T) {
	credit, due := dates("a 01-02-2024 b 15-03-2024 c 31-12-2024")
	assert.Equal(t, "01-02-2024", credit)
	assert.Equal(t, "15-03-2024", due)

	credit, due = dates("only 01-02-2024 here")
	assert.Equal(t, "01-02-2024", credit)
	assert.Empty(t, due)

	credit, due = dates("no dates at all")
	assert.Empty(t, credit)
	assert.Empty(t, due)
}

func TestProblemCreditNameFromColumns(t *testing.T) {
	e := newExtractor()

	rec := e.ProblemCredit(context.Background(), chunk(
		"1234567890123456 00123456 HENDRIK MANOPO 01-02-2024 5.000.000 250.000"),
		models.PageImage{}, nil)

	assert.Equal(t, "HENDRIK MANOPO", rec.Customer)
	assert.Equal(t, "1234567890123456", rec.LoanNumber)
}

func TestProblemCreditNameCapitalRunFallback(t *testing.T) {
	e := newExtractor()

	// No CIF prefix column, so the structured pattern fails; the first
	// name-like run of capitals wins.
	rec := e.ProblemCredit(context.Background(), chunk(
		"1234567890123456 HENDRIK MANOPO 5.000.000"),
		models.PageImage{}, nil)

	assert.Equal(t, "HENDRIK MANOPO", rec.Customer)
}

type fakeRegionReader struct{ text string }

func (f *fakeRegionReader) ReadRegion(_ context.Context, _ string, _ image.Rectangle) (string, error) {
	return f.text, nil
}

func TestProblemCreditNameRegionFallback(t *testing.T) {
	e := newExtractor().WithRegionReader(&fakeRegionReader{text: "SARI DEWI"})

	box := image.Rect(10, 20, 300, 60)
	rec := e.ProblemCredit(context.Background(), chunk(
		"1234567890123456 867 301"),
		models.PageImage{Path: "page.png"}, &box)

	assert.Equal(t, "SARI DEWI", rec.Customer)
}

func TestProblemCreditNameSentinel(t *testing.T) {
	e := newExtractor()

	rec := e.ProblemCredit(context.Background(), chunk(
		"1234567890123456 867 301"),
		models.PageImage{}, nil)

	assert.Equal(t, UnknownName, rec.Customer)
}

func TestSummaryAmountsAlternate(t *testing.T) {
	e := newExtractor()

	loans, fees := e.SummaryAmounts(
		"header Uang Pinjaman SM 1.000.000 50.000 2.000.000 100.000")

	require.Equal(t, []int64{1_000_000, 2_000_000}, loans)
	require.Equal(t, []int64{50_000, 100_000}, fees)
}

func TestSummaryAmountsAbsent(t *testing.T) {
	e := newExtractor()

	loans, fees := e.SummaryAmounts("no summary block on this page")
	assert.Nil(t, loans)
	assert.Nil(t, fees)
}
