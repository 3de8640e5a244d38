package parse

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

func testFields() config.Fields {
	return config.Fields{
		"jatuh_tempo":       {"NO_SBG", "NASABAH", "TELP_HP", "TGL_JATUH_TEMPO", "UANG_PINJAMAN"},
		"kredit_bermasalah": {"NO_KREDIT", "NASABAH", "UANG_PINJAMAN"},
	}
}

func testTemplates() config.Templates {
	return config.Templates{
		"jatuh_tempo":       "Yth. {NASABAH}, kredit {NO_SBG} jatuh tempo {TGL_JATUH_TEMPO}, pinjaman Rp {UANG_PINJAMAN}.",
		"kredit_bermasalah": "Yth. {NASABAH}, kredit {NO_KREDIT} bermasalah, pinjaman Rp {UANG_PINJAMAN}.",
	}
}

func newParser(t *testing.T) *Parser {
	t.Helper()
	return New(testFields(), testTemplates(), t.TempDir(), logger.NewTestLogger())
}

func dueRecord() models.CleanRecord {
	return models.CleanRecord{
		Class:      models.DueDate,
		LoanNumber: "1202400186700123",
		Customer:   "BUDI SANTOSO",
		Phone:      "081234567890; 081111111111",
		DueDate:    "05-01-2024",
		LoanAmount: 1_250_000,
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1.250.000", FormatMoney(1_250_000))
	assert.Equal(t, "950", FormatMoney(950))
	assert.Equal(t, "12.000", FormatMoney(12_000))
	assert.Equal(t, "", FormatMoney(0))
}

func TestFirstPhone(t *testing.T) {
	assert.Equal(t, "081234567890", FirstPhone("081234567890; 081111111111"))
	assert.Equal(t, "081234567890", FirstPhone("081234567890"))
	assert.Equal(t, "081234567890", FirstPhone("81234567890"), "leading zero restored")
	assert.Equal(t, "", FirstPhone(""))
}

func TestProjectDueDate(t *testing.T) {
	p := newParser(t)

	cols, rows, err := p.Project(models.DueDate, []models.CleanRecord{dueRecord()})
	require.NoError(t, err)
	assert.Equal(t, []string{"NO_SBG", "NASABAH", "TELP_HP", "TGL_JATUH_TEMPO", "UANG_PINJAMAN"}, cols)
	require.Len(t, rows, 1)

	assert.Equal(t, "1202400186700123", rows[0]["NO_SBG"])
	assert.Equal(t, "BUDI SANTOSO", rows[0]["NASABAH"])
	assert.Equal(t, "081234567890", rows[0]["TELP_HP"], "only the first phone")
	assert.Equal(t, "1.250.000", rows[0]["UANG_PINJAMAN"])
}

func TestProjectProblemCredit(t *testing.T) {
	p := newParser(t)

	rec := models.CleanRecord{
		Class:      models.ProblemCredit,
		LoanNumber: "120240018670012345",
		Customer:   "SITI RAHMA",
		LoanAmount: 2_000_000,
	}
	cols, rows, err := p.Project(models.ProblemCredit, []models.CleanRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, []string{"NO_KREDIT", "NASABAH", "UANG_PINJAMAN"}, cols)
	assert.Equal(t, "120240018670012345", rows[0]["NO_KREDIT"])
}

func TestProjectUnknownClassFails(t *testing.T) {
	p := newParser(t)
	_, _, err := p.Project("arisan", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no field structure")
}

func TestMessagesRenderAndLinks(t *testing.T) {
	p := newParser(t)

	cols, rows, err := p.Project(models.DueDate, []models.CleanRecord{dueRecord()})
	require.NoError(t, err)
	msgs := p.Messages(models.DueDate, cols, rows)
	require.Len(t, msgs, 1)

	assert.Equal(t,
		"Yth. BUDI SANTOSO, kredit 1202400186700123 jatuh tempo 05-01-2024, pinjaman Rp 1.250.000.",
		msgs[0].Text)
	assert.True(t, strings.HasPrefix(msgs[0].WaMe, "https://wa.me/081234567890?text="))
	assert.True(t, strings.HasPrefix(msgs[0].WaWeb, "https://web.whatsapp.com/send?phone=081234567890&text="))
	assert.NotContains(t, msgs[0].WaMe, " ", "message is url-encoded")
}

func TestMessagesNoPhoneNoLinks(t *testing.T) {
	p := newParser(t)

	rec := dueRecord()
	rec.Phone = ""
	cols, rows, err := p.Project(models.DueDate, []models.CleanRecord{rec})
	require.NoError(t, err)
	msgs := p.Messages(models.DueDate, cols, rows)

	assert.Empty(t, msgs[0].WaMe)
	assert.Empty(t, msgs[0].WaWeb)
}

func TestMessagesUnresolvedPlaceholderStaysLiteral(t *testing.T) {
	templates := config.Templates{"jatuh_tempo": "Halo {NASABAH} {TIDAK_ADA}"}
	p := New(testFields(), templates, t.TempDir(), logger.NewTestLogger())

	cols, rows, err := p.Project(models.DueDate, []models.CleanRecord{dueRecord()})
	require.NoError(t, err)
	msgs := p.Messages(models.DueDate, cols, rows)
	assert.Equal(t, "Halo BUDI SANTOSO {TIDAK_ADA}", msgs[0].Text)
}

func TestRunWritesArtifacts(t *testing.T) {
	outDir := t.TempDir()
	p := New(testFields(), testTemplates(), outDir, logger.NewTestLogger())

	extracted, messages, err := p.Run(models.DueDate, []models.CleanRecord{dueRecord()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "parsed_output", "jatuh_tempo_extracted.csv"), extracted)
	assert.Equal(t, filepath.Join(outDir, "messages", "jatuh_tempo_messages.xlsx"), messages)

	f, err := os.Open(extracted)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.250.000", rows[1][4])

	wb, err := excelize.OpenFile(messages)
	require.NoError(t, err)
	defer wb.Close()
	got, err := wb.GetCellValue("Sheet1", "F1")
	require.NoError(t, err)
	assert.Equal(t, "Pesan", got)
}
