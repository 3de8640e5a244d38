package pipeline

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/internal/pipeline/clean"
	"github.com/vincentdare/auto-extractor/internal/pipeline/extract"
	"github.com/vincentdare/auto-extractor/internal/pipeline/parse"
	"github.com/vincentdare/auto-extractor/internal/pipeline/rasterize"
	"github.com/vincentdare/auto-extractor/internal/pipeline/recognize"
	"github.com/vincentdare/auto-extractor/internal/pipeline/segment"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

type fakeEngine struct {
	text       string
	frags      []recognize.Fragment
	regionText string
}

func (f *fakeEngine) PageText(ctx context.Context, imagePath string) (string, error) {
	return f.text, nil
}

func (f *fakeEngine) PageFragments(ctx context.Context, imagePath string) ([]recognize.Fragment, error) {
	return f.frags, nil
}

func (f *fakeEngine) ReadRegion(ctx context.Context, imagePath string, region image.Rectangle) (string, error) {
	return f.regionText, nil
}

func (f *fakeEngine) Close() error { return nil }

func newTestRunner(t *testing.T, engine recognize.Engine) *Runner {
	t.Helper()
	app := &config.AppConfig{DataDir: t.TempDir()}
	fields := config.Fields{
		"jatuh_tempo":       {"NO_SBG", "NASABAH", "TELP_HP", "TGL_JATUH_TEMPO", "UANG_PINJAMAN"},
		"kredit_bermasalah": {"NO_KREDIT", "NASABAH", "UANG_PINJAMAN"},
	}
	templates := config.Templates{
		"jatuh_tempo":       "Yth. {NASABAH}",
		"kredit_bermasalah": "Yth. {NASABAH}",
	}
	r := NewRunner(app, config.DefaultPipelineConfig(), fields, templates, logger.NewTestLogger())
	r.newEngine = func(ctx context.Context) (recognize.Engine, error) {
		return engine, nil
	}
	return r
}

func testDeps(t *testing.T, r *Runner, engine recognize.Engine) stageDeps {
	t.Helper()
	segmenter, err := segment.New(r.cfg.Segment)
	require.NoError(t, err)
	return stageDeps{
		engine:     engine,
		segmenter:  segmenter,
		extractor:  extract.New(r.cfg.Extract).WithRegionReader(engine),
		cleaner:    clean.New(r.cfg.Clean),
		rasterizer: rasterize.New(r.cfg.Rasterize, r.app.ImagesDir(), r.logger),
		parser:     parse.New(r.fields, r.templates, r.app.OutputDir(), r.logger),
		missing:    extract.NewMissingNamesLog(filepath.Join(r.app.OutputDir(), "missing_names.csv")),
	}
}

func TestExtractPageDueDate(t *testing.T) {
	engine := &fakeEngine{text: "1202400186700123 BUDI SANTOSO 081234567890 05-01-2023 05-01-2024 " +
		"1.500.000 1.250.000 9.600 " +
		"1202400186700456 SITI RAHMA 081111111111 06-01-2023 06-01-2024 2.000.000 1.800.000 12.000 " +
		"TOTAL 3.050.000"}
	r := newTestRunner(t, engine)
	deps := testDeps(t, r, engine)

	page := models.PageImage{SourcePDF: "/data/laporan.pdf", Page: 1, Path: "laporan_page1.png"}
	recs, stats, err := r.extractPage(context.Background(), models.DueDate, page, deps, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, stats.chunks)

	assert.Equal(t, "laporan.pdf", recs[0].Filename)
	assert.Equal(t, 1, recs[0].Seq)
	assert.Equal(t, "1202400186700123", recs[0].LoanNumber)
	assert.Equal(t, "BUDI SANTOSO", recs[0].Customer)
	assert.Equal(t, "05-01-2024", recs[0].DueDate)

	assert.Equal(t, 2, recs[1].Seq)
	assert.Equal(t, "SITI RAHMA", recs[1].Customer)
}

func TestExtractPageDueDateEmpty(t *testing.T) {
	engine := &fakeEngine{text: "   "}
	r := newTestRunner(t, engine)
	deps := testDeps(t, r, engine)

	recs, stats, err := r.extractPage(context.Background(), models.DueDate, models.PageImage{}, deps, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 1, stats.emptyPages)
}

func pcFrag(text string, x, y int) recognize.Fragment {
	return recognize.Fragment{Text: text, Box: image.Rect(x, y, x+80, y+20)}
}

func TestExtractPageProblemCredit(t *testing.T) {
	engine := &fakeEngine{frags: []recognize.Fragment{
		pcFrag("1202400186700123", 0, 100),
		pcFrag("12345678", 200, 102),
		pcFrag("BUDI", 320, 101),
		pcFrag("SANTOSO", 410, 103),
		pcFrag("10-01-2023", 520, 100),
		pcFrag("1.250.000", 640, 102),
	}}
	r := newTestRunner(t, engine)
	deps := testDeps(t, r, engine)

	page := models.PageImage{SourcePDF: "/data/bermasalah.pdf", Page: 1, Path: "bermasalah_page1.png"}
	recs, stats, err := r.extractPage(context.Background(), models.ProblemCredit, page, deps, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, stats.chunks)

	assert.Equal(t, "1202400186700123", recs[0].LoanNumber)
	assert.Equal(t, "BUDI SANTOSO", recs[0].Customer)
	assert.Equal(t, "10-01-2023", recs[0].CreditDate)
}

func TestBackfillAmounts(t *testing.T) {
	extractor := extract.New(config.DefaultPipelineConfig().Extract)
	recs := []models.RawRecord{
		{LoanNumber: "1", LoanAmount: 0},
		{LoanNumber: "2", LoanAmount: 3_000_000, ServiceFee: 15_000},
	}

	backfillAmounts(recs, extractor, "isi halaman Uang Pinjaman SM 1.250.000 9.600 2.700.000 13.500")

	assert.Equal(t, int64(1_250_000), recs[0].LoanAmount)
	assert.Equal(t, int64(9_600), recs[0].ServiceFee)
	assert.Equal(t, int64(3_000_000), recs[1].LoanAmount, "existing amount untouched")
	assert.Equal(t, int64(15_000), recs[1].ServiceFee)
}

func TestNamelessDueDateRecordDropped(t *testing.T) {
	r := newTestRunner(t, &fakeEngine{})
	deps := testDeps(t, r, &fakeEngine{})

	raws := []models.RawRecord{
		{Class: models.DueDate, LoanNumber: "1202400186700123", Customer: "", Filename: "a.pdf", Seq: 1, RawText: "1202400186700123 081234567890 05-01-2024 1.500.000"},
		{Class: models.DueDate, LoanNumber: "1202400186700456", Customer: "SITI RAHMA", Filename: "a.pdf", Seq: 2},
	}

	flagged := r.flagMissingNames(models.DueDate, raws, deps.missing, r.logger)
	assert.Zero(t, flagged)
	assert.Empty(t, raws[0].Customer, "no sentinel for due-date rows")
	assert.NoFileExists(t, filepath.Join(r.app.OutputDir(), "missing_names.csv"))

	cleaned := deps.cleaner.Records(raws)
	require.Len(t, cleaned, 1)
	assert.Equal(t, "SITI RAHMA", cleaned[0].Customer)
}

func TestNamelessProblemCreditRecordAudited(t *testing.T) {
	r := newTestRunner(t, &fakeEngine{})
	deps := testDeps(t, r, &fakeEngine{})

	raws := []models.RawRecord{
		{Class: models.ProblemCredit, LoanNumber: "1202400186700123", Customer: "", Filename: "b.pdf", Seq: 1, RawText: "1202400186700123 12345678 10-01-2023"},
	}

	flagged := r.flagMissingNames(models.ProblemCredit, raws, deps.missing, r.logger)
	assert.Equal(t, 1, flagged)
	assert.Equal(t, extract.UnknownName, raws[0].Customer)

	audit, err := os.ReadFile(filepath.Join(r.app.OutputDir(), "missing_names.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), "b.pdf,1,")

	cleaned := deps.cleaner.Records(raws)
	require.Len(t, cleaned, 1, "sentinel row stays in the output")
	assert.Equal(t, extract.UnknownName, cleaned[0].Customer)
}

func TestRunOnEmptyDataset(t *testing.T) {
	r := newTestRunner(t, &fakeEngine{})

	reports, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, models.DueDate, reports[0].Class)
	assert.Equal(t, models.ProblemCredit, reports[1].Class)
	assert.Zero(t, reports[0].Pages)
	assert.False(t, r.Running())

	// Nothing parsed, so the final merge records its failure on the last
	// class report instead of aborting the run.
	require.NotEmpty(t, reports[1].StageErrors)
	assert.Equal(t, "merge", reports[1].StageErrors[0].Stage)
}

func TestRunRefusedWhileRunning(t *testing.T) {
	r := newTestRunner(t, &fakeEngine{})
	r.running.Store(true)

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.ErrorIs(t, r.Purge(), ErrRunInProgress)
}

func TestPurgeRemovesArtifactsKeepsConfig(t *testing.T) {
	r := newTestRunner(t, &fakeEngine{})

	for _, dir := range []string{r.app.DatasetDir(), r.app.ImagesDir(), r.app.OutputDir(), r.app.ConfigDir()} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(r.app.DatasetDir(), "a.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(r.app.OutputDir(), "old.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(r.app.ConfigDir(), "templates.json"), []byte("{}"), 0o644))

	require.NoError(t, r.Purge())

	assert.NoFileExists(t, filepath.Join(r.app.DatasetDir(), "a.pdf"))
	assert.NoFileExists(t, filepath.Join(r.app.OutputDir(), "old.csv"))
	assert.FileExists(t, filepath.Join(r.app.ConfigDir(), "templates.json"))
}
