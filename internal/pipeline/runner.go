package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/internal/pipeline/clean"
	"github.com/vincentdare/auto-extractor/internal/pipeline/extract"
	"github.com/vincentdare/auto-extractor/internal/pipeline/merge"
	"github.com/vincentdare/auto-extractor/internal/pipeline/parse"
	"github.com/vincentdare/auto-extractor/internal/pipeline/rasterize"
	"github.com/vincentdare/auto-extractor/internal/pipeline/recognize"
	"github.com/vincentdare/auto-extractor/internal/pipeline/segment"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// ErrRunInProgress is returned when a second run (or a purge) is requested
// while one is executing.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Runner drives the full extraction sequence for each document class:
// rasterize, recognize, segment, extract, clean, parse, merge. One Runner
// allows one run at a time; the same flag guards artifact purges so a cleanup
// can never race a run that is still writing.
type Runner struct {
	logger    logger.Logger
	app       *config.AppConfig
	cfg       *config.PipelineConfig
	fields    config.Fields
	templates config.Templates

	running   atomic.Bool
	newEngine func(ctx context.Context) (recognize.Engine, error)
}

func NewRunner(app *config.AppConfig, cfg *config.PipelineConfig, fields config.Fields, templates config.Templates, log logger.Logger) *Runner {
	r := &Runner{
		logger:    log.Named("pipeline"),
		app:       app,
		cfg:       cfg,
		fields:    fields,
		templates: templates,
	}
	r.newEngine = func(ctx context.Context) (recognize.Engine, error) {
		return recognize.NewEngine(ctx, cfg.OCR, app, r.logger)
	}
	return r
}

// Running reports whether a run is executing right now.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run processes every class folder end to end and merges the results. The
// recognition engine is selected once here and reused for all pages of the
// run. A failed stage is recorded on the class report and the run continues;
// only the inability to start at all is an error.
func (r *Runner) Run(ctx context.Context) ([]models.RunReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	engine, err := r.newEngine(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build OCR engine: %w", err)
	}
	defer engine.Close()

	segmenter, err := segment.New(r.cfg.Segment)
	if err != nil {
		return nil, fmt.Errorf("invalid segmentation config: %w", err)
	}

	deps := stageDeps{
		engine:     engine,
		segmenter:  segmenter,
		extractor:  extract.New(r.cfg.Extract).WithRegionReader(engine),
		cleaner:    clean.New(r.cfg.Clean),
		rasterizer: rasterize.New(r.cfg.Rasterize, r.app.ImagesDir(), r.logger),
		parser:     parse.New(r.fields, r.templates, r.app.OutputDir(), r.logger),
		missing:    extract.NewMissingNamesLog(filepath.Join(r.app.OutputDir(), "missing_names.csv")),
	}

	reports := make([]models.RunReport, 0, len(models.Classes))
	for _, class := range models.Classes {
		reports = append(reports, r.runClass(ctx, class, deps))
	}

	if _, _, err := merge.New(r.app.OutputDir(), r.logger).Build(); err != nil {
		r.logger.Error("dataset merge failed", logger.Error(err))
		if n := len(reports); n > 0 {
			reports[n-1].StageErrors = append(reports[n-1].StageErrors,
				models.StageError{Stage: "merge", Err: err.Error()})
		}
	}
	return reports, nil
}

type stageDeps struct {
	engine     recognize.Engine
	segmenter  *segment.Segmenter
	extractor  *extract.Extractor
	cleaner    *clean.Cleaner
	rasterizer *rasterize.Rasterizer
	parser     *parse.Parser
	missing    *extract.MissingNamesLog
}

func (r *Runner) runClass(ctx context.Context, class models.DocumentClass, deps stageDeps) models.RunReport {
	runID := uuid.New().String()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := r.logger.With(logger.String("run_id", runID), logger.String("class", string(class)))

	report := models.RunReport{
		RunID:     runID,
		Class:     class,
		StartedAt: time.Now(),
	}
	defer func() {
		log.Info("class run finished",
			logger.Int("pages", report.Pages),
			logger.Int("raw_records", report.RawRecords),
			logger.Int("clean_records", report.CleanRecords))
	}()

	fail := func(stage string, err error) {
		log.Error("stage failed", logger.String("stage", stage), logger.Error(err))
		report.StageErrors = append(report.StageErrors, models.StageError{Stage: stage, Err: err.Error()})
	}

	inputDir := filepath.Join(r.app.DatasetDir(), class.FolderName())
	pdfs, err := listPDFs(inputDir)
	if err != nil {
		fail("scan", err)
		report.FinishedAt = time.Now()
		return report
	}
	if len(pdfs) == 0 {
		log.Info("no documents uploaded for class", logger.String("dir", inputDir))
		report.FinishedAt = time.Now()
		return report
	}

	// Rasterization failures are per document: one corrupt upload must not
	// sink the rest of the batch.
	var pages []models.PageImage
	for _, pdf := range pdfs {
		rendered, err := deps.rasterizer.Render(ctx, pdf, class)
		if err != nil {
			fail("rasterize", err)
			continue
		}
		pages = append(pages, rendered...)
	}
	report.Pages = len(pages)

	var raws []models.RawRecord
	for _, page := range pages {
		pageRecs, stats, err := r.extractPage(ctx, class, page, deps, len(raws))
		if err != nil {
			fail("recognize", err)
			continue
		}
		report.EmptyPages += stats.emptyPages
		report.Chunks += stats.chunks
		report.Rejected += stats.rejected
		raws = append(raws, pageRecs...)
	}
	report.RawRecords = len(raws)

	report.MissingNames = r.flagMissingNames(class, raws, deps.missing, log)

	stamp := time.Now().Format("2006-01-02")
	rawPath := filepath.Join(r.app.OutputDir(), "raw_ocr", fmt.Sprintf("%s_raw_%s.csv", class, stamp))
	if err := writeRawCSV(rawPath, raws); err != nil {
		fail("raw_csv", err)
	}

	cleanRecs := deps.cleaner.Records(raws)
	report.CleanRecords = len(cleanRecs)
	cleanPath := filepath.Join(r.app.OutputDir(), "cleaned", fmt.Sprintf("%s_clean_%s.csv", class, stamp))
	if err := clean.WriteCSV(cleanPath, cleanRecs); err != nil {
		fail("clean", err)
	}

	if _, _, err := deps.parser.Run(class, cleanRecs); err != nil {
		fail("parse", err)
	}

	report.FinishedAt = time.Now()
	return report
}

// flagMissingNames rewrites nameless problem-credit records to the
// UNKNOWN_NASABAH sentinel and records each one in the audit log. Due-date
// records are left untouched: a due-date row without a name fails cleaning
// admission and is dropped from the final output instead.
func (r *Runner) flagMissingNames(class models.DocumentClass, raws []models.RawRecord, missing *extract.MissingNamesLog, log logger.Logger) int {
	if class != models.ProblemCredit {
		return 0
	}
	flagged := 0
	for i := range raws {
		if raws[i].Customer == "" || raws[i].Customer == extract.UnknownName {
			raws[i].Customer = extract.UnknownName
			flagged++
			if err := missing.Append(raws[i].Filename, raws[i].Seq, raws[i].RawText); err != nil {
				log.Warn("failed to append missing-names audit", logger.Error(err))
			}
		}
	}
	return flagged
}

type pageStats struct {
	emptyPages int
	chunks     int
	rejected   int
}

// extractPage turns one page image into raw records. The due-date layout is
// read in paragraph mode and split on loan-number anchors; the problem-credit
// layout is read in box mode so each table row keeps its position, which the
// name fallback needs for its cropped re-read.
func (r *Runner) extractPage(ctx context.Context, class models.DocumentClass, page models.PageImage, deps stageDeps, seqBase int) ([]models.RawRecord, pageStats, error) {
	var stats pageStats
	filename := filepath.Base(page.SourcePDF)

	if class == models.DueDate {
		text, err := deps.engine.PageText(ctx, page.Path)
		if err != nil {
			return nil, stats, err
		}
		if strings.TrimSpace(text) == "" {
			stats.emptyPages++
			return nil, stats, nil
		}

		chunks := deps.segmenter.Split(deps.segmenter.Normalize(text), class)
		stats.chunks = len(chunks)

		recs := make([]models.RawRecord, 0, len(chunks))
		for _, c := range chunks {
			rec := deps.extractor.DueDate(c)
			rec.Filename = filename
			rec.Seq = seqBase + len(recs) + 1
			recs = append(recs, rec)
		}
		return recs, stats, nil
	}

	frags, err := deps.engine.PageFragments(ctx, page.Path)
	if err != nil {
		return nil, stats, err
	}
	if len(frags) == 0 {
		stats.emptyPages++
		return nil, stats, nil
	}

	rows := recognize.GroupFragmentRows(frags, r.cfg.OCR.RowTolerancePx)
	var pageText strings.Builder
	var recs []models.RawRecord
	for _, row := range rows {
		rowText := deps.segmenter.Normalize(recognize.RowText(row))
		pageText.WriteString(rowText)
		pageText.WriteString("\n")

		chunks := deps.segmenter.Split(rowText, class)
		if len(chunks) == 0 {
			stats.rejected++
			continue
		}
		stats.chunks += len(chunks)

		box := recognize.RowBounds(row)
		for _, c := range chunks {
			rec := deps.extractor.ProblemCredit(ctx, c, page, &box)
			rec.Filename = filename
			rec.Seq = seqBase + len(recs) + 1
			recs = append(recs, rec)
		}
	}

	backfillAmounts(recs, deps.extractor, pageText.String())
	return recs, stats, nil
}

// backfillAmounts fills records whose own row carried no readable amounts
// from the page's "Uang Pinjaman SM" summary block, where values appear in
// record order.
func backfillAmounts(recs []models.RawRecord, extractor *extract.Extractor, pageText string) {
	loans, fees := extractor.SummaryAmounts(pageText)
	for i := range recs {
		if recs[i].LoanAmount == 0 && i < len(loans) {
			recs[i].LoanAmount = loans[i]
		}
		if recs[i].ServiceFee == 0 && i < len(fees) {
			recs[i].ServiceFee = fees[i]
		}
	}
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var pdfs []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			pdfs = append(pdfs, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(pdfs)
	return pdfs, nil
}

func writeRawCSV(path string, recs []models.RawRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raw csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.RawCSVHeader); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := w.Write(rec.CSVRow()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
