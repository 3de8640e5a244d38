package rasterize

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/internal/models"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// Rasterizer renders scanned PDFs to per-page PNGs and runs the class's
// preparation chain over each page.
type Rasterizer struct {
	logger    logger.Logger
	cfg       config.RasterizeSettings
	imagesDir string
}

func New(cfg config.RasterizeSettings, imagesDir string, log logger.Logger) *Rasterizer {
	return &Rasterizer{
		logger:    log.Named("rasterize"),
		cfg:       cfg,
		imagesDir: imagesDir,
	}
}

// chain builds the preparation pipeline for a document class. The due-date
// scans are noisy and get the full mask/binarize treatment; problem-credit
// pages are stored as rendered, because the box-mode read and the cropped
// name fallback both need the raw scan.
func (r *Rasterizer) chain(class models.DocumentClass) []ImagePreprocessor {
	if class == models.ProblemCredit {
		return nil
	}
	return []ImagePreprocessor{
		NewRegionMaskProcessor(r.cfg.Masks[string(class)]),
		NewGrayscaleProcessor(),
		NewUpscaleProcessor(r.cfg.Upscale),
		NewAdaptiveThresholdProcessor(r.cfg.AdaptiveBlockSize, r.cfg.AdaptiveConstant),
		NewOpeningProcessor(r.cfg.OpeningKernel),
	}
}

// Render rasterizes every page of pdfPath at the configured DPI and writes
// the prepared pages under imagesDir/<class>/. A page that cannot be
// rendered aborts the whole file: a partially rasterized document would
// silently lose customer rows downstream.
func (r *Rasterizer) Render(ctx context.Context, pdfPath string, class models.DocumentClass) ([]models.PageImage, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", filepath.Base(pdfPath), err)
	}
	defer doc.Close()

	outDir := filepath.Join(r.imagesDir, string(class))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images dir: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	preprocessors := r.chain(class)

	pages := make([]models.PageImage, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(n, float64(r.cfg.DPI))
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d of %s: %w", n+1, filepath.Base(pdfPath), err)
		}

		var prepared image.Image = img
		for _, p := range preprocessors {
			prepared, err = p.Process(prepared)
			if err != nil {
				return nil, fmt.Errorf("failed to prepare page %d of %s: %w", n+1, filepath.Base(pdfPath), err)
			}
		}

		outPath := filepath.Join(outDir, fmt.Sprintf("%s_page%d.png", stem, n+1))
		if err := imaging.Save(prepared, outPath); err != nil {
			return nil, fmt.Errorf("failed to save page image: %w", err)
		}

		pages = append(pages, models.PageImage{
			SourcePDF: pdfPath,
			Page:      n + 1,
			Path:      outPath,
		})
	}

	r.logger.Info("rasterized document",
		logger.String("pdf", filepath.Base(pdfPath)),
		logger.String("class", string(class)),
		logger.Int("pages", len(pages)))
	return pages, nil
}
