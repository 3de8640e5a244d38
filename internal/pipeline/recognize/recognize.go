package recognize

import (
	"context"
	"fmt"
	"image"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// Fragment is one recognized word with its position on the page, used by the
// box-mode reading path to reassemble table rows.
type Fragment struct {
	Text       string
	Box        image.Rectangle
	Confidence float64
}

// Engine recognizes text on rasterized pages. An engine is selected once per
// run, never per page, so a run's output is attributable to a single backend.
type Engine interface {
	// PageText reads a full page in paragraph order.
	PageText(ctx context.Context, imagePath string) (string, error)
	// PageFragments reads individual words with their bounding boxes.
	PageFragments(ctx context.Context, imagePath string) ([]Fragment, error)
	// ReadRegion re-reads a cropped region of the page, used as the
	// fallback pass for fields the full-page read garbled.
	ReadRegion(ctx context.Context, imagePath string, region image.Rectangle) (string, error)
	Close() error
}

// NewEngine builds the engine named by the pipeline config.
func NewEngine(ctx context.Context, ocr config.OCRSettings, app *config.AppConfig, log logger.Logger) (Engine, error) {
	switch ocr.Engine {
	case "", "tesseract":
		return NewTesseractEngine(ocr, log), nil
	case "textract":
		return NewTextractEngine(ctx, ocr, app, log)
	default:
		return nil, fmt.Errorf("unknown OCR engine: %q", ocr.Engine)
	}
}
