package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PipelineConfig carries the extraction heuristics that are tuned per dataset.
// The defaults reproduce the values the production documents were tuned
// against; deployments override them via config/pipeline.yaml.
type PipelineConfig struct {
	OCR       OCRSettings       `yaml:"ocr"`
	Rasterize RasterizeSettings `yaml:"rasterize"`
	Segment   SegmentSettings   `yaml:"segment"`
	Extract   ExtractSettings   `yaml:"extract"`
	Clean     CleanSettings     `yaml:"clean"`
}

type OCRSettings struct {
	// Engine selects the recognizer backend: "tesseract" or "textract".
	// Selection happens once per pipeline run, never per page.
	Engine    string   `yaml:"engine"`
	Languages []string `yaml:"languages"`
	// PageTimeoutSeconds bounds a single page's recognition call so a hung
	// engine fails that page instead of stalling the run.
	PageTimeoutSeconds int `yaml:"pageTimeoutSeconds"`
	// RowTolerancePx is the vertical band within which box-mode fragments
	// are considered the same table row.
	RowTolerancePx int `yaml:"rowTolerancePx"`
}

func (s OCRSettings) PageTimeout() time.Duration {
	return time.Duration(s.PageTimeoutSeconds) * time.Second
}

// MaskRegion blanks a rectangle given as fractions of page width/height, so
// the same mask survives scan-resolution variation.
type MaskRegion struct {
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	W    float64 `yaml:"w"`
	H    float64 `yaml:"h"`
}

type RasterizeSettings struct {
	DPI               int     `yaml:"dpi"`
	Upscale           float64 `yaml:"upscale"`
	AdaptiveBlockSize int     `yaml:"adaptiveBlockSize"`
	AdaptiveConstant  float64 `yaml:"adaptiveConstant"`
	OpeningKernel     int     `yaml:"openingKernel"`
	// Masks maps a document class name to the noise regions blanked before
	// OCR. Only the due-date layout needs masking.
	Masks map[string][]MaskRegion `yaml:"masks"`
}

// Correction is a regex substitution applied to page text before
// segmentation, for systematic OCR misreads specific to a scanner/font.
type Correction struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

type SegmentSettings struct {
	MinChunkLen int `yaml:"minChunkLen"`
	// TrailerPatterns close the final record chunk: the TOTAL line,
	// signature blocks and other footer phrases.
	TrailerPatterns []string     `yaml:"trailerPatterns"`
	Corrections     []Correction `yaml:"corrections"`
}

type ExtractSettings struct {
	PhoneMinLen int `yaml:"phoneMinLen"`
	PhoneMaxLen int `yaml:"phoneMaxLen"`
	// PhoneValueLow/High describe phone numbers mistaken for amounts: a
	// local 08-prefixed number read as an integer lands in this range.
	PhoneValueLow  int64 `yaml:"phoneValueLow"`
	PhoneValueHigh int64 `yaml:"phoneValueHigh"`
	// DenyTotals are known footer-total values that leak into record text
	// on specific source pages. Dataset-specific; see pipeline.yaml.
	DenyTotals []int64 `yaml:"denyTotals"`
	MoneyMin   int64   `yaml:"moneyMin"`
	MoneyMax   int64   `yaml:"moneyMax"`
}

type CleanSettings struct {
	// MinLoanAmount rejects amounts that are OCR fragments, not loans.
	MinLoanAmount int64 `yaml:"minLoanAmount"`
	PhoneMinLen   int   `yaml:"phoneMinLen"`
	PhoneMaxLen   int   `yaml:"phoneMaxLen"`
}

// DefaultPipelineConfig returns the tuned production defaults.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		OCR: OCRSettings{
			Engine:             "tesseract",
			Languages:          []string{"ind", "eng"},
			PageTimeoutSeconds: 120,
			RowTolerancePx:     25,
		},
		Rasterize: RasterizeSettings{
			DPI:               300,
			Upscale:           2,
			AdaptiveBlockSize: 35,
			AdaptiveConstant:  11,
			OpeningKernel:     2,
			Masks: map[string][]MaskRegion{
				"jatuh_tempo": {
					{Name: "header", X: 0, Y: 0, W: 1, H: 0.12},
					{Name: "footer_total", X: 0, Y: 0.94, W: 1, H: 0.06},
					{Name: "remark_column", X: 0.88, Y: 0.12, W: 0.12, H: 0.82},
					{Name: "collateral_column", X: 0.62, Y: 0.12, W: 0.16, H: 0.82},
					{Name: "address_subcolumn", X: 0.20, Y: 0.12, W: 0.16, H: 0.82},
				},
			},
		},
		Segment: SegmentSettings{
			MinChunkLen: 20,
			TrailerPatterns: []string{
				`\bTOTAL\b`,
				`Di\s+anggal`,
				`Dibuat\s+Oleh`,
				`KOTA\s+MANADO`,
			},
		},
		Extract: ExtractSettings{
			PhoneMinLen:    10,
			PhoneMaxLen:    13,
			PhoneValueLow:  800_000_000,
			PhoneValueHigh: 900_000_000_000,
			DenyTotals:     []int64{901392824, 781774200, 66871800},
			MoneyMin:       100,
			MoneyMax:       1_000_000_000,
		},
		Clean: CleanSettings{
			MinLoanAmount: 100_000,
			PhoneMinLen:   9,
			PhoneMaxLen:   13,
		},
	}
}

// LoadPipelineConfig reads pipeline.yaml from path, overlaying the defaults.
// A missing file is not an error: the defaults apply unchanged.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid pipeline config %s: %w", path, err)
	}
	return cfg, nil
}
