package recognize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// TesseractEngine runs local Tesseract via gosseract. A fresh client is
// created per call: gosseract clients are not safe for concurrent use, and
// per-call clients let pages be recognized in parallel.
type TesseractEngine struct {
	logger logger.Logger
	cfg    config.OCRSettings
	langs  string
}

func NewTesseractEngine(cfg config.OCRSettings, log logger.Logger) *TesseractEngine {
	langs := strings.Join(cfg.Languages, "+")
	if langs == "" {
		langs = "ind+eng"
	}
	return &TesseractEngine{
		logger: log.Named("tesseract"),
		cfg:    cfg,
		langs:  langs,
	}
}

func (e *TesseractEngine) PageText(ctx context.Context, imagePath string) (string, error) {
	return e.recognize(ctx, imagePath, gosseract.PSM_SINGLE_BLOCK, func(client *gosseract.Client) (string, error) {
		return client.Text()
	})
}

func (e *TesseractEngine) PageFragments(ctx context.Context, imagePath string) ([]Fragment, error) {
	var frags []Fragment
	_, err := e.recognize(ctx, imagePath, gosseract.PSM_SPARSE_TEXT, func(client *gosseract.Client) (string, error) {
		boxes, err := client.GetBoundingBoxesVerbose()
		if err != nil {
			return "", fmt.Errorf("failed to get bounding boxes: %w", err)
		}
		for _, box := range boxes {
			word := strings.TrimSpace(box.Word)
			if word == "" {
				continue
			}
			frags = append(frags, Fragment{
				Text:       word,
				Box:        box.Box,
				Confidence: box.Confidence,
			})
		}
		return "", nil
	})
	return frags, err
}

// ReadRegion crops the page and reads the crop as a single text line.
func (e *TesseractEngine) ReadRegion(ctx context.Context, imagePath string, region image.Rectangle) (string, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open page image: %w", err)
	}
	crop := imaging.Crop(img, region)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, crop); err != nil {
		return "", fmt.Errorf("failed to encode region crop: %w", err)
	}

	return e.withTimeout(ctx, func() (string, error) {
		client := gosseract.NewClient()
		defer client.Close()
		if err := e.configure(client, gosseract.PSM_SINGLE_LINE); err != nil {
			return "", err
		}
		if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
			return "", fmt.Errorf("failed to set region image: %w", err)
		}
		return client.Text()
	})
}

func (e *TesseractEngine) Close() error { return nil }

func (e *TesseractEngine) recognize(ctx context.Context, imagePath string, psm gosseract.PageSegMode, read func(*gosseract.Client) (string, error)) (string, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("page image not readable: %w", err)
	}
	return e.withTimeout(ctx, func() (string, error) {
		client := gosseract.NewClient()
		defer client.Close()
		if err := e.configure(client, psm); err != nil {
			return "", err
		}
		if err := client.SetImage(imagePath); err != nil {
			return "", fmt.Errorf("failed to set image: %w", err)
		}
		return read(client)
	})
}

func (e *TesseractEngine) configure(client *gosseract.Client, psm gosseract.PageSegMode) error {
	if err := client.SetLanguage(e.langs); err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	return nil
}

// withTimeout bounds a recognition call by the configured page timeout.
// Tesseract itself is not cancellable, so a timed-out call's goroutine is
// left to finish and its result discarded.
func (e *TesseractEngine) withTimeout(ctx context.Context, fn func() (string, error)) (string, error) {
	if e.cfg.PageTimeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PageTimeout())
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := fn()
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		e.logger.Warn("recognition timed out", logger.Duration("timeout", e.cfg.PageTimeout()))
		return "", fmt.Errorf("recognition timed out: %w", ctx.Err())
	}
}
