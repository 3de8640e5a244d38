package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// DocumentValidator checks uploaded report PDFs before they reach the dataset
// folder. Scanned reports are large but page-bounded; anything that is not a
// readable PDF wastes a full OCR pass, so rejection happens at upload time.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	MaxFileSize  int64 // bytes
	MaxPageCount int
}

// ValidationResult is returned to the dashboard verbatim.
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
	PageCount int    `json:"pageCount,omitempty"`
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = &ValidatorConfig{
			MaxFileSize:  50 * 1024 * 1024,
			MaxPageCount: 500,
		}
	}
	return &DocumentValidator{logger: log, config: config}
}

// ValidateFile checks one uploaded PDF: extension, declared size, sniffed MIME
// type, and a structural parse that yields the page count.
func (v *DocumentValidator) ValidateFile(file *multipart.FileHeader) (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  file.Filename,
			Size:      file.Size,
			Extension: strings.ToLower(filepath.Ext(file.Filename)),
		},
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	hash, err := v.calculateHash(f)
	if err != nil {
		return nil, fmt.Errorf("failed to hash upload: %w", err)
	}
	result.FileInfo.Hash = hash
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	if file.Size > v.config.MaxFileSize {
		result.fail(ValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}
	if result.FileInfo.Extension != ".pdf" {
		result.fail(ValidationError{
			Code:    "INVALID_FILE_TYPE",
			Message: fmt.Sprintf("File type %s is not allowed, only PDF reports are processed", result.FileInfo.Extension),
			Field:   "extension",
		})
		return result, nil
	}

	mimeType, err := v.detectMimeType(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	result.FileInfo.MimeType = mimeType
	if mimeType != "application/pdf" {
		result.fail(ValidationError{
			Code:    "INVALID_MIME_TYPE",
			Message: fmt.Sprintf("Content sniffed as %s, not application/pdf", mimeType),
			Field:   "mimeType",
		})
		return result, nil
	}

	pages, errs := v.probePDF(f, file.Size)
	result.FileInfo.PageCount = pages
	for _, e := range errs {
		result.fail(e)
	}

	return result, nil
}

// ValidateFiles validates a batch upload, preserving input order.
func (v *DocumentValidator) ValidateFiles(files []*multipart.FileHeader) ([]*ValidationResult, error) {
	results := make([]*ValidationResult, 0, len(files))
	for _, file := range files {
		result, err := v.ValidateFile(file)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (r *ValidationResult) fail(e ValidationError) {
	r.IsValid = false
	r.Errors = append(r.Errors, e)
}

// probePDF parses the document structure without rendering. Encrypted and
// truncated files surface here instead of failing mid-rasterization.
func (v *DocumentValidator) probePDF(file multipart.File, size int64) (pages int, errs []ValidationError) {
	// The parser panics on some malformed files; treat that as unreadable.
	defer func() {
		if r := recover(); r != nil {
			pages = 0
			errs = []ValidationError{{
				Code:    "UNREADABLE_PDF",
				Message: fmt.Sprintf("PDF structure could not be parsed: %v", r),
				Field:   "content",
			}}
		}
	}()

	reader, err := pdf.NewReader(file, size)
	if err != nil {
		return 0, []ValidationError{{
			Code:    "UNREADABLE_PDF",
			Message: fmt.Sprintf("PDF structure could not be parsed: %v", err),
			Field:   "content",
		}}
	}

	pages = reader.NumPage()
	if pages == 0 {
		return 0, []ValidationError{{
			Code:    "EMPTY_PDF",
			Message: "PDF contains no pages",
			Field:   "content",
		}}
	}
	if pages > v.config.MaxPageCount {
		return pages, []ValidationError{{
			Code:    "TOO_MANY_PAGES",
			Message: fmt.Sprintf("PDF has %d pages, maximum is %d", pages, v.config.MaxPageCount),
			Field:   "content",
		}}
	}
	return pages, nil
}

func (v *DocumentValidator) detectMimeType(file multipart.File) (string, error) {
	buffer := make([]byte, 512)
	if _, err := file.Read(buffer); err != nil && err != io.EOF {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buffer), nil
}

func (v *DocumentValidator) calculateHash(file multipart.File) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
