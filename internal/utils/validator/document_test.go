package validator

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentdare/auto-extractor/pkg/logger"
)

func makeUpload(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 10240)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func errorCodes(result *ValidationResult) []string {
	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

func TestRejectsNonPDFExtension(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	result, err := v.ValidateFile(makeUpload(t, "report.docx", []byte("not a pdf")))
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, errorCodes(result), "INVALID_FILE_TYPE")
}

func TestRejectsMismatchedContent(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	// .pdf name, plain-text body: the sniffed MIME type gives it away.
	result, err := v.ValidateFile(makeUpload(t, "report.pdf", []byte("just some text")))
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, errorCodes(result), "INVALID_MIME_TYPE")
}

func TestRejectsOversizedFile(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), &ValidatorConfig{
		MaxFileSize:  8,
		MaxPageCount: 500,
	})

	result, err := v.ValidateFile(makeUpload(t, "report.docx", []byte("longer than eight bytes")))
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, errorCodes(result), "FILE_TOO_LARGE")
}

func TestRejectsTruncatedPDF(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	// Valid header, no xref: sniffs as PDF but fails the structural parse.
	result, err := v.ValidateFile(makeUpload(t, "report.pdf", []byte("%PDF-1.4\ngarbage")))
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, errorCodes(result), "UNREADABLE_PDF")
}

func TestFileInfoHashStable(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)
	content := []byte("%PDF-1.4\ngarbage")

	a, err := v.ValidateFile(makeUpload(t, "a.pdf", content))
	require.NoError(t, err)
	b, err := v.ValidateFile(makeUpload(t, "b.pdf", content))
	require.NoError(t, err)

	assert.NotEmpty(t, a.FileInfo.Hash)
	assert.Equal(t, a.FileInfo.Hash, b.FileInfo.Hash)
}
