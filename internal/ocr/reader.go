package ocr

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PlainText reads .txt documents.
type PlainText struct{}

// ExtractText returns the file's contents.
func (PlainText) ExtractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read %s", path)
	}
	return string(data), nil
}

// Reader validates a document and extracts its text with the extractor for
// its kind. Extraction failures come back as *UnavailableError.
type Reader struct {
	pdf      Extractor
	text     Extractor
	maxBytes int64
}

// NewReader builds a Reader that sends PDFs to pdf.
func NewReader(pdf Extractor, maxBytes int64) *Reader {
	return &Reader{pdf: pdf, text: PlainText{}, maxBytes: maxBytes}
}

// Inspect validates path without extracting it.
func (r *Reader) Inspect(path string) (DocumentInfo, error) {
	return Validate(path, r.maxBytes)
}

// ExtractText validates path and extracts its text. Validation errors are
// returned unchanged.
func (r *Reader) ExtractText(ctx context.Context, path string) (string, error) {
	info, err := Validate(path, r.maxBytes)
	if err != nil {
		return "", err
	}

	ext := r.text
	if info.Kind == KindPDF {
		ext = r.pdf
	}

	text, err := ext.ExtractText(ctx, path)
	if err != nil {
		return "", unavailable(path, err)
	}
	if blank(text) {
		return "", unavailable(path, eris.New("ocr: no text found"))
	}

	zap.L().Debug("ocr: extracted document",
		zap.String("path", path),
		zap.String("kind", string(info.Kind)),
		zap.Int("pages", info.Pages),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
