// Package ocr turns listing documents into plain text. PDFs go through the
// pdftotext CLI or the Mistral OCR API; .txt files are read as is.
package ocr

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/resilience"
)

// Extractor extracts text content from a document.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// ErrExtractionUnavailable reports that a document could not be turned into
// text. Callers fall back to default values.
var ErrExtractionUnavailable = eris.New("ocr: text extraction unavailable")

// UnavailableError carries the cause of a failed extraction. It matches
// ErrExtractionUnavailable under errors.Is.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return "ocr: text extraction unavailable for " + e.Path + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is matches ErrExtractionUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrExtractionUnavailable
}

func unavailable(path string, err error) error {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Path: path, Err: err}
}

// NewExtractor creates the PDF Extractor named by cfg.Provider: "local"
// (pdftotext), "mistral", or "chain" (pdftotext, then Mistral when the
// local tool fails or finds no text).
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		m, err := mistralFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "chain":
		m, err := mistralFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewChain(NewPdfToText(cfg.PdfToTextPath), m), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

func mistralFromConfig(cfg config.OCRConfig) (*MistralOCR, error) {
	if cfg.MistralKey == "" {
		return nil, eris.Errorf("ocr: %s provider requires mistral_api_key", cfg.Provider)
	}
	opts := []MistralOption{
		WithGuard(resilience.NewGuard("mistral", cfg.Retry, cfg.Breaker)),
	}
	if cfg.MistralEndpoint != "" {
		opts = append(opts, WithEndpoint(cfg.MistralEndpoint))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimit(rate.Limit(cfg.RateLimit)))
	}
	if cfg.TimeoutSecs > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second))
	}
	return NewMistralOCR(cfg.MistralKey, cfg.MistralModel, opts...), nil
}

// New builds a Reader over the PDF extractor named by cfg.
func New(cfg config.OCRConfig) (*Reader, error) {
	pdf, err := NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return NewReader(pdf, int64(cfg.MaxFileMB)<<20), nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
