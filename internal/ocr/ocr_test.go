package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/resilience"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func fakeBin(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pdftotext")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

type stubExtractor struct {
	text  string
	err   error
	calls int
}

func (s *stubExtractor) ExtractText(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func mistralServer(t *testing.T, handler http.HandlerFunc) *MistralOCR {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMistralOCR("test-key", "test-model",
		WithEndpoint(srv.URL),
		WithGuard(&resilience.Guard{Retry: resilience.RetryConfig{
			MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond,
		}}),
	)
}

func TestNewExtractor(t *testing.T) {
	t.Parallel()

	ext, err := NewExtractor(config.OCRConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)

	ext, err = NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)

	_, err = NewExtractor(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral provider requires mistral_api_key")

	ext, err = NewExtractor(config.OCRConfig{Provider: "mistral", MistralKey: "k", RateLimit: 2, TimeoutSecs: 10})
	require.NoError(t, err)
	require.IsType(t, &MistralOCR{}, ext)
	assert.Equal(t, defaultMistralModel, ext.(*MistralOCR).model)
	assert.NotNil(t, ext.(*MistralOCR).guard)

	ext, err = NewExtractor(config.OCRConfig{Provider: "chain", MistralKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Chain{}, ext)

	_, err = NewExtractor(config.OCRConfig{Provider: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "unknown"`)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	txt := writeFile(t, "listing.txt", []byte("MLS#: 1"))
	info, err := Validate(txt, 0)
	require.NoError(t, err)
	assert.Equal(t, KindText, info.Kind)
	assert.Equal(t, int64(7), info.Size)

	pdf := writeFile(t, "listing.PDF", minimalPDF())
	info, err = Validate(pdf, 0)
	require.NoError(t, err)
	assert.Equal(t, KindPDF, info.Kind)
	assert.Equal(t, 1, info.Pages)

	_, err = Validate(writeFile(t, "listing.docx", []byte("x")), 0)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Validate(filepath.Join(t.TempDir(), "missing.pdf"), 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Validate(writeFile(t, "big.txt", []byte(strings.Repeat("x", 100))), 10)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = Validate(writeFile(t, "junk.pdf", []byte("%PDF-1.4 not really")), 0)
	assert.ErrorIs(t, err, ErrUnreadablePDF)
}

func TestReader_TextFile(t *testing.T) {
	t.Parallel()

	pdf := &stubExtractor{text: "unused"}
	r := NewReader(pdf, 0)
	text, err := r.ExtractText(context.Background(), writeFile(t, "a.txt", []byte("List Price: $1")))
	require.NoError(t, err)
	assert.Equal(t, "List Price: $1", text)
	assert.Zero(t, pdf.calls)
}

func TestReader_PDFFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "a.pdf", minimalPDF())

	r := NewReader(&stubExtractor{err: errors.New("boom")}, 0)
	_, err := r.ExtractText(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionUnavailable)
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, path, ue.Path)

	r = NewReader(&stubExtractor{text: "  \n"}, 0)
	_, err = r.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtractionUnavailable)

	r = NewReader(&stubExtractor{text: "MLS#: 42"}, 0)
	text, err := r.ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "MLS#: 42", text)
}

func TestReader_ValidationErrorsPassThrough(t *testing.T) {
	t.Parallel()

	r := NewReader(&stubExtractor{text: "x"}, 0)
	_, err := r.ExtractText(context.Background(), writeFile(t, "a.csv", []byte("x")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.NotErrorIs(t, err, ErrExtractionUnavailable)
}

func TestChain(t *testing.T) {
	t.Parallel()

	first := &stubExtractor{text: ""}
	second := &stubExtractor{text: "from mistral"}
	text, err := NewChain(first, second).ExtractText(context.Background(), "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "from mistral", text)
	assert.Equal(t, 1, first.calls)

	ok := &stubExtractor{text: "local"}
	never := &stubExtractor{text: "remote"}
	text, err = NewChain(ok, never).ExtractText(context.Background(), "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "local", text)
	assert.Zero(t, never.calls)

	_, err = NewChain(&stubExtractor{err: errors.New("a")}, &stubExtractor{err: errors.New("b")}).
		ExtractText(context.Background(), "x.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionUnavailable)
	assert.Contains(t, err.Error(), "a")

	_, err = NewChain().ExtractText(context.Background(), "x.pdf")
	require.Error(t, err)
}

func TestPdfToText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pdftotext", NewPdfToText("").binPath)

	p := NewPdfToText(fakeBin(t, `printf 'Page one\fPage two'`))
	text, err := p.ExtractText(context.Background(), "/tmp/dummy.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Page one\nPage two", text)

	p = NewPdfToText("/nonexistent/pdftotext")
	_, err = p.ExtractText(context.Background(), "/tmp/test.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestMistralOCR_ExtractText(t *testing.T) {
	t.Parallel()

	m := mistralServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "document_url", req.Document.Type)
		assert.True(t, strings.HasPrefix(req.Document.DocumentURL, "data:application/pdf;base64,"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{ //nolint:errcheck
			{Index: 0, Markdown: "Page one"},
			{Index: 1, Markdown: "Page two"},
		}})
	})

	text, err := m.ExtractText(context.Background(), writeFile(t, "a.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, "Page one\n\nPage two", text)
}

func TestMistralOCR_RetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := mistralServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{{Markdown: "ok"}}}) //nolint:errcheck
	})

	text, err := m.ExtractText(context.Background(), writeFile(t, "a.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMistralOCR_PermanentError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := mistralServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	})

	_, err := m.ExtractText(context.Background(), writeFile(t, "a.pdf", []byte("%PDF-1.4")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestMistralOCR_MalformedResponse(t *testing.T) {
	t.Parallel()

	m := mistralServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{invalid json`))
	})
	_, err := m.ExtractText(context.Background(), writeFile(t, "a.pdf", []byte("%PDF-1.4")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal mistral response")
}

func TestMistralOCR_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewMistralOCR("key", "").ExtractText(context.Background(), "/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PDF")
}

func TestMistralOCR_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	m := mistralServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(mistralOCRResponse{Pages: []mistralOCRPage{{Markdown: "ok"}}}) //nolint:errcheck
	})
	WithRateLimit(0.001)(m)
	path := writeFile(t, "a.pdf", []byte("%PDF-1.4"))

	_, err := m.ExtractText(context.Background(), path)
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.ExtractText(ctx, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
