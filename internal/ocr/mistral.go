package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealmachine/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"
)

// MistralOCR extracts text from PDFs using the Mistral OCR API. Requests are
// rate limited and retried through a resilience.Guard.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	guard    *resilience.Guard
}

// MistralOption configures a MistralOCR.
type MistralOption func(*MistralOCR)

// WithEndpoint overrides the API endpoint.
func WithEndpoint(url string) MistralOption {
	return func(m *MistralOCR) { m.endpoint = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) MistralOption {
	return func(m *MistralOCR) { m.client = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) MistralOption {
	return func(m *MistralOCR) { m.client = &http.Client{Timeout: d} }
}

// WithRateLimit allows at most r requests per second, bursting to one.
func WithRateLimit(r rate.Limit) MistralOption {
	return func(m *MistralOCR) { m.limiter = rate.NewLimiter(r, 1) }
}

// WithGuard sets the retry and circuit breaker policy.
func WithGuard(g *resilience.Guard) MistralOption {
	return func(m *MistralOCR) { m.guard = g }
}

// NewMistralOCR creates a MistralOCR extractor. An empty model means the
// default OCR model.
func NewMistralOCR(apiKey, model string, opts ...MistralOption) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	m := &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// ExtractText reads a PDF, sends it to Mistral OCR as a data URL, and
// returns the page markdown joined by blank lines.
func (m *MistralOCR) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read PDF %s", pdfPath)
	}

	body, err := json.Marshal(mistralOCRRequest{
		Model: m.model,
		Document: mistralOCRDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "ocr: marshal mistral request")
	}

	resp, err := resilience.Run(ctx, m.guard, func(ctx context.Context) (*mistralOCRResponse, error) {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "ocr: mistral rate limit")
		}
		return m.post(ctx, body)
	})
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		pages = append(pages, p.Markdown)
	}
	return strings.Join(pages, "\n\n"), nil
}

func (m *MistralOCR) post(ctx context.Context, body []byte) (*mistralOCRResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: mistral API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: read mistral response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("ocr: mistral API", resp.StatusCode, resp.Header, string(respBody))
	}

	var out mistralOCRResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "ocr: unmarshal mistral response")
	}
	return &out, nil
}
