package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/fieldstore"
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/ocr"
	"github.com/sells-group/dealmachine/internal/session"
	"github.com/sells-group/dealmachine/internal/store"
)

const listing = `MLS#: 2207513
Purchase Price: $1,500,000
Number of Units: 10
Monthly Rent Per Unit: $1,200
Vacancy Rate: 5%
Property Taxes: $18,000
Insurance: $6,000
Management Fee Rate: 8%
Down Payment: 25%
`

type stubReader struct {
	text string
	err  error
}

func (r stubReader) ExtractText(context.Context, string) (string, error) {
	return r.text, r.err
}

type testView struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	SourcePath string               `json:"source_path"`
	Fields     []session.FieldView  `json:"fields"`
	Metrics    []session.MetricView `json:"metrics"`
	Warning    string               `json:"warning"`
	Report     *session.LoadReport  `json:"report"`
}

func (v testView) field(id model.FieldID) session.FieldView {
	for _, f := range v.Fields {
		if f.ID == id {
			return f
		}
	}
	return session.FieldView{}
}

func (v testView) metric(id string) *float64 {
	for _, m := range v.Metrics {
		if string(m.ID) == id {
			return m.Value
		}
	}
	return nil
}

func newTestServer(t *testing.T, reader ocr.Extractor) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	srv := New(session.Deps{Reader: reader}, st, config.ServerConfig{Port: 0, AllowedOrigins: []string{"*"}})
	return srv, st
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) testView {
	t.Helper()
	var v testView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler, text string) testView {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/sessions", map[string]string{"name": "Main St", "text": text})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeView(t, rr)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	rr := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	do(t, srv.Handler(), http.MethodGet, "/health", nil)
	rr := do(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "dealmachine_http_requests_total")
}

func TestCreateSession(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	empty := do(t, h, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, empty.Code)
	v := decodeView(t, empty)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, model.ProvenanceDefault, v.field("interest_rate").Provenance)
	assert.Nil(t, v.metric("cap_rate"), "no price yet")

	v = createSession(t, h, listing)
	assert.Equal(t, "Main St", v.Name)
	require.NotNil(t, v.Report)
	assert.Contains(t, v.Report.Extracted, model.FieldID("purchase_price"))
	pp := v.field("purchase_price")
	assert.Equal(t, model.ProvenanceExtracted, pp.Provenance)
	assert.Equal(t, "Purchase Price", pp.Rule)
	require.NotNil(t, v.metric("gpi"))
	assert.InDelta(t, 144000, *v.metric("gpi"), 1e-6)

	got := decodeView(t, do(t, h, http.MethodGet, "/sessions/"+v.ID, nil))
	assert.Equal(t, v.ID, got.ID)

	bad := do(t, h, http.MethodPost, "/sessions", "not an object")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestSessionNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/sessions/missing"},
		{http.MethodPost, "/sessions/missing/reset"},
		{http.MethodGet, "/sessions/missing/diff"},
		{http.MethodDelete, "/sessions/missing"},
	} {
		rr := do(t, h, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, tc.path)
	}
}

func TestApplyText_ProtectsManual(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	v := createSession(t, h, "")

	rr := do(t, h, http.MethodPut, "/sessions/"+v.ID+"/fields/purchase_price", map[string]string{"value": "$1,400,000"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/sessions/"+v.ID+"/text", map[string]string{"text": listing})
	require.Equal(t, http.StatusOK, rr.Code)
	v = decodeView(t, rr)
	assert.Equal(t, model.ProvenanceManual, v.field("purchase_price").Provenance)
	assert.Contains(t, v.Report.Protected, model.FieldID("purchase_price"))

	rr = do(t, h, http.MethodPost, "/sessions/"+v.ID+"/text", map[string]any{
		"text":      listing,
		"overwrite": []string{"purchase_price"},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	v = decodeView(t, rr)
	assert.Equal(t, model.ProvenanceExtracted, v.field("purchase_price").Provenance)
}

func TestSetAndClearField(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	v := createSession(t, h, listing)
	base := "/sessions/" + v.ID + "/fields/"

	rr := do(t, h, http.MethodPut, base+"vacancy_rate", map[string]string{"value": "7.5%"})
	require.Equal(t, http.StatusOK, rr.Code)
	f := decodeView(t, rr).field("vacancy_rate")
	assert.Equal(t, model.ProvenanceManual, f.Provenance)
	n, ok := f.Value.Float()
	require.True(t, ok)
	assert.InDelta(t, 0.075, n, 1e-12)

	rr = do(t, h, http.MethodPut, base+"vacancy_rate", map[string]string{"value": "150%"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodPut, base+"nope", map[string]string{"value": "1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodDelete, base+"vacancy_rate", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.ProvenanceDefault, decodeView(t, rr).field("vacancy_rate").Provenance)
}

func TestDiffAndReset(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	v := createSession(t, h, listing)

	rr := do(t, h, http.MethodGet, "/sessions/"+v.ID+"/diff", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"differences":[]}`, rr.Body.String())

	do(t, h, http.MethodPut, "/sessions/"+v.ID+"/fields/insurance", map[string]string{"value": "7000"})
	rr = do(t, h, http.MethodGet, "/sessions/"+v.ID+"/diff", nil)
	var body struct {
		Differences []struct {
			Field string `json:"field"`
			Kind  string `json:"kind"`
		} `json:"differences"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Differences, 1)
	assert.Equal(t, "insurance", body.Differences[0].Field)
	assert.Equal(t, "changed", body.Differences[0].Kind)

	rr = do(t, h, http.MethodPost, "/sessions/"+v.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	v = decodeView(t, rr)
	assert.Equal(t, model.ProvenanceAbsent, v.field("purchase_price").Provenance)
	assert.Equal(t, model.ProvenanceDefault, v.field("insurance").Provenance)
}

func TestExport(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	v := createSession(t, h, listing)

	rr := do(t, h, http.MethodGet, "/sessions/"+v.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var doc struct {
		RecordID string                     `json:"record_id"`
		Fields   map[string]json.RawMessage `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, v.ID, doc.RecordID)
	assert.Contains(t, doc.Fields, "purchase_price")

	rr = do(t, h, http.MethodGet, "/sessions/"+v.ID+"/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "record_id: "+v.ID)

	rr = do(t, h, http.MethodGet, "/sessions/"+v.ID+"/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSaveListOpenDelete(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	h := srv.Handler()
	v := createSession(t, h, listing)
	do(t, h, http.MethodPut, "/sessions/"+v.ID+"/fields/interest_rate", map[string]string{"value": "7%"})

	rr := do(t, h, http.MethodPost, "/sessions/"+v.ID+"/save", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var sum model.RecordSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, v.ID, sum.ID)
	assert.Equal(t, "2207513", sum.MLSNumber)

	rr = do(t, h, http.MethodGet, "/records?q=2207", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Records []model.RecordSummary `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Records, 1)

	rr = do(t, h, http.MethodGet, "/records/"+v.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rec model.PropertyRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, model.ProvenanceManual, rec.Fields["interest_rate"].Provenance)
	assert.Equal(t, listing, rec.RawTextPreview)

	rr = do(t, h, http.MethodPost, "/records/"+v.ID+"/open", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	opened := decodeView(t, rr)
	assert.Equal(t, v.ID, opened.ID)
	assert.Equal(t, model.ProvenanceManual, opened.field("interest_rate").Provenance)
	assert.Equal(t, *decodeView(t, do(t, h, http.MethodGet, "/sessions/"+v.ID, nil)).metric("dscr"), *opened.metric("dscr"))

	rr = do(t, h, http.MethodDelete, "/records/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, h, http.MethodGet, "/records/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, h, http.MethodDelete, "/records/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRecordsWithoutStore(t *testing.T) {
	t.Parallel()

	h := New(session.Deps{}, nil, config.ServerConfig{}).Handler()
	rr := do(t, h, http.MethodGet, "/records", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func upload(t *testing.T, h http.Handler, id, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/document", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUploadDocument(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, ocr.NewReader(stubReader{err: errors.New("no pdf here")}, 0))
	h := srv.Handler()
	v := createSession(t, h, "")

	rr := upload(t, h, v.ID, "main-st.txt", listing)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v = decodeView(t, rr)
	assert.Equal(t, "main-st.txt", v.SourcePath)
	assert.Empty(t, v.Warning)
	assert.Equal(t, model.ProvenanceExtracted, v.field("number_of_units").Provenance)

	rr = upload(t, h, v.ID, "listing.docx", "x")
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestUploadDocument_Unavailable(t *testing.T) {
	t.Parallel()

	unavailable := stubReader{err: &ocr.UnavailableError{Path: "x.pdf", Err: errors.New("pdftotext missing")}}
	srv, _ := newTestServer(t, unavailable)
	h := srv.Handler()
	v := createSession(t, h, listing)

	rr := upload(t, h, v.ID, "scan.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	v = decodeView(t, rr)
	assert.True(t, strings.Contains(v.Warning, "pdftotext missing"), v.Warning)
	assert.Equal(t, model.ProvenanceDefault, v.field("number_of_units").Provenance)
	assert.Equal(t, model.ProvenanceAbsent, v.field("purchase_price").Provenance)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session", errSessionNotFound, http.StatusNotFound},
		{"record", store.ErrNotFound, http.StatusNotFound},
		{"validation", &fieldstore.ValidationError{Field: "x", Reason: "bad"}, http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
		{"unsupported", ocr.ErrUnsupportedType, http.StatusUnsupportedMediaType},
		{"too large", ocr.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"bad body", errBadRequest, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
