// Package session is the single-owner working state of one property record:
// its field store, last extraction and derived metrics. The CLI and the HTTP
// server drive everything through a Session.
package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/defaults"
	"github.com/sells-group/dealmachine/internal/extract"
	"github.com/sells-group/dealmachine/internal/fieldstore"
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/ocr"
	"github.com/sells-group/dealmachine/internal/projection"
	"github.com/sells-group/dealmachine/internal/registry"
	"github.com/sells-group/dealmachine/internal/scorer"
)

// PreviewChars is how much raw text is kept with a record.
const PreviewChars = 2000

// Deps are the shared, read-only collaborators of a session. Nil members
// fall back to the built-in ones.
type Deps struct {
	Library  *registry.Library
	Defaults *defaults.Table
	Graph    *projection.Graph
	Scorer   *scorer.Scorer
	Reader   ocr.Extractor
}

func (d Deps) withFallbacks() Deps {
	if d.Library == nil {
		d.Library = registry.Default()
	}
	if d.Defaults == nil {
		d.Defaults = defaults.Builtin()
	}
	if d.Graph == nil {
		d.Graph = projection.Default()
	}
	if d.Scorer == nil {
		d.Scorer = scorer.Default()
	}
	return d
}

// Session is not safe for concurrent use.
type Session struct {
	id         string
	name       string
	sourcePath string
	preview    string
	createdAt  time.Time

	deps      Deps
	extractor *extract.Extractor
	fields    *fieldstore.Store
	matches   map[model.FieldID]extract.Match
}

// New creates a session with every field at its default.
func New(deps Deps) *Session {
	deps = deps.withFallbacks()
	s := &Session{
		id:        uuid.New().String(),
		createdAt: time.Now().UTC(),
		deps:      deps,
		extractor: extract.New(deps.Library),
		fields:    fieldstore.New(deps.Library.Schema(), deps.Defaults),
	}
	s.fields.Reset()
	return s
}

func (s *Session) ID() string         { return s.id }
func (s *Session) Name() string       { return s.name }
func (s *Session) SourcePath() string { return s.sourcePath }
func (s *Session) Preview() string    { return s.preview }

// SetSourcePath records where the text came from, e.g. an upload's
// original file name.
func (s *Session) SetSourcePath(p string) { s.sourcePath = p }

// SetName renames the record.
func (s *Session) SetName(name string) { s.name = strings.TrimSpace(name) }

// Schema returns the field schema.
func (s *Session) Schema() *model.Schema { return s.fields.Schema() }

// SetDefaults swaps the default table for later merges, clears and resets.
func (s *Session) SetDefaults(t *defaults.Table) {
	s.deps.Defaults = t
	s.fields.SetDefaults(t)
}

// LoadReport describes one extraction merge.
type LoadReport struct {
	fieldstore.LoadResult
	Matches map[model.FieldID]extract.Match `json:"matches"`
	Source  string                          `json:"source,omitempty"`
	Chars   int                             `json:"chars"`
}

// ApplyText extracts fields from text and merges them into the record.
func (s *Session) ApplyText(text string, opts ...fieldstore.LoadOption) LoadReport {
	s.matches = s.extractor.Extract(text)
	res := s.fields.LoadFromExtraction(extract.Values(s.matches), opts...)
	s.preview = preview(text)

	zap.L().Info("session: applied text",
		zap.String("session", s.id),
		zap.Int("extracted", len(res.Extracted)),
		zap.Int("defaulted", len(res.Defaulted)),
		zap.Int("protected", len(res.Protected)),
	)
	return LoadReport{LoadResult: res, Matches: s.matches, Chars: len(text)}
}

// LoadDocument extracts text from path with source (the session's reader
// when nil) and applies it. When extraction is unavailable every
// non-manual field falls back to its default and the error is returned
// alongside the report.
func (s *Session) LoadDocument(ctx context.Context, source ocr.Extractor, path string, opts ...fieldstore.LoadOption) (LoadReport, error) {
	if source == nil {
		source = s.deps.Reader
	}
	if source == nil {
		return LoadReport{}, eris.New("session: no document reader configured")
	}

	text, err := source.ExtractText(ctx, path)
	if errors.Is(err, ocr.ErrExtractionUnavailable) {
		s.matches = nil
		s.preview = ""
		s.adoptSource(path)
		res := s.fields.LoadFromExtraction(nil, opts...)
		zap.L().Warn("session: extraction unavailable, using defaults",
			zap.String("session", s.id), zap.String("path", path), zap.Error(err))
		return LoadReport{LoadResult: res, Source: path}, err
	}
	if err != nil {
		return LoadReport{}, eris.Wrapf(err, "session: load %s", path)
	}

	report := s.ApplyText(text, opts...)
	report.Source = path
	s.adoptSource(path)
	return report, nil
}

func (s *Session) adoptSource(path string) {
	s.sourcePath = path
	if s.name == "" {
		s.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
}

// SetManual parses raw with the field's type and stores it as a manual value.
func (s *Session) SetManual(id model.FieldID, raw string) error {
	return s.fields.SetManual(id, raw)
}

// SetManualValue stores a typed manual value. Percentages are fractions.
func (s *Session) SetManualValue(id model.FieldID, v model.Value) error {
	return s.fields.SetManualValue(id, v)
}

// ApplyValues sets every value as manual. Either all succeed or the record
// is unchanged.
func (s *Session) ApplyValues(values map[model.FieldID]model.Value) error {
	for id := range values {
		if !s.Schema().Has(id) {
			return &fieldstore.ValidationError{Field: id, Reason: "unknown field"}
		}
	}

	states, extracted := s.fields.States(), s.fields.Extracted()
	for _, id := range s.Schema().IDs() {
		v, ok := values[id]
		if !ok {
			continue
		}
		if err := s.fields.SetManualValue(id, v); err != nil {
			if rerr := s.fields.Restore(states, extracted); rerr != nil {
				return eris.Wrap(rerr, "session: roll back")
			}
			return err
		}
	}
	return nil
}

// Clear drops a field's value back to its default.
func (s *Session) Clear(id model.FieldID) error {
	return s.fields.Clear(id)
}

// Reset returns every field to its default and forgets the last extraction.
func (s *Session) Reset() {
	s.fields.Reset()
	s.matches = nil
}

// Diff compares current values with the last extraction.
func (s *Session) Diff() []fieldstore.Difference {
	return s.fields.Diff()
}

// Snapshot returns the current field snapshot.
func (s *Session) Snapshot() model.Snapshot {
	return s.fields.Snapshot()
}

// Evaluate recomputes every metric.
func (s *Session) Evaluate() projection.Results {
	return s.deps.Graph.Evaluate(s.fields.Snapshot())
}

// Record returns the persistable form of the session.
func (s *Session) Record() *model.PropertyRecord {
	return &model.PropertyRecord{
		ID:             s.id,
		Name:           s.name,
		SourcePath:     s.sourcePath,
		RawTextPreview: s.preview,
		Fields:         s.fields.States(),
		Extracted:      s.fields.Extracted(),
		Metrics:        s.Evaluate().Map(),
		CreatedAt:      s.createdAt,
	}
}

// Restore replaces the session state with rec. The session takes rec's id.
func (s *Session) Restore(rec *model.PropertyRecord) error {
	if rec == nil {
		return eris.New("session: nil record")
	}
	if err := s.fields.Restore(rec.Fields, rec.Extracted); err != nil {
		return err
	}
	if rec.ID != "" {
		s.id = rec.ID
	}
	s.name = rec.Name
	s.sourcePath = rec.SourcePath
	s.preview = rec.RawTextPreview
	if !rec.CreatedAt.IsZero() {
		s.createdAt = rec.CreatedAt
	}
	s.matches = nil
	return nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= PreviewChars {
		return text
	}
	return string(r[:PreviewChars])
}
