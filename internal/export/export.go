// Package export writes a session's fields and metrics to JSON, YAML or XLSX
// and reads them back.
package export

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/scorer"
	"github.com/sells-group/dealmachine/internal/session"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts json, yaml, yml and xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", eris.Errorf("export: %s has no extension", path)
	}
	return ParseFormat(ext)
}

// Entry is one exported field.
type Entry struct {
	Value      model.Value      `json:"value" yaml:"value"`
	Provenance model.Provenance `json:"provenance" yaml:"provenance"`
}

// MetricEntry is one exported metric. Value is nil for N/A; Score is nil
// for unscored metrics.
type MetricEntry struct {
	Value *float64      `json:"value" yaml:"value"`
	Score *scorer.Score `json:"score,omitempty" yaml:"score,omitempty"`
}

// Document is the exchange form of one record. Only present fields are
// included; metrics are informational and ignored on import.
type Document struct {
	ExportedAt time.Time               `json:"exported_at" yaml:"exported_at"`
	RecordID   string                  `json:"record_id" yaml:"record_id"`
	Name       string                  `json:"name,omitempty" yaml:"name,omitempty"`
	Fields     map[model.FieldID]Entry `json:"fields" yaml:"fields"`
	Metrics    map[string]MetricEntry  `json:"metrics" yaml:"metrics"`
}

// Build captures the current state of s.
func Build(s *session.Session) *Document {
	snap := s.Snapshot()
	doc := &Document{
		ExportedAt: time.Now().UTC(),
		RecordID:   s.ID(),
		Name:       s.Name(),
		Fields:     make(map[model.FieldID]Entry),
		Metrics:    make(map[string]MetricEntry),
	}
	for _, m := range s.Metrics() {
		doc.Metrics[string(m.ID)] = MetricEntry{Value: m.Value, Score: m.Score}
	}
	for _, id := range s.Schema().IDs() {
		f, _ := snap.Get(id)
		if !f.Present() {
			continue
		}
		doc.Fields[id] = Entry{Value: f.Value, Provenance: f.Provenance}
	}
	return doc
}

// ApplyDocument sets every exported field on s as a manual value. Fields
// the document does not carry are left alone. Nothing changes on error.
func ApplyDocument(s *session.Session, doc *Document) error {
	if doc == nil {
		return eris.New("export: nil document")
	}
	values := make(map[model.FieldID]model.Value, len(doc.Fields))
	for id, e := range doc.Fields {
		if e.Value.Valid() {
			values[id] = e.Value
		}
	}
	if err := s.ApplyValues(values); err != nil {
		return eris.Wrap(err, "export: apply document")
	}
	if s.Name() == "" && doc.Name != "" {
		s.SetName(doc.Name)
	}
	return nil
}

// Write encodes doc as JSON or YAML. XLSX needs a file; use WriteXLSX.
func Write(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(doc), "export: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return eris.Wrap(err, "export: encode yaml")
		}
		return eris.Wrap(enc.Close(), "export: encode yaml")
	case FormatXLSX:
		return eris.New("export: xlsx is written to a file, not a stream")
	}
	return eris.Errorf("export: unknown format %q", format)
}

// Read decodes a JSON or YAML document.
func Read(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "export: decode json")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, eris.Wrap(err, "export: decode yaml")
		}
	default:
		return nil, eris.Errorf("export: cannot stream-read %q", format)
	}
	if doc.Fields == nil {
		doc.Fields = make(map[model.FieldID]Entry)
	}
	return &doc, nil
}

// WriteFile writes doc to path in the format named by its extension.
func WriteFile(path string, doc *Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format == FormatXLSX {
		return WriteXLSX(path, doc)
	}

	var buf bytes.Buffer
	if err := Write(&buf, doc, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadFile reads a document written by WriteFile.
func ReadFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Read(f, format)
}
