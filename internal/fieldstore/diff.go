package fieldstore

import "github.com/sells-group/dealmachine/internal/model"

// DiffKind classifies a Difference.
type DiffKind string

const (
	// DiffChanged means the current value differs from the extracted one.
	DiffChanged DiffKind = "changed"
	// DiffCleared means the extraction found a value the record no longer has.
	DiffCleared DiffKind = "cleared"
	// DiffAdded means a manual value exists where the extraction found nothing.
	DiffAdded DiffKind = "added"
)

// diffTolerance is the numeric tolerance below which values are equal.
const diffTolerance = 0.001

// Difference is one field whose current value departs from the last
// extraction.
type Difference struct {
	Field      model.FieldID    `json:"field"`
	Current    model.Value      `json:"current"`
	Extracted  model.Value      `json:"extracted"`
	Provenance model.Provenance `json:"provenance"`
	Kind       DiffKind         `json:"kind"`
}

// Diff compares current values against the last extraction candidates, in
// schema order.
func (s *Store) Diff() []Difference {
	var out []Difference
	for _, id := range s.schema.IDs() {
		cur := s.fields[id]
		ext, hadExtraction := s.extracted[id]
		present := cur.Provenance != model.ProvenanceAbsent && cur.Value.Valid()

		d := Difference{Field: id, Current: cur.Value, Extracted: ext, Provenance: cur.Provenance}
		switch {
		case hadExtraction && !present:
			d.Kind = DiffCleared
		case hadExtraction && !cur.Value.Equal(ext, diffTolerance):
			d.Kind = DiffChanged
		case !hadExtraction && cur.Provenance == model.ProvenanceManual:
			d.Kind = DiffAdded
		default:
			continue
		}
		out = append(out, d)
	}
	return out
}
