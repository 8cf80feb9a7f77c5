// Package fieldstore owns the run-time field state of one property record and
// enforces provenance transitions.
package fieldstore

import (
	"fmt"
	"math"

	"github.com/sells-group/dealmachine/internal/defaults"
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/registry"
)

// ValidationError reports a rejected manual value. The store is unchanged
// when one is returned.
type ValidationError struct {
	Field  model.FieldID
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fieldstore: invalid value for %s: %s", e.Field, e.Reason)
}

// Store is the authoritative field state of a record. It is not safe for
// concurrent use; callers serialise access per record.
type Store struct {
	schema    *model.Schema
	defaults  *defaults.Table
	fields    map[model.FieldID]model.FieldState
	extracted map[model.FieldID]model.Value
}

// New creates a store with every field absent.
func New(schema *model.Schema, defs *defaults.Table) *Store {
	return &Store{
		schema:    schema,
		defaults:  defs,
		fields:    make(map[model.FieldID]model.FieldState),
		extracted: make(map[model.FieldID]model.Value),
	}
}

// Schema returns the schema the store validates against.
func (s *Store) Schema() *model.Schema { return s.schema }

// LoadOption adjusts LoadFromExtraction.
type LoadOption func(*loadOptions)

type loadOptions struct {
	all     bool
	confirm map[model.FieldID]bool
}

// ConfirmOverwrite allows the extraction to replace manual values of ids.
func ConfirmOverwrite(ids ...model.FieldID) LoadOption {
	return func(o *loadOptions) {
		for _, id := range ids {
			o.confirm[id] = true
		}
	}
}

// OverwriteManual allows the extraction to replace every manual value.
func OverwriteManual() LoadOption {
	return func(o *loadOptions) { o.all = true }
}

// LoadResult describes where each field's value came from after a merge.
type LoadResult struct {
	Extracted []model.FieldID `json:"extracted"`
	Defaulted []model.FieldID `json:"defaulted"`
	Absent    []model.FieldID `json:"absent"`
	Kept      []model.FieldID `json:"kept"`
	// Protected lists manual fields the extraction had a value for but was
	// not allowed to overwrite.
	Protected []model.FieldID `json:"protected"`
}

// LoadFromExtraction merges extracted values with defaults for every field in
// the schema. Manual values survive unless the caller confirms an overwrite
// and the extraction has a value for the field.
func (s *Store) LoadFromExtraction(extracted map[model.FieldID]model.Value, opts ...LoadOption) LoadResult {
	o := loadOptions{confirm: make(map[model.FieldID]bool)}
	for _, opt := range opts {
		opt(&o)
	}

	s.extracted = make(map[model.FieldID]model.Value, len(extracted))
	var res LoadResult
	for _, def := range s.schema.Defs() {
		id := def.ID
		v, hasExtracted := extracted[id]
		hasExtracted = hasExtracted && validate(def, v) == nil
		if hasExtracted {
			s.extracted[id] = v
		}

		next := model.ProvenanceAbsent
		if hasExtracted {
			next = model.ProvenanceExtracted
		} else if _, ok := s.defaults.DefaultFor(id); ok {
			next = model.ProvenanceDefault
		}

		cur := s.fields[id].Provenance
		confirmed := hasExtracted && (o.all || o.confirm[id])
		if !cur.CanTransition(next) && !confirmed {
			res.Kept = append(res.Kept, id)
			if hasExtracted {
				res.Protected = append(res.Protected, id)
			}
			continue
		}

		switch {
		case hasExtracted:
			s.fields[id] = model.FieldState{Value: v, Provenance: model.ProvenanceExtracted}
			res.Extracted = append(res.Extracted, id)
		case s.setDefault(id):
			res.Defaulted = append(res.Defaulted, id)
		default:
			res.Absent = append(res.Absent, id)
		}
	}
	return res
}

// SetManual parses raw with the field's type and stores it as manual.
// Currency accepts "$" and thousands separators; percentages accept "%" and
// are given in percent ("6.5" is 6.5%).
func (s *Store) SetManual(id model.FieldID, raw string) error {
	def, ok := s.schema.Def(id)
	if !ok {
		return &ValidationError{Field: id, Reason: "unknown field"}
	}
	v, err := registry.NormalizerFor(def.Type)(raw)
	if err != nil {
		return &ValidationError{Field: id, Reason: err.Error()}
	}
	s.fields[id] = model.FieldState{Value: v, Provenance: model.ProvenanceManual}
	return nil
}

// SetManualValue stores an already typed value as manual. Percentages are
// fractions.
func (s *Store) SetManualValue(id model.FieldID, v model.Value) error {
	def, ok := s.schema.Def(id)
	if !ok {
		return &ValidationError{Field: id, Reason: "unknown field"}
	}
	if err := validate(def, v); err != nil {
		return err
	}
	s.fields[id] = model.FieldState{Value: v, Provenance: model.ProvenanceManual}
	return nil
}

// Clear drops a field's value and falls back to its default, or absent.
func (s *Store) Clear(id model.FieldID) error {
	if !s.schema.Has(id) {
		return &ValidationError{Field: id, Reason: "unknown field"}
	}
	s.setDefault(id)
	return nil
}

// Reset returns every field to its default with provenance default, or absent
// when there is no default. Extracted candidates are discarded.
func (s *Store) Reset() {
	s.fields = make(map[model.FieldID]model.FieldState)
	s.extracted = make(map[model.FieldID]model.Value)
	for _, id := range s.schema.IDs() {
		s.setDefault(id)
	}
}

// SetDefaults swaps the default table. Existing fields are not touched until
// the next merge, clear or reset.
func (s *Store) SetDefaults(t *defaults.Table) {
	s.defaults = t
}

func (s *Store) setDefault(id model.FieldID) bool {
	v, ok := s.defaults.DefaultFor(id)
	if !ok {
		delete(s.fields, id)
		return false
	}
	s.fields[id] = model.FieldState{Value: v, Provenance: model.ProvenanceDefault}
	return true
}

// Field returns the current state of id.
func (s *Store) Field(id model.FieldID) (model.Field, bool) {
	def, ok := s.schema.Def(id)
	if !ok {
		return model.Field{}, false
	}
	st := s.fields[id]
	return model.Field{Def: def, Value: st.Value, Provenance: st.Provenance}, true
}

// Snapshot returns an immutable copy of every schema field, absent ones
// included.
func (s *Store) Snapshot() model.Snapshot {
	m := make(map[model.FieldID]model.Field, s.schema.Len())
	for _, def := range s.schema.Defs() {
		st := s.fields[def.ID]
		m[def.ID] = model.Field{Def: def, Value: st.Value, Provenance: st.Provenance}
	}
	return model.NewSnapshot(m)
}

// States returns the persisted form of every present field.
func (s *Store) States() map[model.FieldID]model.FieldState {
	out := make(map[model.FieldID]model.FieldState, len(s.fields))
	for id, st := range s.fields {
		out[id] = st
	}
	return out
}

// Extracted returns the candidates of the last extraction.
func (s *Store) Extracted() map[model.FieldID]model.Value {
	out := make(map[model.FieldID]model.Value, len(s.extracted))
	for id, v := range s.extracted {
		out[id] = v
	}
	return out
}

// Restore replaces the whole state with a persisted one. Every entry is
// validated first; on error the store is unchanged.
func (s *Store) Restore(states map[model.FieldID]model.FieldState, extracted map[model.FieldID]model.Value) error {
	fields := make(map[model.FieldID]model.FieldState, len(states))
	for id, st := range states {
		def, ok := s.schema.Def(id)
		if !ok {
			return &ValidationError{Field: id, Reason: "unknown field"}
		}
		if _, err := model.ParseProvenance(string(st.Provenance)); err != nil {
			return &ValidationError{Field: id, Reason: err.Error()}
		}
		if st.Provenance == model.ProvenanceAbsent {
			continue
		}
		if err := validate(def, st.Value); err != nil {
			return err
		}
		fields[id] = st
	}

	ext := make(map[model.FieldID]model.Value, len(extracted))
	for id, v := range extracted {
		def, ok := s.schema.Def(id)
		if !ok {
			return &ValidationError{Field: id, Reason: "unknown field"}
		}
		if err := validate(def, v); err != nil {
			return err
		}
		ext[id] = v
	}

	s.fields = fields
	s.extracted = ext
	return nil
}

func validate(def model.FieldDef, v model.Value) error {
	fail := func(reason string) error {
		return &ValidationError{Field: def.ID, Reason: reason}
	}
	if !v.Valid() {
		return fail("empty value")
	}
	if def.Type == model.TypeText {
		if v.IsNumber() {
			return fail("expected text")
		}
		return nil
	}

	f, ok := v.Float()
	if !ok {
		return fail(fmt.Sprintf("expected a number, got %q", v.String()))
	}
	switch def.Type {
	case model.TypeCurrency, model.TypeDecimal:
		if f < 0 {
			return fail("must not be negative")
		}
	case model.TypePercentage:
		if f < 0 || f > 1 {
			return fail("percentage must be between 0 and 100")
		}
	case model.TypeCount:
		if f < 0 {
			return fail("must not be negative")
		}
		if f != math.Trunc(f) {
			return fail("must be a whole number")
		}
	case model.TypeInteger:
		if f != math.Trunc(f) {
			return fail("must be a whole number")
		}
	}
	return nil
}
