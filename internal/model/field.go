package model

import (
	"github.com/rotisserie/eris"
)

// FieldID is the stable identifier of a property attribute (e.g. "list_price").
type FieldID string

// FieldType determines how a field's value is parsed, validated and displayed.
type FieldType string

const (
	TypeCurrency   FieldType = "currency"
	TypePercentage FieldType = "percentage" // stored as a fraction (0.05 = 5%)
	TypeInteger    FieldType = "integer"
	TypeCount      FieldType = "count" // non-negative whole number
	TypeDecimal    FieldType = "decimal"
	TypeText       FieldType = "text"
)

// Numeric reports whether values of this type are numbers.
func (t FieldType) Numeric() bool {
	return t != TypeText
}

// FieldGroup is a coarse grouping used for display ordering.
type FieldGroup string

const (
	GroupListing   FieldGroup = "listing"
	GroupIncome    FieldGroup = "income"
	GroupExpense   FieldGroup = "expense"
	GroupFinancing FieldGroup = "financing"
	GroupDetail    FieldGroup = "detail"
)

// FieldDef describes one field of the schema.
type FieldDef struct {
	ID    FieldID    `json:"id"`
	Label string     `json:"label"`
	Type  FieldType  `json:"type"`
	Group FieldGroup `json:"group"`
}

// Financial reports whether the field feeds the projection engine.
func (d FieldDef) Financial() bool {
	switch d.Group {
	case GroupIncome, GroupExpense, GroupFinancing:
		return true
	}
	return d.ID == "list_price" || d.ID == "purchase_price"
}

// Schema is an ordered, indexed collection of field definitions.
type Schema struct {
	defs []FieldDef
	byID map[FieldID]int
}

// NewSchema creates a Schema. Duplicate ids are rejected.
func NewSchema(defs []FieldDef) (*Schema, error) {
	s := &Schema{
		defs: make([]FieldDef, len(defs)),
		byID: make(map[FieldID]int, len(defs)),
	}
	copy(s.defs, defs)
	for i, d := range s.defs {
		if d.ID == "" {
			return nil, eris.Errorf("model: schema: field %d has empty id", i)
		}
		if _, dup := s.byID[d.ID]; dup {
			return nil, eris.Errorf("model: schema: duplicate field %q", d.ID)
		}
		s.byID[d.ID] = i
	}
	return s, nil
}

// Def returns the definition for id.
func (s *Schema) Def(id FieldID) (FieldDef, bool) {
	i, ok := s.byID[id]
	if !ok {
		return FieldDef{}, false
	}
	return s.defs[i], true
}

// Has reports whether id is part of the schema.
func (s *Schema) Has(id FieldID) bool {
	_, ok := s.byID[id]
	return ok
}

// Defs returns all definitions in schema order.
func (s *Schema) Defs() []FieldDef {
	out := make([]FieldDef, len(s.defs))
	copy(out, s.defs)
	return out
}

// IDs returns all field ids in schema order.
func (s *Schema) IDs() []FieldID {
	out := make([]FieldID, len(s.defs))
	for i, d := range s.defs {
		out[i] = d.ID
	}
	return out
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.defs)
}

// Field is the current state of one field in a property record.
// A zero Provenance means the field is absent.
type Field struct {
	Def        FieldDef   `json:"def"`
	Value      Value      `json:"value"`
	Provenance Provenance `json:"provenance,omitempty"`
}

// Present reports whether the field carries a value.
func (f Field) Present() bool {
	return f.Provenance != ProvenanceAbsent && f.Value.Valid()
}

// FieldState is the persisted form of a field: value plus provenance.
type FieldState struct {
	Value      Value      `json:"value" yaml:"value"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// Snapshot is an immutable view of every field in a record at one point in time.
type Snapshot struct {
	fields map[FieldID]Field
}

// NewSnapshot copies fields into a Snapshot.
func NewSnapshot(fields map[FieldID]Field) Snapshot {
	m := make(map[FieldID]Field, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return Snapshot{fields: m}
}

// Get returns the field for id.
func (s Snapshot) Get(id FieldID) (Field, bool) {
	f, ok := s.fields[id]
	return f, ok
}

// Number returns the numeric value of id if the field is present and numeric.
func (s Snapshot) Number(id FieldID) (float64, bool) {
	f, ok := s.fields[id]
	if !ok || !f.Present() {
		return 0, false
	}
	return f.Value.Float()
}

// Text returns the text form of id if present.
func (s Snapshot) Text(id FieldID) (string, bool) {
	f, ok := s.fields[id]
	if !ok || !f.Present() {
		return "", false
	}
	return f.Value.String(), true
}

// Len returns the number of fields in the snapshot, present or not.
func (s Snapshot) Len() int {
	return len(s.fields)
}
