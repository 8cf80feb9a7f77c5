// Package defaults holds the regional baseline values used for any field the
// extractor could not recognise.
package defaults

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/registry"
)

// Table is an immutable field -> default value lookup.
type Table struct {
	values map[model.FieldID]model.Value
}

// builtin is the King County, WA baseline shipped with the tool.
// Percentages are fractions.
var builtin = map[model.FieldID]model.Value{
	registry.NumberOfUnits:      model.Number(1),
	registry.MonthlyRentPerUnit: model.Number(1500),
	registry.VacancyRate:        model.Number(0.03),
	registry.Insurance:          model.Number(2000),
	registry.ManagementFees:     model.Number(4800),
	registry.MaintenanceRepairs: model.Number(8000),
	registry.Utilities:          model.Number(2400),
	registry.DownPayment:        model.Number(0.20),
	registry.InterestRate:       model.Number(0.065),
	registry.LoanTermsYears:     model.Number(30),
}

// Builtin returns the shipped default table.
func Builtin() *Table {
	return New(builtin)
}

// New creates a table from values. Invalid values are dropped.
func New(values map[model.FieldID]model.Value) *Table {
	t := &Table{values: make(map[model.FieldID]model.Value, len(values))}
	for id, v := range values {
		if v.Valid() {
			t.values[id] = v
		}
	}
	return t
}

// DefaultFor returns the default for id, if any.
func (t *Table) DefaultFor(id model.FieldID) (model.Value, bool) {
	if t == nil {
		return model.Value{}, false
	}
	v, ok := t.values[id]
	return v, ok
}

// Values returns a copy of all defaults.
func (t *Table) Values() map[model.FieldID]model.Value {
	out := make(map[model.FieldID]model.Value, len(t.values))
	for id, v := range t.values {
		out[id] = v
	}
	return out
}

// IDs returns the ids that have a default, sorted.
func (t *Table) IDs() []model.FieldID {
	ids := make([]model.FieldID, 0, len(t.values))
	for id := range t.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// With returns a copy of t with id set to v. An invalid v removes the default.
func (t *Table) With(id model.FieldID, v model.Value) *Table {
	vals := t.Values()
	if v.Valid() {
		vals[id] = v
	} else {
		delete(vals, id)
	}
	return New(vals)
}

// Overrides returns the entries of t that differ from the built-in table.
func (t *Table) Overrides() map[model.FieldID]model.Value {
	out := make(map[model.FieldID]model.Value)
	for id, v := range t.values {
		if b, ok := builtin[id]; ok && b.Equal(v, 1e-9) {
			continue
		}
		out[id] = v
	}
	return out
}

// Parse converts a human-entered default ("5" or "5%" for a 5% rate,
// "$2,000" for currency) to the stored value for id.
func Parse(schema *model.Schema, id model.FieldID, raw string) (model.Value, error) {
	def, ok := schema.Def(id)
	if !ok {
		return model.Value{}, eris.Errorf("defaults: unknown field %q", id)
	}
	v, err := registry.NormalizerFor(def.Type)(raw)
	if err != nil {
		return model.Value{}, eris.Wrapf(err, "defaults: %s", id)
	}
	return v, nil
}
