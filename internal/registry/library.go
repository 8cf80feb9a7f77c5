package registry

import (
	"regexp"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine/internal/model"
)

// RuleSpec is the uncompiled form of a Rule, as written in the built-in table
// or in a rules file. Priority 0 means "after the preceding rules of the field".
type RuleSpec struct {
	Field     model.FieldID `yaml:"field" json:"field"`
	Label     string        `yaml:"label" json:"label"`
	Pattern   string        `yaml:"pattern" json:"pattern"`
	Priority  int           `yaml:"priority,omitempty" json:"priority,omitempty"`
	Normalize Normalizer    `yaml:"-" json:"-"`
}

// Rule recognises one label for one field. The first capture group of Pattern
// is handed to Normalize.
type Rule struct {
	Field     model.FieldID
	Priority  int
	Label     string
	Pattern   *regexp.Regexp
	Normalize Normalizer
}

// Library maps each field to its ordered rules. A Library is immutable after
// construction and safe for concurrent use.
type Library struct {
	schema *model.Schema
	rules  map[model.FieldID][]Rule
	fields []model.FieldID
}

// Compile turns specs into rules. Missing priorities are assigned in order of
// appearance within each field, continuing after the highest priority seen.
func Compile(schema *model.Schema, specs []RuleSpec) ([]Rule, error) {
	next := make(map[model.FieldID]int)
	out := make([]Rule, 0, len(specs))
	for i, s := range specs {
		def, ok := schema.Def(s.Field)
		if !ok {
			return nil, eris.Errorf("registry: rule %d (%s) references unknown field %q", i, s.Label, s.Field)
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: compile rule %q for %s", s.Label, s.Field)
		}
		prio := s.Priority
		if prio == 0 {
			prio = next[s.Field] + 1
		}
		if prio > next[s.Field] {
			next[s.Field] = prio
		}
		norm := s.Normalize
		if norm == nil {
			norm = NormalizerFor(def.Type)
		}
		out = append(out, Rule{
			Field:     s.Field,
			Priority:  prio,
			Label:     s.Label,
			Pattern:   re,
			Normalize: norm,
		})
	}
	return out, nil
}

// NewLibrary validates rules against schema and indexes them by field.
// Rules must reference known fields, carry a pattern with at least one
// capture group, and have unique priorities within their field.
func NewLibrary(schema *model.Schema, rules []Rule) (*Library, error) {
	if schema == nil {
		return nil, eris.New("registry: nil schema")
	}
	lib := &Library{
		schema: schema,
		rules:  make(map[model.FieldID][]Rule),
	}
	seen := make(map[model.FieldID]map[int]string)
	for _, r := range rules {
		def, ok := schema.Def(r.Field)
		if !ok {
			return nil, eris.Errorf("registry: rule %q references unknown field %q", r.Label, r.Field)
		}
		if r.Pattern == nil {
			return nil, eris.Errorf("registry: rule %q for %s has no pattern", r.Label, r.Field)
		}
		if r.Pattern.NumSubexp() < 1 {
			return nil, eris.Errorf("registry: rule %q for %s has no capture group", r.Label, r.Field)
		}
		if seen[r.Field] == nil {
			seen[r.Field] = make(map[int]string)
		}
		if other, dup := seen[r.Field][r.Priority]; dup {
			return nil, eris.Errorf("registry: rules %q and %q for %s share priority %d", other, r.Label, r.Field, r.Priority)
		}
		seen[r.Field][r.Priority] = r.Label
		if r.Normalize == nil {
			r.Normalize = NormalizerFor(def.Type)
		}
		lib.rules[r.Field] = append(lib.rules[r.Field], r)
	}

	for id, rs := range lib.rules {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Priority < rs[j].Priority })
		lib.rules[id] = rs
	}
	for _, id := range schema.IDs() {
		if len(lib.rules[id]) > 0 {
			lib.fields = append(lib.fields, id)
		}
	}
	return lib, nil
}

// Rules returns the rules of a field ordered by priority. The returned slice
// is a copy.
func (l *Library) Rules(id model.FieldID) []Rule {
	rs := l.rules[id]
	out := make([]Rule, len(rs))
	copy(out, rs)
	return out
}

// Fields returns the ids of all fields with at least one rule, in schema order.
func (l *Library) Fields() []model.FieldID {
	out := make([]model.FieldID, len(l.fields))
	copy(out, l.fields)
	return out
}

// Schema returns the field schema the library was built against.
func (l *Library) Schema() *model.Schema {
	return l.schema
}

// Extend returns a new library holding l's rules followed by specs. Extra rules
// without a priority rank after every existing rule of their field.
func (l *Library) Extend(specs []RuleSpec) (*Library, error) {
	var all []Rule
	shifted := make([]RuleSpec, len(specs))
	copy(shifted, specs)
	maxPrio := make(map[model.FieldID]int)
	for _, id := range l.fields {
		for _, r := range l.rules[id] {
			all = append(all, r)
			if r.Priority > maxPrio[id] {
				maxPrio[id] = r.Priority
			}
		}
	}
	for i := range shifted {
		if shifted[i].Priority == 0 {
			maxPrio[shifted[i].Field]++
			shifted[i].Priority = maxPrio[shifted[i].Field]
		}
	}
	extra, err := Compile(l.schema, shifted)
	if err != nil {
		return nil, err
	}
	return NewLibrary(l.schema, append(all, extra...))
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
	defaultErr  error
)

// Default returns the built-in library. It is built on first use.
func Default() *Library {
	defaultOnce.Do(func() {
		defaultLib, defaultErr = build()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultLib
}

// DefaultSchema returns the built-in field schema.
func DefaultSchema() *model.Schema {
	return Default().Schema()
}

func build() (*Library, error) {
	schema, err := model.NewSchema(fieldDefs)
	if err != nil {
		return nil, eris.Wrap(err, "registry: build schema")
	}
	rules, err := Compile(schema, builtinRules)
	if err != nil {
		return nil, err
	}
	return NewLibrary(schema, rules)
}
