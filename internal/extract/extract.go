// Package extract maps raw listing text to typed field values using the
// pattern library.
package extract

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/registry"
)

// Match is the winning rule's output for one field.
type Match struct {
	Value      model.Value `json:"value"`
	Confidence float64     `json:"confidence"`
	Rule       string      `json:"rule"`
	Raw        string      `json:"raw"`
}

// ExtractionRuleError reports a rule whose pattern matched but whose
// normalizer rejected the captured text. It is logged, never returned to
// callers of Extract.
type ExtractionRuleError struct {
	Field model.FieldID
	Rule  string
	Raw   string
	Err   error
}

func (e *ExtractionRuleError) Error() string {
	return fmt.Sprintf("extract: rule %q for %s rejected %q: %v", e.Rule, e.Field, e.Raw, e.Err)
}

func (e *ExtractionRuleError) Unwrap() error { return e.Err }

const (
	maxConfidence = 1.0
	minConfidence = 0.5
	rankPenalty   = 0.1
)

// Extractor runs a pattern library over raw text.
type Extractor struct {
	lib *registry.Library
}

// New creates an Extractor over lib. A nil lib uses the built-in library.
func New(lib *registry.Library) *Extractor {
	if lib == nil {
		lib = registry.Default()
	}
	return &Extractor{lib: lib}
}

// Extract is shorthand for New(nil).Extract(rawText).
func Extract(rawText string) map[model.FieldID]Match {
	return New(nil).Extract(rawText)
}

// Extract returns the fields recognised in rawText. Fields with no matching
// rule are omitted. Empty text yields an empty map.
func (e *Extractor) Extract(rawText string) map[model.FieldID]Match {
	out := make(map[model.FieldID]Match)
	if strings.TrimSpace(rawText) == "" {
		return out
	}
	text := Normalize(rawText)

	for _, id := range e.lib.Fields() {
		m, ok := e.extractField(id, text)
		if !ok {
			zap.L().Debug("extract: no match", zap.String("field", string(id)))
			continue
		}
		out[id] = m
	}
	return out
}

func (e *Extractor) extractField(id model.FieldID, text string) (Match, bool) {
	for rank, rule := range e.lib.Rules(id) {
		sub := rule.Pattern.FindStringSubmatch(text)
		if len(sub) < 2 || strings.TrimSpace(sub[1]) == "" {
			continue
		}
		raw := strings.TrimSpace(sub[1])
		v, err := rule.Normalize(raw)
		if err != nil || !v.Valid() {
			rerr := &ExtractionRuleError{Field: id, Rule: rule.Label, Raw: raw, Err: err}
			zap.L().Debug("extract: rule rejected capture", zap.Error(rerr))
			continue
		}
		zap.L().Debug("extract: matched",
			zap.String("field", string(id)),
			zap.String("rule", rule.Label),
			zap.String("raw", raw),
		)
		return Match{
			Value:      v,
			Confidence: confidence(rank),
			Rule:       rule.Label,
			Raw:        raw,
		}, true
	}
	return Match{}, false
}

func confidence(rank int) float64 {
	c := maxConfidence - rankPenalty*float64(rank)
	if c < minConfidence {
		return minConfidence
	}
	return c
}

// Normalize applies NFKC normalisation and unifies line endings so that
// non-breaking spaces and full-width digits emitted by PDF converters match
// the ASCII patterns.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Values flattens matches to their values.
func Values(matches map[model.FieldID]Match) map[model.FieldID]model.Value {
	out := make(map[model.FieldID]model.Value, len(matches))
	for id, m := range matches {
		out[id] = m.Value
	}
	return out
}
