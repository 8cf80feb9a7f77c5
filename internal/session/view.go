package session

import (
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/projection"
	"github.com/sells-group/dealmachine/internal/scorer"
)

// FieldView is one field as shown to a user.
type FieldView struct {
	ID         model.FieldID    `json:"id"`
	Label      string           `json:"label"`
	Type       model.FieldType  `json:"type"`
	Group      model.FieldGroup `json:"group"`
	Value      model.Value      `json:"value"`
	Provenance model.Provenance `json:"provenance,omitempty"`
	// Confidence and Rule are set for fields taken from the last extraction.
	Confidence float64 `json:"confidence,omitempty"`
	Rule       string  `json:"rule,omitempty"`
}

// Fields returns every schema field in schema order.
func (s *Session) Fields() []FieldView {
	snap := s.fields.Snapshot()
	out := make([]FieldView, 0, snap.Len())
	for _, def := range s.Schema().Defs() {
		f, _ := snap.Get(def.ID)
		v := FieldView{
			ID:         def.ID,
			Label:      def.Label,
			Type:       def.Type,
			Group:      def.Group,
			Value:      f.Value,
			Provenance: f.Provenance,
		}
		if m, ok := s.matches[def.ID]; ok && f.Provenance == model.ProvenanceExtracted {
			v.Confidence = m.Confidence
			v.Rule = m.Rule
		}
		out = append(out, v)
	}
	return out
}

// MetricView is one derived metric with its gradient score.
type MetricView struct {
	ID    projection.MetricID `json:"id"`
	Name  string              `json:"name"`
	Unit  projection.Unit     `json:"unit"`
	Value *float64            `json:"value"`
	Score *scorer.Score       `json:"score,omitempty"`
}

// Metrics evaluates every metric in graph order.
func (s *Session) Metrics() []MetricView {
	results := s.Evaluate()
	out := make([]MetricView, 0, len(results.IDs()))
	for _, id := range results.IDs() {
		m, _ := s.deps.Graph.Metric(id)
		r := results.Get(id)
		v := MetricView{ID: id, Name: m.Name, Unit: m.Unit, Value: r.Ptr()}
		if sc, ok := s.deps.Scorer.Score(id, r); ok {
			v.Score = &sc
		}
		out = append(out, v)
	}
	return out
}
