package scorer

import (
	"math"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/projection"
)

// MaxPosition bounds a gradient position on either side of neutral.
const MaxPosition = 3

type stop struct {
	label string
	color string
}

// stops runs from worst (-3) to best (+3).
var stops = [2*MaxPosition + 1]stop{
	{"worst", "#FF0000"},
	{"bad", "#FF6666"},
	{"mild-bad", "#FFCCCC"},
	{"neutral", "#FFFFFF"},
	{"mild-good", "#CCFFCC"},
	{"good", "#66FF66"},
	{"best", "#00FF00"},
}

// Score is a metric value placed on the gradient.
type Score struct {
	Position float64 `json:"position" yaml:"position"`
	Stop     int     `json:"stop" yaml:"stop"`
	Label    string  `json:"label" yaml:"label"`
	Color    string  `json:"color" yaml:"color"`
}

// Scorer scores metric results against per-metric references.
type Scorer struct {
	refs map[projection.MetricID]References
}

// New builds a Scorer after validating refs.
func New(refs map[projection.MetricID]References) (*Scorer, error) {
	if err := ValidateReferences(refs); err != nil {
		return nil, err
	}
	s := &Scorer{refs: make(map[projection.MetricID]References, len(refs))}
	for id, r := range refs {
		s.refs[id] = r
	}
	return s, nil
}

// Default returns a Scorer over the built-in references.
func Default() *Scorer {
	s, err := New(DefaultReferences())
	if err != nil {
		panic(err)
	}
	return s
}

// FromConfig returns a Scorer over the built-in references with the
// configured overrides applied.
func FromConfig(overrides map[string]config.GradientConfig) (*Scorer, error) {
	refs, err := MergeConfig(DefaultReferences(), overrides)
	if err != nil {
		return nil, err
	}
	return New(refs)
}

// References returns the reference points of id.
func (s *Scorer) References(id projection.MetricID) (References, bool) {
	r, ok := s.refs[id]
	return r, ok
}

// Score places r on the gradient of id. It reports false when r is N/A or
// id is unscored.
func (s *Scorer) Score(id projection.MetricID, r projection.Result) (Score, bool) {
	refs, ok := s.refs[id]
	if !ok {
		return Score{}, false
	}
	v, ok := r.Float()
	if !ok {
		return Score{}, false
	}
	pos := Position(refs, v)
	idx := int(math.Round(pos))
	st := stops[idx+MaxPosition]
	return Score{Position: pos, Stop: idx, Label: st.label, Color: st.color}, true
}

// ScoreAll scores every scored, non-N/A metric in results.
func (s *Scorer) ScoreAll(results projection.Results) map[projection.MetricID]Score {
	out := make(map[projection.MetricID]Score)
	for _, id := range results.IDs() {
		if sc, ok := s.Score(id, results.Get(id)); ok {
			out[id] = sc
		}
	}
	return out
}

// Position maps v linearly onto [-3, 3]: neutral is 0, best is +3 and worst
// is -3. Values beyond a reference point are clamped.
func Position(refs References, v float64) float64 {
	d := v - refs.Neutral
	if d == 0 {
		return 0
	}
	var t float64
	if d*(refs.Best-refs.Neutral) > 0 {
		t = MaxPosition * d / (refs.Best - refs.Neutral)
	} else {
		t = -MaxPosition * d / (refs.Worst - refs.Neutral)
	}
	return math.Max(-MaxPosition, math.Min(MaxPosition, t))
}
