package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/projection"
	"github.com/sells-group/dealmachine/internal/registry"
)

func ptrFloat64(v float64) *float64 { return &v }

func TestPosition(t *testing.T) {
	t.Parallel()

	higher := References{Worst: 1.0, Neutral: 1.2, Best: 1.5}
	lower := References{Worst: 15, Neutral: 10, Best: 5}

	tests := []struct {
		name string
		refs References
		v    float64
		want float64
	}{
		{"neutral", higher, 1.2, 0},
		{"best", higher, 1.5, 3},
		{"worst", higher, 1.0, -3},
		{"halfway to best", higher, 1.35, 1.5},
		{"halfway to worst", higher, 1.1, -1.5},
		{"beyond best clamps", higher, 5.0, 3},
		{"beyond worst clamps", higher, -2, -3},
		{"lower is better best", lower, 5, 3},
		{"lower is better worst", lower, 15, -3},
		{"lower is better good side", lower, 8, 1.2},
		{"lower is better bad side", lower, 12.5, -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Position(tt.refs, tt.v), 1e-9)
		})
	}
}

func TestScore_DSCRPinsToBest(t *testing.T) {
	t.Parallel()

	s := Default()
	sc, ok := s.Score(projection.DSCR, projection.Val(5.0))
	require.True(t, ok)
	assert.Equal(t, 3, sc.Stop)
	assert.Equal(t, "best", sc.Label)
	assert.Equal(t, "#00FF00", sc.Color)
	assert.InDelta(t, 3.0, sc.Position, 1e-12)
}

func TestScore_Stops(t *testing.T) {
	t.Parallel()

	s := Default()
	tests := []struct {
		v     float64
		stop  int
		label string
		color string
	}{
		{0.0, -3, "worst", "#FF0000"},
		{0.04, -2, "bad", "#FF6666"},
		{0.05, -1, "mild-bad", "#FFCCCC"},
		{0.06, 0, "neutral", "#FFFFFF"},
		{0.0733, 1, "mild-good", "#CCFFCC"},
		{0.0867, 2, "good", "#66FF66"},
		{0.12, 3, "best", "#00FF00"},
	}
	for _, tt := range tests {
		sc, ok := s.Score(projection.CapRate, projection.Val(tt.v))
		require.True(t, ok)
		assert.Equal(t, tt.stop, sc.Stop, "cap rate %v", tt.v)
		assert.Equal(t, tt.label, sc.Label, "cap rate %v", tt.v)
		assert.Equal(t, tt.color, sc.Color, "cap rate %v", tt.v)
	}
}

func TestScore_Unscored(t *testing.T) {
	t.Parallel()

	s := Default()
	_, ok := s.Score(projection.DSCR, projection.NA())
	assert.False(t, ok, "N/A is unscored")

	_, ok = s.Score(projection.OpEx, projection.Val(30000))
	assert.False(t, ok, "opex has no gradient")
}

func TestScoreAll(t *testing.T) {
	t.Parallel()

	snap := model.NewSnapshot(map[model.FieldID]model.Field{
		registry.GrossScheduledIncome: {Value: model.Number(144000), Provenance: model.ProvenanceManual},
		registry.VacancyRate:          {Value: model.Number(0.05), Provenance: model.ProvenanceManual},
	})
	scores := Default().ScoreAll(projection.Evaluate(snap))

	require.Contains(t, scores, projection.GPI)
	require.Contains(t, scores, projection.VC)
	assert.Equal(t, 3, scores[projection.GPI].Stop)
	assert.Equal(t, -1, scores[projection.VC].Stop)
	assert.NotContains(t, scores, projection.OpEx, "opex is unscored")
	assert.NotContains(t, scores, projection.DSCR, "N/A metrics are skipped")
}

func TestValidateReferences(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateReferences(DefaultReferences()))

	err := ValidateReferences(map[projection.MetricID]References{
		projection.DSCR: {Worst: 1.0, Neutral: 1.6, Best: 1.5},
		projection.GRM:  {Worst: 15, Neutral: 15, Best: 5},
		projection.NOI:  {Worst: math.NaN(), Neutral: 0, Best: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scorer: config validation failed")
	assert.Contains(t, err.Error(), "dscr: neutral")
	assert.Contains(t, err.Error(), "grm: neutral")
	assert.Contains(t, err.Error(), "noi: reference points must be finite")
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	s, err := FromConfig(map[string]config.GradientConfig{
		"dscr": {Best: ptrFloat64(2.0)},
	})
	require.NoError(t, err)
	r, ok := s.References(projection.DSCR)
	require.True(t, ok)
	assert.Equal(t, References{Worst: 1.0, Neutral: 1.2, Best: 2.0}, r)

	sc, ok := s.Score(projection.DSCR, projection.Val(1.5))
	require.True(t, ok)
	assert.Equal(t, 1, sc.Stop)

	// New gradient for an unscored metric needs all three points.
	_, err = FromConfig(map[string]config.GradientConfig{"opex": {Best: ptrFloat64(1)}})
	require.Error(t, err)

	s, err = FromConfig(map[string]config.GradientConfig{
		"opex": {Worst: ptrFloat64(60000), Neutral: ptrFloat64(40000), Best: ptrFloat64(20000)},
	})
	require.NoError(t, err)
	_, ok = s.Score(projection.OpEx, projection.Val(30000))
	assert.True(t, ok)

	_, err = FromConfig(map[string]config.GradientConfig{"nope": {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown metric")

	_, err = FromConfig(map[string]config.GradientConfig{"dscr": {Neutral: ptrFloat64(1.9)}})
	require.Error(t, err)
}
