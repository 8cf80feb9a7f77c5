// Package scorer places metric values on a seven-stop gradient between a
// worst and a best reference point.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/projection"
)

// References are the reference points of one metric. Lower-is-better
// metrics have Worst greater than Best.
type References struct {
	Worst   float64 `json:"worst" yaml:"worst"`
	Neutral float64 `json:"neutral" yaml:"neutral"`
	Best    float64 `json:"best" yaml:"best"`
}

// DefaultReferences returns the built-in reference points. Metrics without
// an entry (opex, loan_principal, cash_invested) are unscored.
func DefaultReferences() map[projection.MetricID]References {
	return map[projection.MetricID]References{
		projection.GPI:         {Worst: 0, Neutral: 50_000, Best: 150_000},
		projection.VC:          {Worst: 15_000, Neutral: 5_000, Best: 0},
		projection.EGI:         {Worst: 0, Neutral: 45_000, Best: 140_000},
		projection.NOI:         {Worst: -10_000, Neutral: 30_000, Best: 100_000},
		projection.CapRate:     {Worst: 0.03, Neutral: 0.06, Best: 0.10},
		projection.DebtService: {Worst: 80_000, Neutral: 40_000, Best: 10_000},
		projection.CFBT:        {Worst: -20_000, Neutral: 0, Best: 20_000},
		projection.CoC:         {Worst: -0.10, Neutral: 0.05, Best: 0.20},
		projection.GRM:         {Worst: 15, Neutral: 10, Best: 5},
		projection.DSCR:        {Worst: 1.0, Neutral: 1.2, Best: 1.5},
	}
}

// ValidateReferences checks that every metric's neutral point lies strictly
// between its worst and best points.
func ValidateReferences(refs map[projection.MetricID]References) error {
	var errs []string

	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := refs[projection.MetricID(id)]
		if !finite(r.Worst) || !finite(r.Neutral) || !finite(r.Best) {
			errs = append(errs, fmt.Sprintf("%s: reference points must be finite", id))
			continue
		}
		lo, hi := math.Min(r.Worst, r.Best), math.Max(r.Worst, r.Best)
		if r.Neutral <= lo || r.Neutral >= hi {
			errs = append(errs, fmt.Sprintf("%s: neutral (%g) must lie strictly between worst (%g) and best (%g)",
				id, r.Neutral, r.Worst, r.Best))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MergeConfig applies gradient overrides from configuration on top of base.
// Unset points keep the base value; unknown metrics are rejected.
func MergeConfig(base map[projection.MetricID]References, overrides map[string]config.GradientConfig) (map[projection.MetricID]References, error) {
	out := make(map[projection.MetricID]References, len(base))
	for id, r := range base {
		out[id] = r
	}

	known := make(map[projection.MetricID]bool)
	for _, id := range projection.Default().Order() {
		known[id] = true
	}

	for key, o := range overrides {
		id := projection.MetricID(strings.ToLower(key))
		if !known[id] {
			return nil, eris.Errorf("scorer: gradient override for unknown metric %q", key)
		}
		r, ok := out[id]
		if !ok && (o.Worst == nil || o.Neutral == nil || o.Best == nil) {
			return nil, eris.Errorf("scorer: metric %q has no built-in gradient, all three points are required", key)
		}
		if o.Worst != nil {
			r.Worst = *o.Worst
		}
		if o.Neutral != nil {
			r.Neutral = *o.Neutral
		}
		if o.Best != nil {
			r.Best = *o.Best
		}
		out[id] = r
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
