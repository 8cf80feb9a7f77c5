package projection

import (
	"encoding/json"
	"math"
)

// Result is a metric value or N/A. The zero Result is N/A.
type Result struct {
	v  float64
	ok bool
}

// Val wraps f. NaN and infinities become N/A.
func Val(f float64) Result {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Result{}
	}
	return Result{v: f, ok: true}
}

// NA is the missing-data sentinel.
func NA() Result { return Result{} }

// Valid reports whether r carries a value.
func (r Result) Valid() bool { return r.ok }

// Float returns the value and whether it is defined.
func (r Result) Float() (float64, bool) { return r.v, r.ok }

// Ptr returns a pointer to the value, or nil for N/A.
func (r Result) Ptr() *float64 {
	if !r.ok {
		return nil
	}
	v := r.v
	return &v
}

// Add returns r + o.
func (r Result) Add(o Result) Result {
	if !r.ok || !o.ok {
		return NA()
	}
	return Val(r.v + o.v)
}

// Sub returns r - o.
func (r Result) Sub(o Result) Result {
	if !r.ok || !o.ok {
		return NA()
	}
	return Val(r.v - o.v)
}

// Mul returns r * o.
func (r Result) Mul(o Result) Result {
	if !r.ok || !o.ok {
		return NA()
	}
	return Val(r.v * o.v)
}

// Div returns r / o; a zero denominator is N/A.
func (r Result) Div(o Result) Result {
	if !r.ok || !o.ok || o.v == 0 {
		return NA()
	}
	return Val(r.v / o.v)
}

// Positive returns r when it is strictly positive, N/A otherwise.
func (r Result) Positive() Result {
	if !r.ok || r.v <= 0 {
		return NA()
	}
	return r
}

// Or returns r when defined, otherwise fallback.
func (r Result) Or(fallback Result) Result {
	if r.ok {
		return r
	}
	return fallback
}

// Sum adds rs, short-circuiting to N/A on the first N/A.
func Sum(rs ...Result) Result {
	total := 0.0
	for _, r := range rs {
		if !r.ok {
			return NA()
		}
		total += r.v
	}
	return Val(total)
}

// MarshalJSON encodes N/A as null.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.ok {
		return []byte("null"), nil
	}
	return json.Marshal(r.v)
}

func (r Result) String() string {
	if !r.ok {
		return "N/A"
	}
	b, _ := json.Marshal(r.v)
	return string(b)
}
