// Package projection derives investment metrics from a field snapshot. The
// metric set is a fixed acyclic graph evaluated in dependency order; missing
// inputs yield N/A rather than errors.
package projection

import (
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine/internal/model"
)

// MetricID identifies a derived metric.
type MetricID string

// Unit describes how a metric is displayed.
type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitPercent  Unit = "percent" // stored as a fraction
	UnitRatio    Unit = "ratio"
)

// Metric is one node of the calculation graph.
type Metric struct {
	ID     MetricID
	Name   string
	Unit   Unit
	Deps   []MetricID
	Inputs []model.FieldID

	compute func(e *env) Result
}

// Graph is a validated, topologically ordered metric set.
type Graph struct {
	metrics map[MetricID]Metric
	order   []MetricID
}

// NewGraph validates metrics and computes their evaluation order with Kahn's
// algorithm. Ties are broken by declaration order so the order is stable.
func NewGraph(metrics []Metric) (*Graph, error) {
	g := &Graph{metrics: make(map[MetricID]Metric, len(metrics))}
	pos := make(map[MetricID]int, len(metrics))
	for i, m := range metrics {
		if m.ID == "" {
			return nil, eris.Errorf("projection: metric %d has no id", i)
		}
		if _, dup := g.metrics[m.ID]; dup {
			return nil, eris.Errorf("projection: duplicate metric %q", m.ID)
		}
		if m.compute == nil {
			return nil, eris.Errorf("projection: metric %q has no formula", m.ID)
		}
		g.metrics[m.ID] = m
		pos[m.ID] = i
	}

	indegree := make(map[MetricID]int, len(metrics))
	dependents := make(map[MetricID][]MetricID)
	for _, m := range metrics {
		for _, d := range m.Deps {
			if _, ok := g.metrics[d]; !ok {
				return nil, eris.Errorf("projection: metric %q depends on unknown metric %q", m.ID, d)
			}
			indegree[m.ID]++
			dependents[d] = append(dependents[d], m.ID)
		}
	}

	var ready []MetricID
	for _, m := range metrics {
		if indegree[m.ID] == 0 {
			ready = append(ready, m.ID)
		}
	}
	for len(ready) > 0 {
		// Take the earliest declared ready metric.
		best := 0
		for i := range ready {
			if pos[ready[i]] < pos[ready[best]] {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		g.order = append(g.order, id)

		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(g.order) != len(metrics) {
		return nil, eris.New("projection: metric dependencies contain a cycle")
	}
	return g, nil
}

// Order returns the evaluation order.
func (g *Graph) Order() []MetricID {
	out := make([]MetricID, len(g.order))
	copy(out, g.order)
	return out
}

// Metric returns the definition of id.
func (g *Graph) Metric(id MetricID) (Metric, bool) {
	m, ok := g.metrics[id]
	return m, ok
}

// Evaluate recomputes every metric from snap. Any metric whose dependency is
// N/A is N/A. Evaluate holds no state between calls.
func (g *Graph) Evaluate(snap model.Snapshot) Results {
	e := &env{snap: snap, results: make(map[MetricID]Result, len(g.order))}
	for _, id := range g.order {
		m := g.metrics[id]
		r := NA()
		if e.depsValid(m.Deps) {
			r = m.compute(e)
		}
		e.results[id] = r
	}
	return Results{order: g.Order(), values: e.results}
}

var (
	defaultOnce  sync.Once
	defaultGraph *Graph
	defaultErr   error
)

// Default returns the standard metric graph.
func Default() *Graph {
	defaultOnce.Do(func() {
		defaultGraph, defaultErr = NewGraph(standardMetrics())
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultGraph
}

// Evaluate runs the standard graph over snap.
func Evaluate(snap model.Snapshot) Results {
	return Default().Evaluate(snap)
}

// Results holds one evaluation, in graph order.
type Results struct {
	order  []MetricID
	values map[MetricID]Result
}

// Get returns the result of id; unknown ids are N/A.
func (r Results) Get(id MetricID) Result {
	return r.values[id]
}

// IDs returns metric ids in evaluation order.
func (r Results) IDs() []MetricID {
	out := make([]MetricID, len(r.order))
	copy(out, r.order)
	return out
}

// Map returns the results keyed by id, with nil for N/A.
func (r Results) Map() map[string]*float64 {
	out := make(map[string]*float64, len(r.values))
	for _, id := range r.order {
		out[string(id)] = r.values[id].Ptr()
	}
	return out
}

type env struct {
	snap    model.Snapshot
	results map[MetricID]Result
}

func (e *env) depsValid(deps []MetricID) bool {
	for _, d := range deps {
		if !e.results[d].Valid() {
			return false
		}
	}
	return true
}

// field is a required input: absent is N/A.
func (e *env) field(id model.FieldID) Result {
	f, ok := e.snap.Number(id)
	if !ok {
		return NA()
	}
	return Val(f)
}

// optional is an input that counts as zero when absent.
func (e *env) optional(id model.FieldID) Result {
	return e.field(id).Or(Val(0))
}

func (e *env) metric(id MetricID) Result {
	return e.results[id]
}
