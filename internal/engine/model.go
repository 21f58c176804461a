// Package engine is the computation engine: a directed graph of named
// financial metrics wired together by formulas over a multi-dimensional data
// space, with incremental recomputation when an input changes.
//
// A Model assumes single-writer access. Structural calls (DefineDimension,
// AddMetric, SetFormula, InitializeHorizon) must not run concurrently with an
// in-flight recompute; callers with concurrent writers serialize externally,
// for example with one compute worker per model id.
package engine

import (
	"context"
	"runtime"

	"github.com/vk/metricgrid/internal/ctxlog"
	"github.com/vk/metricgrid/internal/dag"
	"github.com/vk/metricgrid/internal/dimension"
	"github.com/vk/metricgrid/internal/formula"
	"github.com/vk/metricgrid/internal/registry"
	"github.com/vk/metricgrid/internal/telemetry"
	"github.com/vk/metricgrid/internal/tensor"
	"github.com/vk/metricgrid/internal/trace"
)

// Model is one independent model instance: dimension catalog, metric
// registry, dependency graph, per-metric tensors and compiled formulas, and
// the explainability log. All caches (notably the safe-identifier map) are
// instance-scoped, never process-wide.
type Model struct {
	catalog  *dimension.Catalog
	registry *registry.Registry
	graph    *dag.Graph
	idCache  *formula.IDCache

	formulas map[string]*formula.Compiled
	tensors  map[string]*tensor.Tensor

	traceLog *trace.Log
	metrics  *telemetry.Metrics

	horizon int
	workers int

	// validationOff suspends per-assignment cycle checks during bulk loading.
	// A full validation pass is required before the first recompute.
	validationOff bool
}

// Option configures a Model at construction time.
type Option func(*Model)

// WithWorkers bounds the worker pool evaluating one tier. Defaults to
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithTelemetry attaches Prometheus collectors. Without it the engine records
// nothing.
func WithTelemetry(t *telemetry.Metrics) Option {
	return func(m *Model) { m.metrics = t }
}

// WithTraceCapacity overrides the explainability ring size.
func WithTraceCapacity(n int) Option {
	return func(m *Model) { m.traceLog = trace.NewLog(n) }
}

// New returns an empty model.
func New(opts ...Option) *Model {
	m := &Model{
		catalog:  dimension.NewCatalog(),
		registry: registry.New(),
		graph:    dag.New(),
		idCache:  formula.NewIDCache(),
		formulas: make(map[string]*formula.Compiled),
		tensors:  make(map[string]*tensor.Tensor),
		traceLog: trace.NewLog(trace.DefaultCapacity),
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefineDimension registers a named axis with ordered members. Defining the
// same name again replaces the members and zero-resets the tensor of every
// metric declaring the dimension, since their shapes are no longer valid.
func (m *Model) DefineDimension(ctx context.Context, name string, members []string) error {
	redefined, err := m.catalog.Define(name, members)
	if err != nil {
		return configErrorf("define dimension: %v", err)
	}
	if !redefined || m.horizon == 0 {
		return nil
	}

	logger := ctxlog.FromContext(ctx)
	for _, id := range m.registry.IDs() {
		metric, _ := m.registry.Get(id)
		if !declaresDim(metric, name) {
			continue
		}
		if err := m.allocate(metric); err != nil {
			return err
		}
		logger.Warn("Dimension redefined; dependent tensor zero-reset.", "dimension", name, "metric", id)
	}
	return nil
}

// AddMetric registers a metric with its declared dimension subset. Dimensions
// that are not defined yet contribute a unit axis until they are. Re-adding
// an id updates its metadata; if the dimension list changed and a horizon is
// live, the tensor is reallocated zero-filled.
func (m *Model) AddMetric(ctx context.Context, id, name, category string, dims []string) error {
	prev, existed := m.registry.Get(id)
	var prevDims []string
	if existed {
		prevDims = prev.Dims
	}
	metric, err := m.registry.Add(id, name, category, dims)
	if err != nil {
		return configErrorf("add metric: %v", err)
	}
	m.graph.Ensure(id)

	if m.horizon == 0 {
		return nil
	}
	if _, ok := m.tensors[id]; ok && existed && sameDims(prevDims, dims) {
		return nil
	}
	return m.allocate(metric)
}

// SetFormula compiles the expression, replaces the metric's dependency edges,
// and re-validates the whole graph. A detected cycle rejects the assignment
// atomically: the graph and the previous formula are left unchanged and the
// returned CircularDependencyError carries the ordered cycle. Identifiers the
// expression references are auto-registered as placeholder inputs.
func (m *Model) SetFormula(ctx context.Context, id, expr string) error {
	logger := ctxlog.FromContext(ctx)

	compiled, err := formula.Compile(expr, m.idCache)
	if err != nil {
		return configErrorf("set formula for %q: %v", id, err)
	}

	target := m.registry.Ensure(id)
	for _, dep := range compiled.Deps {
		m.registry.Ensure(dep)
		m.graph.Ensure(dep)
	}

	previous := m.graph.ReplaceDependencies(id, compiled.Deps)
	if !m.validationOff {
		if cycle := m.graph.FindCycle(); cycle != nil {
			m.graph.ReplaceDependencies(id, previous)
			logger.Warn("Formula rejected: would create a cycle.", "metric", id, "cycle", cycle)
			return &CircularDependencyError{Cycle: cycle, Suggestion: cycleSuggestion}
		}
	}

	m.formulas[id] = compiled
	target.Calculated = true
	if m.horizon > 0 {
		if _, ok := m.tensors[id]; !ok {
			if err := m.allocate(target); err != nil {
				return err
			}
		}
	}
	logger.Debug("Formula assigned.", "metric", id, "deps", compiled.Deps)
	return nil
}

// SetValidation toggles per-assignment cycle checks. Disabling is meant for
// bulk loading only; re-enabling runs a full validation pass and fails with
// the detected cycle, leaving validation off, if the loaded graph is cyclic.
func (m *Model) SetValidation(enabled bool) error {
	if !enabled {
		m.validationOff = true
		return nil
	}
	if cycle := m.graph.FindCycle(); cycle != nil {
		return &CircularDependencyError{Cycle: cycle, Suggestion: cycleSuggestion}
	}
	m.validationOff = false
	return nil
}

// InitializeHorizon sets the time-axis length and reallocates every metric's
// tensor zero-filled. It must be called before UpdateInput or FullRecompute,
// and again whenever the horizon changes.
func (m *Model) InitializeHorizon(ctx context.Context, months int) error {
	if months <= 0 {
		return configErrorf("initialize horizon: months must be positive, got %d", months)
	}
	m.horizon = months
	for _, id := range m.registry.IDs() {
		metric, _ := m.registry.Get(id)
		if err := m.allocate(metric); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Debug("Horizon initialized; all tensors reallocated.",
		"months", months, "metrics", m.registry.Len())
	return nil
}

// Horizon returns the current time-axis length, 0 before initialization.
func (m *Model) Horizon() int { return m.horizon }

// allocate builds a fresh zero-filled tensor for the metric from its declared
// dims and the current horizon. Not-yet-defined dimensions get a unit axis.
func (m *Model) allocate(metric *registry.Metric) error {
	sizes := make([]int, len(metric.Dims))
	for i, d := range metric.Dims {
		sizes[i] = m.catalog.Size(d)
	}
	t, err := tensor.New(metric.Dims, sizes, m.horizon)
	if err != nil {
		return configErrorf("allocate tensor for %q: %v", metric.ID, err)
	}
	m.tensors[metric.ID] = t
	return nil
}

func declaresDim(metric *registry.Metric, dim string) bool {
	for _, d := range metric.Dims {
		if d == dim {
			return true
		}
	}
	return false
}

func sameDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
