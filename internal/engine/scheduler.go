package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/metricgrid/internal/ctxlog"
	"github.com/vk/metricgrid/internal/registry"
	"github.com/vk/metricgrid/internal/tensor"
)

// batchPhase tracks a recompute batch through its lifecycle:
// Idle -> AffectedSetComputed -> Tiered -> Evaluating -> Done|PartialFailure.
type batchPhase int

const (
	phaseIdle batchPhase = iota
	phaseAffectedSetComputed
	phaseTiered
	phaseEvaluating
	phaseDone
	phasePartialFailure
)

func (p batchPhase) String() string {
	switch p {
	case phaseIdle:
		return "Idle"
	case phaseAffectedSetComputed:
		return "AffectedSetComputed"
	case phaseTiered:
		return "Tiered"
	case phaseEvaluating:
		return "Evaluating"
	case phaseDone:
		return "Done"
	case phasePartialFailure:
		return "PartialFailure"
	}
	return "Unknown"
}

// InputValue is one coordinate-scoped write: the value lands at the member
// index of every dimension named in Coords and the given month's time index.
// A dimension the metric declares but Coords omits broadcasts the write
// across that whole axis.
type InputValue struct {
	Month  int
	Coords map[string]string
	Value  float64
}

// UpdateInput writes the given values into the metric's tensor and
// incrementally recomputes everything downstream. It returns the affected
// node ids (formula-bearing descendants of the changed metric) in evaluation
// order; an input with no dependents returns an empty list and leaves no
// trace entry. Months outside the horizon are ignored best-effort.
func (m *Model) UpdateInput(ctx context.Context, id string, values []InputValue, actor string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	if m.horizon == 0 {
		return nil, configErrorf("update input: horizon not initialized")
	}
	if m.validationOff {
		return nil, configErrorf("update input: validation is disabled; re-enable it before recomputing")
	}
	metric, ok := m.registry.Get(id)
	if !ok {
		return nil, configErrorf("update input: unknown metric %q", id)
	}
	t, ok := m.tensors[id]
	if !ok {
		if err := m.allocate(metric); err != nil {
			return nil, err
		}
		t = m.tensors[id]
	}

	for _, v := range values {
		if v.Month < 0 || v.Month >= m.horizon {
			logger.Debug("Ignoring write outside horizon.", "metric", id, "month", v.Month)
			continue
		}
		fixed, err := m.resolveCoords(metric, v.Coords)
		if err != nil {
			return nil, err
		}
		if err := t.SetScoped(fixed, v.Month, v.Value); err != nil {
			return nil, configErrorf("update input for %q: %v", id, err)
		}
	}

	return m.recomputeFrom(ctx, id, actor)
}

// FullRecompute evaluates every formula-bearing metric over the entire
// topological order. Used after bulk loading and after horizon changes.
func (m *Model) FullRecompute(ctx context.Context) error {
	if m.horizon == 0 {
		return configErrorf("full recompute: horizon not initialized")
	}
	if m.validationOff {
		return configErrorf("full recompute: validation is disabled; re-enable it before recomputing")
	}

	affected := make(map[string]bool, len(m.formulas))
	for id := range m.formulas {
		affected[id] = true
	}
	_, err := m.runBatch(ctx, "", "system", affected)
	return err
}

// recomputeFrom computes the affected set of a changed node and runs one
// batch over it. Pure inputs are never recomputed; an empty affected set
// short-circuits without a trace entry.
func (m *Model) recomputeFrom(ctx context.Context, trigger, actor string) ([]string, error) {
	affected := make(map[string]bool)
	for _, id := range m.graph.Descendants(trigger) {
		if _, hasFormula := m.formulas[id]; hasFormula {
			affected[id] = true
		}
	}
	if len(affected) == 0 {
		ctxlog.FromContext(ctx).Debug("No formula-bearing descendants; nothing to recompute.", "trigger", trigger)
		return []string{}, nil
	}
	return m.runBatch(ctx, trigger, actor, affected)
}

// runBatch drives one recompute batch: tier the affected set by generation,
// evaluate each tier as a concurrent wave on the bounded worker pool, then
// append one trace entry. A failing node is zeroed and logged but never
// aborts the batch.
func (m *Model) runBatch(ctx context.Context, trigger, actor string, affected map[string]bool) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	started := time.Now()

	phase := phaseAffectedSetComputed
	logger.Debug("Batch phase.", "phase", phase.String(), "affected", len(affected))

	tiers := m.graph.Levels(affected)
	phase = phaseTiered
	logger.Debug("Batch phase.", "phase", phase.String(), "tiers", len(tiers))

	// Pre-allocate every tensor the batch will touch while still
	// single-threaded; workers never mutate the tensor map.
	ordered := make([]string, 0, len(affected))
	for _, tier := range tiers {
		for _, id := range tier {
			ordered = append(ordered, id)
			if _, ok := m.tensors[id]; !ok {
				metric, _ := m.registry.Get(id)
				if err := m.allocate(metric); err != nil {
					return nil, err
				}
			}
		}
	}

	phase = phaseEvaluating
	logger.Debug("Batch phase.", "phase", phase.String())

	var mu sync.Mutex
	var failed []string
	for _, tier := range tiers {
		g := new(errgroup.Group)
		g.SetLimit(m.workers)
		for _, id := range tier {
			id := id
			g.Go(func() error {
				if err := m.evaluateNode(ctx, id); err != nil {
					logger.Error("Node evaluation failed; tensor zeroed.", "metric", id, "error", err)
					m.tensors[id].Zero()
					m.metrics.RecordEvaluation(false)
					mu.Lock()
					failed = append(failed, id)
					mu.Unlock()
					return nil
				}
				m.metrics.RecordEvaluation(true)
				return nil
			})
		}
		// The only blocking point: the whole wave must land before the next
		// tier may read its outputs.
		g.Wait()
	}

	phase = phaseDone
	result := "done"
	if len(failed) > 0 {
		phase = phasePartialFailure
		result = "partial_failure"
	}
	elapsed := time.Since(started)
	m.metrics.RecordBatch(result, elapsed.Seconds(), len(ordered))
	entry := m.traceLog.Append(trigger, actor, ordered, elapsed)
	logger.Info("Recompute batch finished.",
		"phase", phase.String(), "trigger", trigger, "affected", len(ordered),
		"failed", len(failed), "duration", elapsed, "trace_id", entry.ID)
	return ordered, nil
}

// evaluateNode gathers and aligns the node's dependency tensors, invokes the
// compiled formula, and stores the result. Panics in formula math are
// recovered into ordinary errors so one bad node cannot take down the wave.
func (m *Model) evaluateNode(ctx context.Context, id string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating %q: %v", id, r)
		}
	}()

	compiled := m.formulas[id]
	target := m.tensors[id]
	n := target.Len()

	args := make([][]float64, len(compiled.Deps))
	for i, depID := range compiled.Deps {
		depTensor, ok := m.tensors[depID]
		if !ok {
			// A metric with no tensor yet reads as all-zero.
			args[i] = make([]float64, n)
			continue
		}
		aligned, err := tensor.Align(depTensor, target)
		if err != nil {
			return fmt.Errorf("aligning dependency %q: %w", depID, err)
		}
		args[i] = aligned
	}

	out, err := compiled.Eval(args, n)
	if err != nil {
		return err
	}
	return target.Store(out)
}

// resolveCoords maps dimension-name→member coordinates onto the metric's axis
// positions. Naming a dimension the metric does not declare, or a member the
// catalog does not know, is a ConfigurationError.
func (m *Model) resolveCoords(metric *registry.Metric, coords map[string]string) (map[int]int, error) {
	fixed := make(map[int]int, len(coords))
	for dimName, member := range coords {
		axis := -1
		for i, d := range metric.Dims {
			if d == dimName {
				axis = i
				break
			}
		}
		if axis < 0 {
			return nil, configErrorf("metric %q does not vary over dimension %q", metric.ID, dimName)
		}
		dim, ok := m.catalog.Get(dimName)
		if !ok {
			return nil, configErrorf("dimension %q is not defined", dimName)
		}
		idx, ok := dim.Index(member)
		if !ok {
			return nil, configErrorf("dimension %q has no member %q", dimName, member)
		}
		fixed[axis] = idx
	}
	return fixed, nil
}
