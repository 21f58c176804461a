// Package telemetry holds the Prometheus collectors for the computation
// engine. Evaluation errors are recovered per node and never surface to the
// caller, so these counters are the primary way to observe them.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates every engine collector. A nil *Metrics is valid and all
// record methods become no-ops, so library embedders that do not scrape pay
// nothing.
type Metrics struct {
	BatchesTotal    *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
	AffectedNodes   prometheus.Histogram
	NodeEvaluations *prometheus.CounterVec
}

// New builds the collectors and registers them on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metricgrid_recompute_batches_total",
				Help: "Recompute batches by terminal state (done or partial_failure).",
			},
			[]string{"result"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "metricgrid_recompute_batch_duration_seconds",
				Help:    "Wall time of one recompute batch.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		AffectedNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "metricgrid_recompute_affected_nodes",
				Help:    "Size of the affected set per recompute batch.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
		),
		NodeEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metricgrid_node_evaluations_total",
				Help: "Per-node formula evaluations by result (ok or error).",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.BatchesTotal, m.BatchDuration, m.AffectedNodes, m.NodeEvaluations)
	}
	return m
}

// RecordBatch observes one finished batch.
func (m *Metrics) RecordBatch(result string, seconds float64, affected int) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(result).Inc()
	m.BatchDuration.Observe(seconds)
	m.AffectedNodes.Observe(float64(affected))
}

// RecordEvaluation observes one node evaluation.
func (m *Metrics) RecordEvaluation(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.NodeEvaluations.WithLabelValues(result).Inc()
}
