package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBatch("done", 0.01, 5)
		m.RecordEvaluation(true)
		m.RecordEvaluation(false)
	})
}

func TestRecordBatchCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordBatch("done", 0.002, 3)
	m.RecordBatch("done", 0.004, 7)
	m.RecordBatch("partial_failure", 0.1, 100)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("partial_failure")))
}

func TestRecordEvaluationLabels(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEvaluation(true)
	m.RecordEvaluation(true)
	m.RecordEvaluation(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeEvaluations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodeEvaluations.WithLabelValues("error")))
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
