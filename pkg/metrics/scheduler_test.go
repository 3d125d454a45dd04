package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSchedulerMetricsObserveJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)

	m.ObserveJob("reorder-sweep", 120*time.Millisecond, nil)
	m.ObserveJob("reorder-sweep", 80*time.Millisecond, errors.New("db down"))
	m.ObserveJob("", time.Millisecond, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reorder-sweep", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reorder-sweep", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "success")))
	require.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("reorder-sweep")), 0.0)
	require.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestSchedulerMetricsSkippedCycles(t *testing.T) {
	m := NewSchedulerMetrics(prometheus.NewRegistry())
	m.IncSkippedCycle()
	m.IncSkippedCycle()
	require.Equal(t, 2.0, testutil.ToFloat64(m.skipped))
}

func TestSchedulerMetricsNilSafe(t *testing.T) {
	var m *SchedulerMetrics
	m.ObserveJob("job", time.Second, nil)
	m.IncSkippedCycle()

	unregistered := NewSchedulerMetrics(nil)
	unregistered.ObserveJob("job", time.Second, errors.New("x"))
	unregistered.IncSkippedCycle()
}
