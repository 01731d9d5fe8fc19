package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/washcrew/core/metrics"
	"github.com/kilianp07/washcrew/core/model"
)

func TestPromSink_RecordPlan(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	res := model.PlanResult{
		Metrics: model.OptimizationMetrics{
			AssignedTasks: 10, UnassignedTasks: 2, SLAComplianceRate: 90, CrewUtilization: 40,
			Responsiveness: model.EmergencyResponsiveness{AvgResponseMinutes: 28, AvailabilityRate: 0.5},
		},
		CrewPerformance: map[string]model.CrewPerformance{"c1": {Tasks: 7}, "c2": {Tasks: 3}},
	}
	require.NoError(t, sink.RecordPlan(res))
	require.NoError(t, sink.RecordPlan(res))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.runs))
	assert.Equal(t, 10.0, testutil.ToFloat64(sink.tasks.WithLabelValues("assigned")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.tasks.WithLabelValues("unassigned")))
	assert.Equal(t, 90.0, testutil.ToFloat64(sink.sla))
	assert.Equal(t, 40.0, testutil.ToFloat64(sink.utilization))
	assert.Equal(t, 28.0, testutil.ToFloat64(sink.response))
	assert.Equal(t, 0.5, testutil.ToFloat64(sink.availability))
	assert.Equal(t, 7.0, testutil.ToFloat64(sink.crewTasks.WithLabelValues("c1")))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.crewTasks))
}

func TestPromSink_AnomaliesAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordAnomalies("r", []model.Anomaly{
		{Kind: model.AnomalyUnknownWashroom},
		{Kind: model.AnomalyUnknownWashroom},
		{Kind: model.AnomalyLocationUnresolved},
	}))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.anomalies.WithLabelValues("unknown_washroom")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.anomalies.WithLabelValues("location_unresolved")))

	require.NoError(t, sink.RecordRunDuration(coremetrics.RunDuration{Variant: "default", Duration: 20 * time.Millisecond}))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.duration))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordPlan(model.PlanResult{}))
	require.NoError(t, second.RecordPlan(model.PlanResult{}))
	assert.Equal(t, 2.0, testutil.ToFloat64(first.runs))
}
