package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/washcrew/core/metrics"
	"github.com/kilianp07/washcrew/core/model"
)

// PromSink exposes the latest plan run as Prometheus metrics.
type PromSink struct {
	runs         prometheus.Counter
	tasks        *prometheus.GaugeVec
	sla          prometheus.Gauge
	utilization  prometheus.Gauge
	response     prometheus.Gauge
	availability prometheus.Gauge
	crewTasks    *prometheus.GaugeVec
	anomalies    *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewPromSink registers plan metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register registers c, or returns the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "washcrew_plan_runs_total",
		Help: "Number of completed planning runs",
	})); err != nil {
		return nil, err
	}
	if s.tasks, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "washcrew_plan_tasks",
		Help: "Tasks of the latest run by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.sla, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "washcrew_sla_compliance_percent",
		Help: "Share of assignments finished before their deadline in the latest run",
	})); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "washcrew_crew_utilization_percent",
		Help: "Share of on-shift crew time spent travelling or cleaning in the latest run",
	})); err != nil {
		return nil, err
	}
	if s.response, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "washcrew_emergency_response_minutes",
		Help: "Mean best-case emergency response of the latest run",
	})); err != nil {
		return nil, err
	}
	if s.availability, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "washcrew_emergency_availability_ratio",
		Help: "Fraction of sampled emergencies with at least one eligible crew",
	})); err != nil {
		return nil, err
	}
	if s.crewTasks, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "washcrew_crew_tasks",
		Help: "Tasks assigned to each crew in the latest run",
	}, []string{"crew_id"})); err != nil {
		return nil, err
	}
	if s.anomalies, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "washcrew_plan_anomalies_total",
		Help: "Skipped tasks and crews by anomaly kind",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "washcrew_plan_duration_seconds",
		Help:    "Wall time of planning runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"variant"})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordPlan updates the gauges to the run and counts it.
func (s *PromSink) RecordPlan(res model.PlanResult) error {
	m := res.Metrics
	s.runs.Inc()
	s.tasks.WithLabelValues("assigned").Set(float64(m.AssignedTasks))
	s.tasks.WithLabelValues("unassigned").Set(float64(m.UnassignedTasks))
	s.sla.Set(m.SLAComplianceRate)
	s.utilization.Set(m.CrewUtilization)
	s.response.Set(m.Responsiveness.AvgResponseMinutes)
	s.availability.Set(m.Responsiveness.AvailabilityRate)
	s.crewTasks.Reset()
	for id, p := range res.CrewPerformance {
		s.crewTasks.WithLabelValues(id).Set(float64(p.Tasks))
	}
	return nil
}

// RecordAnomalies counts anomalies by kind.
func (s *PromSink) RecordAnomalies(_ string, anomalies []model.Anomaly) error {
	for _, a := range anomalies {
		s.anomalies.WithLabelValues(string(a.Kind)).Inc()
	}
	return nil
}

// RecordRunDuration observes the run duration.
func (s *PromSink) RecordRunDuration(d coremetrics.RunDuration) error {
	s.duration.WithLabelValues(d.Variant).Observe(d.Duration.Seconds())
	return nil
}
