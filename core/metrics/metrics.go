package metrics

import (
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// PlanSink records the outcome of a planning run.
type PlanSink interface {
	RecordPlan(res model.PlanResult) error
}

// AnomalyRecorder records the anomalies met during a run.
type AnomalyRecorder interface {
	RecordAnomalies(runID string, anomalies []model.Anomaly) error
}

// RunDuration is the wall time spent by one run.
type RunDuration struct {
	RunID    string
	Variant  string
	Duration time.Duration
}

// RunDurationRecorder records how long runs take.
type RunDurationRecorder interface {
	RecordRunDuration(d RunDuration) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlan(model.PlanResult) error             { return nil }
func (NopSink) RecordAnomalies(string, []model.Anomaly) error { return nil }
func (NopSink) RecordRunDuration(RunDuration) error           { return nil }

// MultiSink fans runs out to multiple sinks.
type MultiSink struct {
	Sinks []PlanSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...PlanSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards the run to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPlan(res model.PlanResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlan(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordAnomalies forwards anomalies to the sinks supporting them.
func (m *MultiSink) RecordAnomalies(runID string, anomalies []model.Anomaly) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AnomalyRecorder); ok {
			if err := rec.RecordAnomalies(runID, anomalies); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRunDuration forwards durations to the sinks supporting them.
func (m *MultiSink) RecordRunDuration(d RunDuration) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunDurationRecorder); ok {
			if err := rec.RecordRunDuration(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Closer is implemented by sinks holding a connection.
type Closer interface {
	Close()
}

// Close releases s when it holds resources.
func Close(s PlanSink) {
	if c, ok := s.(Closer); ok {
		c.Close()
	}
}

// Close releases every sink.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		Close(s)
	}
}
