package events

import (
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// PlanCompleted is published once per finished planning run.
type PlanCompleted struct {
	RunID    string
	Variant  string
	Result   model.PlanResult
	Duration time.Duration
}

// AnomalyDetected is published for each anomaly of a run.
type AnomalyDetected struct {
	RunID   string
	Anomaly model.Anomaly
}
