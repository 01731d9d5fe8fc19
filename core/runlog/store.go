// Package runlog persists a summary of every planning run so runs can be
// compared and audited later.
package runlog

import (
	"context"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// Record is the persisted summary of one planning run.
type Record struct {
	RunID        string                    `json:"run_id"`
	Timestamp    time.Time                 `json:"timestamp"`
	Variant      string                    `json:"variant,omitempty"`
	Start        time.Time                 `json:"start"`
	HorizonHours float64                   `json:"horizon_hours"`
	Metrics      model.OptimizationMetrics `json:"metrics"`
	Assignments  []model.CrewAssignment    `json:"assignments"`
	Anomalies    []model.Anomaly           `json:"anomalies,omitempty"`
}

// NewRecord summarizes res as recorded at ts.
func NewRecord(res model.PlanResult, variant string, ts time.Time) Record {
	return Record{
		RunID:        res.RunID,
		Timestamp:    ts,
		Variant:      variant,
		Start:        res.Start,
		HorizonHours: res.HorizonHours,
		Metrics:      res.Metrics,
		Assignments:  res.Assignments,
		Anomalies:    res.Anomalies,
	}
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start   time.Time
	End     time.Time
	RunID   string
	Variant string
	// CrewID keeps runs that assigned at least one task to the crew.
	CrewID string
}

// Store persists run records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Variant != "" && r.Variant != q.Variant {
		return false
	}
	if q.CrewID == "" {
		return true
	}
	for _, a := range r.Assignments {
		if a.CrewID == q.CrewID {
			return true
		}
	}
	return false
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
