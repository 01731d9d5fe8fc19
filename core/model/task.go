package model

import "time"

// TaskType classifies the work a task requires.
type TaskType string

const (
	TaskRoutine    TaskType = "routine"
	TaskEmergency  TaskType = "emergency"
	TaskInspection TaskType = "inspection"
	TaskRefill     TaskType = "refill"
)

// TaskTypes lists every task type in reporting order.
var TaskTypes = []TaskType{TaskRoutine, TaskEmergency, TaskInspection, TaskRefill}

// Priority orders tasks competing for the same crew.
type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// Rank returns a sortable weight, higher is more urgent. Unknown values rank
// as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityEmergency:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}

// Task is a unit of cleaning work, either from the external backlog or
// generated by the routine scheduler.
type Task struct {
	ID               string     `json:"id" yaml:"id"`
	WashroomID       string     `json:"washroom_id" yaml:"washroom_id"`
	Type             TaskType   `json:"type" yaml:"type"`
	Priority         Priority   `json:"priority" yaml:"priority"`
	EstimatedMinutes int        `json:"estimated_minutes" yaml:"estimated_minutes"`
	RequiredAt       time.Time  `json:"required_at" yaml:"required_at"`
	Deadline         *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	CreatedAt        time.Time  `json:"created_at" yaml:"created_at"`
	AssignedCrew     string     `json:"assigned_crew,omitempty" yaml:"assigned_crew,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Duration returns the estimated cleaning duration.
func (t Task) Duration() time.Duration {
	return time.Duration(t.EstimatedMinutes) * time.Minute
}

// Assigned reports whether a crew already took the task.
func (t Task) Assigned() bool { return t.AssignedCrew != "" }

// CleaningRequirement is the number of cleanings a washroom needs over the
// planning horizon.
type CleaningRequirement struct {
	WashroomID   string `json:"washroom_id"`
	NumCleanings int    `json:"num_cleanings"`
	// FrequencyHours spaces the cleanings; zero spreads them evenly.
	FrequencyHours float64 `json:"frequency_hours,omitempty"`
}
