package model

import "time"

// CrewAssignment records one task handed to one crew. Published assignments
// are never mutated.
type CrewAssignment struct {
	TaskID          string    `json:"task_id"`
	CrewID          string    `json:"crew_id"`
	WashroomID      string    `json:"washroom_id"`
	Priority        Priority  `json:"priority"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	TravelMinutes   int       `json:"travel_minutes"`
	CleaningMinutes int       `json:"cleaning_minutes"`
	Score           float64   `json:"score"`
}

// ScheduleStatus is the activity of a crew during a schedule event.
type ScheduleStatus string

const (
	ScheduleTraveling ScheduleStatus = "traveling"
	ScheduleCleaning  ScheduleStatus = "cleaning"
	ScheduleIdle      ScheduleStatus = "idle"
)

// ScheduleEvent is a contiguous interval of one crew's timeline.
type ScheduleEvent struct {
	CrewID     string         `json:"crew_id"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	Status     ScheduleStatus `json:"status"`
	TaskID     string         `json:"task_id,omitempty"`
	WashroomID string         `json:"washroom_id,omitempty"`
}

// EmergencyResponsiveness summarizes how fast a hypothetical emergency
// would be serviced given the built schedule.
type EmergencyResponsiveness struct {
	AvgResponseMinutes float64 `json:"avg_response_minutes"`
	MinResponseMinutes float64 `json:"min_response_minutes"`
	MaxResponseMinutes float64 `json:"max_response_minutes"`
	// AvailabilityRate is the fraction of samples with at least one eligible crew.
	AvailabilityRate  float64 `json:"availability_rate"`
	AvgCrewAvailable  float64 `json:"avg_crew_available"`
	Samples           int     `json:"samples"`
	SuccessfulSamples int     `json:"successful_samples"`
}

// OptimizationMetrics are the service metrics derived from one run.
type OptimizationMetrics struct {
	TotalTasks           int                     `json:"total_tasks"`
	AssignedTasks        int                     `json:"assigned_tasks"`
	UnassignedTasks      int                     `json:"unassigned_tasks"`
	SLAComplianceRate    float64                 `json:"sla_compliance_rate"`
	AvgResponseMinutes   float64                 `json:"avg_response_minutes"`
	CrewUtilization      float64                 `json:"crew_utilization"`
	TotalTravelMinutes   int                     `json:"total_travel_minutes"`
	HeadwayViolations    int                     `json:"headway_violations"`
	EmergencySLABreaches int                     `json:"emergency_sla_breaches"`
	LaborCost            float64                 `json:"labor_cost"`
	OvertimeCost         float64                 `json:"overtime_cost"`
	Responsiveness       EmergencyResponsiveness `json:"responsiveness"`
}

// TypeSummary counts tasks of a single type.
type TypeSummary struct {
	Total          int     `json:"total"`
	Assigned       int     `json:"assigned"`
	CompletionRate float64 `json:"completion_rate"`
}

// TaskSummary counts tasks by outcome and type.
type TaskSummary struct {
	Total          int                      `json:"total"`
	Assigned       int                      `json:"assigned"`
	Unassigned     int                      `json:"unassigned"`
	CompletionRate float64                  `json:"completion_rate"`
	ByType         map[TaskType]TypeSummary `json:"by_type"`
}

// CrewPerformance reports the workload of one crew member.
type CrewPerformance struct {
	CrewID          string  `json:"crew_id"`
	Tasks           int     `json:"tasks"`
	EmergencyTasks  int     `json:"emergency_tasks"`
	WorkedMinutes   int     `json:"worked_minutes"`
	TravelMinutes   int     `json:"travel_minutes"`
	AvgTaskMinutes  float64 `json:"avg_task_minutes"`
	UtilizationRate float64 `json:"utilization_rate"`
}

// AnomalyKind classifies a recoverable inconsistency met during a run.
type AnomalyKind string

const (
	// AnomalyLocationUnresolved means a crew location matches no washroom.
	AnomalyLocationUnresolved AnomalyKind = "location_unresolved"
	// AnomalyUnknownWashroom means a task references a missing washroom.
	AnomalyUnknownWashroom AnomalyKind = "unknown_washroom"
)

// Anomaly is a skipped candidate that was not silently dropped.
type Anomaly struct {
	Kind       AnomalyKind `json:"kind"`
	CrewID     string      `json:"crew_id,omitempty"`
	TaskID     string      `json:"task_id,omitempty"`
	WashroomID string      `json:"washroom_id,omitempty"`
	At         time.Time   `json:"at"`
}

// PlanResult is everything one optimization run hands to its consumers.
type PlanResult struct {
	RunID           string                     `json:"run_id"`
	Start           time.Time                  `json:"start"`
	HorizonHours    float64                    `json:"horizon_hours"`
	Assignments     []CrewAssignment           `json:"assignments"`
	Metrics         OptimizationMetrics        `json:"metrics"`
	TaskSummary     TaskSummary                `json:"task_summary"`
	CrewSchedules   map[string][]ScheduleEvent `json:"crew_schedules"`
	CrewPerformance map[string]CrewPerformance `json:"crew_performance"`
	Anomalies       []Anomaly                  `json:"anomalies,omitempty"`
}
