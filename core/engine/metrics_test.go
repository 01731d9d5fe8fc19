package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/washcrew/core/model"
)

func TestBuildMetricsEmpty(t *testing.T) {
	in := Input{Start: day, HorizonHours: 24}
	m := BuildMetrics(in, Result{}, DefaultCost())
	assert.Equal(t, 100.0, m.SLAComplianceRate)
	assert.Zero(t, m.CrewUtilization)
	assert.Zero(t, m.AvgResponseMinutes)
	assert.Zero(t, m.TotalTasks)
}

func TestBuildMetrics(t *testing.T) {
	in := Input{
		Start:        day,
		HorizonHours: 24,
		Washrooms:    []model.Washroom{{ID: "w1", SLA: model.SLA{EmergencyResponseMinutes: 20}}},
		Crews: []model.Crew{{
			ID: "c1", Home: "w1", HourlyRate: 60,
			Shift: model.Shift{Start: clock(0, 0), End: clock(10, 0)},
		}},
		Tasks: []model.Task{
			task("r1", "w1", model.PriorityNormal, clock(1, 0)),
			task("e1", "w1", model.PriorityEmergency, clock(2, 0)),
			task("late", "w1", model.PriorityNormal, clock(11, 0)),
		},
	}
	res := New(DefaultOptions(), nil).Run(in)
	require.Len(t, res.Assignments, 2)

	m := BuildMetrics(in, res, DefaultCost())
	assert.Equal(t, 3, m.TotalTasks)
	assert.Equal(t, 2, m.AssignedTasks)
	assert.Equal(t, 1, m.UnassignedTasks)
	assert.Equal(t, 100.0, m.SLAComplianceRate)
	assert.Zero(t, m.AvgResponseMinutes)
	assert.Zero(t, m.EmergencySLABreaches)
	assert.InDelta(t, 30.0/600*100, m.CrewUtilization, 1e-9)
	assert.InDelta(t, 30.0, m.LaborCost, 1e-9)
	assert.Zero(t, m.OvertimeCost)

	summary := BuildTaskSummary(res.Tasks)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Unassigned)
	assert.InDelta(t, 200.0/3, summary.CompletionRate, 1e-9)
	assert.Equal(t, 3, summary.ByType[model.TaskRoutine].Total)

	perf := BuildCrewPerformance(in, res.Assignments)
	assert.Equal(t, 2, perf["c1"].Tasks)
	assert.Equal(t, 1, perf["c1"].EmergencyTasks)
	assert.Equal(t, 30, perf["c1"].WorkedMinutes)
	assert.InDelta(t, 15.0, perf["c1"].AvgTaskMinutes, 1e-9)
}

func TestBuildMetricsOvertime(t *testing.T) {
	in := Input{
		Start:        day,
		HorizonHours: 2,
		Crews: []model.Crew{{
			ID: "c1", HourlyRate: 60,
			Shift: model.Shift{Start: clock(0, 0), End: clock(1, 0)},
		}},
	}
	res := Result{Assignments: []model.CrewAssignment{{
		TaskID: "t", CrewID: "c1", WashroomID: "w1",
		Start: clock(0, 0), End: clock(1, 30), CleaningMinutes: 90,
	}}}
	m := BuildMetrics(in, res, DefaultCost())
	assert.InDelta(t, 45.0, m.OvertimeCost, 1e-9)
	assert.InDelta(t, 105.0, m.LaborCost, 1e-9)
}

func TestHeadwayViolations(t *testing.T) {
	in := Input{
		Start:        day,
		HorizonHours: 4,
		Washrooms:    []model.Washroom{{ID: "w1", SLA: model.SLA{MaxHeadwayMinutes: 90}}},
	}
	assignments := []model.CrewAssignment{
		{WashroomID: "w1", Start: clock(1, 0), End: clock(1, 15)},
		{WashroomID: "w1", Start: clock(3, 30), End: clock(3, 45)},
	}
	// 01:15 to 03:30 exceeds the headway; the edges do not.
	assert.Equal(t, 1, headwayViolations(in, assignments))
	assert.Equal(t, 1, headwayViolations(in, nil))
}
