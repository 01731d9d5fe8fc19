package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/washcrew/core/model"
)

func result() model.PlanResult {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return model.PlanResult{
		RunID: "r1",
		Assignments: []model.CrewAssignment{{
			TaskID: "t1", CrewID: "c1", WashroomID: "w1", Priority: model.PriorityHigh,
			Start: start, End: start.Add(15 * time.Minute), TravelMinutes: 3, CleaningMinutes: 15, Score: 7.5,
		}},
		CrewSchedules: map[string][]model.ScheduleEvent{
			"c2": {{CrewID: "c2", Start: start, End: start.Add(time.Minute), Status: model.ScheduleTraveling, WashroomID: "w2"}},
			"c1": {{CrewID: "c1", Start: start, End: start.Add(15 * time.Minute), Status: model.ScheduleCleaning, TaskID: "t1", WashroomID: "w1"}},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, result(), FormatJSON))
	var out model.PlanResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "r1", out.RunID)
	assert.Len(t, out.Assignments, 1)
}

func TestWriteAssignmentsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, result(), FormatCSV))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "task_id", rows[0][0])
	assert.Equal(t, []string{"t1", "c1", "w1", "high", "2024-05-01T08:00:00Z", "2024-05-01T08:15:00Z", "3", "15", "7.5"}, rows[1])
}

func TestWriteScheduleCSVSortsCrews(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, result(), FormatSchedule))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "c1", rows[1][0])
	assert.Equal(t, "cleaning", rows[1][3])
	assert.Equal(t, "c2", rows[2][0])
	assert.Equal(t, "", rows[2][4])
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, result(), "xml"))
}
