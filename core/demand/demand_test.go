package demand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/washcrew/core/model"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) *time.Time {
	t := day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	return &t
}

func requirementFor(reqs []model.CleaningRequirement, id string) (model.CleaningRequirement, bool) {
	for _, r := range reqs {
		if r.WashroomID == id {
			return r, true
		}
	}
	return model.CleaningRequirement{}, false
}

func TestGenerateDedupWithinWindow(t *testing.T) {
	washrooms := []model.Washroom{{ID: "w1", GateProximity: "A1"}}
	flights := []model.Flight{
		{ID: "f1", Gate: "A1", ScheduledArrival: at(8, 0)},
		{ID: "f2", Gate: "A1", ScheduledArrival: at(8, 20)},
	}
	reqs := NewGenerator(nil).Generate(flights, washrooms, Params{Start: day, HorizonHours: 24})
	r, ok := requirementFor(reqs, "w1")
	require.True(t, ok)
	assert.Equal(t, 1, r.NumCleanings, "two flights 20 minutes apart must yield one instant")
}

func TestGenerateBackfillsGaps(t *testing.T) {
	washrooms := []model.Washroom{{ID: "w1", GateProximity: "A1"}}
	flights := []model.Flight{{ID: "f1", Gate: "A1", ActualArrival: at(8, 0)}}
	reqs := NewGenerator(nil).Generate(flights, washrooms, Params{Start: day, HorizonHours: 24, FrequencyHours: 2})
	r, ok := requirementFor(reqs, "w1")
	require.True(t, ok)
	// 02,04,06 backfilled, 08 from the flight, then 10..22.
	assert.Equal(t, 11, r.NumCleanings)
	assert.Equal(t, 2.0, r.FrequencyHours)
}

func TestGenerateUnmatchedGateTargetsAll(t *testing.T) {
	washrooms := []model.Washroom{
		{ID: "w1", GateProximity: "A1"},
		{ID: "w2", GateProximity: "B7"},
	}
	flights := []model.Flight{{ID: "f1", Gate: "Z9", ScheduledDeparture: at(3, 0)}}
	reqs := NewGenerator(nil).Generate(flights, washrooms, Params{Start: day, HorizonHours: 6})
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Equal(t, 1, r.NumCleanings, r.WashroomID)
	}
}

func TestGenerateFallbackForQuietWashroom(t *testing.T) {
	washrooms := []model.Washroom{
		{ID: "busy", GateProximity: "A1"},
		{ID: "quiet", GateProximity: "C3"},
	}
	flights := []model.Flight{{ID: "f1", Gate: "A1", ScheduledArrival: at(1, 0)}}
	reqs := NewGenerator(nil).Generate(flights, washrooms, Params{Start: day, HorizonHours: 24, FrequencyHours: 2})
	r, ok := requirementFor(reqs, "quiet")
	require.True(t, ok)
	assert.Equal(t, 12, r.NumCleanings)
	assert.Equal(t, 2.0, r.FrequencyHours)
}

func TestGenerateIgnoresOutOfHorizonAndInactive(t *testing.T) {
	washrooms := []model.Washroom{
		{ID: "w1", GateProximity: "A1"},
		{ID: "w2", GateProximity: "A1", Status: model.WashroomClosed},
	}
	late := day.Add(30 * time.Hour)
	early := day.Add(-time.Hour)
	flights := []model.Flight{
		{ID: "late", Gate: "A1", ScheduledArrival: &late},
		{ID: "early", Gate: "A1", ScheduledArrival: &early},
		{ID: "none", Gate: "A1"},
	}
	reqs := NewGenerator(nil).Generate(flights, washrooms, Params{Start: day, HorizonHours: 24})
	assert.Empty(t, reqs)
}

func TestGenerateIsDeterministic(t *testing.T) {
	washrooms := []model.Washroom{{ID: "w2", GateProximity: "A1"}, {ID: "w1", GateProximity: "A2"}}
	flights := []model.Flight{
		{ID: "f2", Gate: "A1", ScheduledArrival: at(9, 10)},
		{ID: "f1", Gate: "A1", ScheduledArrival: at(9, 0)},
		{ID: "f3", Gate: "A2", ScheduledArrival: at(15, 0)},
	}
	g := NewGenerator(nil)
	p := Params{Start: day, HorizonHours: 24, FrequencyHours: 3}
	first := g.Generate(flights, washrooms, p)
	second := g.Generate(flights, washrooms, p)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "w1", first[0].WashroomID)
}

func TestBackfillWithoutFrequency(t *testing.T) {
	in := []time.Time{*at(5, 0), *at(1, 0)}
	out := Backfill(in, day, day.Add(24*time.Hour), 0)
	require.Len(t, out, 2)
	assert.True(t, out[0].Before(out[1]))
}

func TestFilterBacklog(t *testing.T) {
	tasks := []model.Task{
		{ID: "today-em", Priority: model.PriorityEmergency, CreatedAt: day.Add(2 * time.Hour)},
		{ID: "old-em", Priority: model.PriorityEmergency, CreatedAt: day.Add(-20 * time.Hour)},
		{ID: "old-normal", Priority: model.PriorityNormal, CreatedAt: day.Add(-48 * time.Hour)},
		{ID: "done", AssignedCrew: "c1"},
	}
	all := FilterBacklog(tasks, day, BacklogAll)
	assert.Len(t, all, 3)

	today := FilterBacklog(tasks, day.Add(12*time.Hour), BacklogTodayEmergencies)
	ids := make([]string, 0, len(today))
	for _, tk := range today {
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []string{"today-em", "old-normal"}, ids)
}

func TestParseBacklogMode(t *testing.T) {
	m, err := ParseBacklogMode("")
	require.NoError(t, err)
	assert.Equal(t, BacklogAll, m)
	m, err = ParseBacklogMode("today_emergencies")
	require.NoError(t, err)
	assert.Equal(t, BacklogTodayEmergencies, m)
	_, err = ParseBacklogMode("yesterday")
	assert.Error(t, err)
}
