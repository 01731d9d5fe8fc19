package responsiveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/washcrew/core/model"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func clock(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestEstimateNoCrewOnShift(t *testing.T) {
	r := New(Options{}, nil).Estimate(Input{
		Start:        day,
		HorizonHours: 24,
		Washrooms:    []model.Washroom{{ID: "w1"}},
	})
	assert.Equal(t, 24, r.Samples)
	assert.Zero(t, r.SuccessfulSamples)
	assert.Zero(t, r.AvailabilityRate)
	assert.Zero(t, r.AvgCrewAvailable)
	assert.Equal(t, float64(DefaultAvgMinutes), r.AvgResponseMinutes)
	assert.Equal(t, float64(DefaultMaxMinutes), r.MaxResponseMinutes)
	assert.Equal(t, float64(DefaultMinMinutes), r.MinResponseMinutes)
}

func TestEstimateIdleCrew(t *testing.T) {
	r := New(Options{}, nil).Estimate(Input{
		Start:        day,
		HorizonHours: 2,
		Washrooms:    []model.Washroom{{ID: "w1"}, {ID: "w2", Location: model.Coordinates{X: 400}}},
		Crews:        []model.Crew{{ID: "c1", Home: "w1", Shift: model.Shift{Start: day, End: day}}},
	})
	assert.Equal(t, 4, r.Samples)
	assert.Equal(t, 4, r.SuccessfulSamples)
	assert.InDelta(t, 1.0, r.AvailabilityRate, 1e-9)
	assert.InDelta(t, 1.0, r.AvgCrewAvailable, 1e-9)
	assert.InDelta(t, 25.0, r.MinResponseMinutes, 1e-9)
	assert.InDelta(t, 30.0, r.MaxResponseMinutes, 1e-9)
	assert.InDelta(t, 27.5, r.AvgResponseMinutes, 1e-9)
}

func TestEstimateFollowsBackToBackEvents(t *testing.T) {
	schedules := map[string][]model.ScheduleEvent{"c1": {
		{Start: clock(0, 50), End: clock(1, 10), Status: model.ScheduleCleaning, WashroomID: "w1"},
		{Start: clock(1, 10), End: clock(1, 15), Status: model.ScheduleTraveling, WashroomID: "w2"},
		{Start: clock(1, 15), End: clock(1, 30), Status: model.ScheduleCleaning, WashroomID: "w2"},
	}}
	e := New(Options{}, nil)
	free, where := e.freeAt(model.Crew{ID: "c1"}, schedules["c1"], clock(1, 0))
	assert.True(t, free.Equal(clock(1, 30)))
	assert.Equal(t, "w2", where)

	r := e.Estimate(Input{
		Start:        clock(1, 0),
		HorizonHours: 1,
		Washrooms:    []model.Washroom{{ID: "w2", Location: model.Coordinates{X: 400}}},
		Crews:        []model.Crew{{ID: "c1", Shift: model.Shift{Start: day, End: day}}},
		Schedules:    schedules,
	})
	// 30 minutes waiting, no walk, 25 cleaning.
	assert.InDelta(t, 55.0, r.AvgResponseMinutes, 1e-9)
}

func TestEstimateIdleCrewUsesLastLocation(t *testing.T) {
	events := []model.ScheduleEvent{{Start: clock(0, 10), End: clock(0, 25), Status: model.ScheduleCleaning, WashroomID: "w2"}}
	free, where := New(Options{}, nil).freeAt(model.Crew{ID: "c1", Home: "w1"}, events, clock(1, 0))
	assert.True(t, free.Equal(clock(1, 0)))
	assert.Equal(t, "w2", where)
}

func TestEstimateRespectsShiftEndAndCap(t *testing.T) {
	ending := model.Crew{ID: "c1", Home: "w1", Shift: model.Shift{Start: day, End: clock(0, 20)}}
	far := model.Crew{ID: "c2", Home: "w2", Shift: model.Shift{Start: day, End: day}}
	r := New(Options{}, nil).Estimate(Input{
		Start:        day,
		HorizonHours: 1,
		Washrooms: []model.Washroom{
			{ID: "w1"},
			{ID: "w2", Location: model.Coordinates{X: 80 * 200}},
		},
		Crews: []model.Crew{ending, far},
	})
	// w1: c1 ends shift first, c2 is 200 minutes away. w2: c2 is on site.
	assert.Equal(t, 2, r.Samples)
	assert.Equal(t, 1, r.SuccessfulSamples)
	assert.InDelta(t, 0.5, r.AvailabilityRate, 1e-9)
	assert.InDelta(t, 25.0, r.AvgResponseMinutes, 1e-9)
}

func TestSitesCapAndSkipInactive(t *testing.T) {
	var ws []model.Washroom
	for _, id := range []string{"k", "j", "i", "h", "g", "f", "e", "d", "c", "b", "a"} {
		ws = append(ws, model.Washroom{ID: id})
	}
	ws = append(ws, model.Washroom{ID: "0", Status: model.WashroomClosed})
	sites := New(Options{}, nil).sites(ws)
	assert.Len(t, sites, 10)
	assert.Equal(t, "a", sites[0].ID)
	assert.Equal(t, "j", sites[9].ID)
}
