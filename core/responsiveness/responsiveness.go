// Package responsiveness probes a finished schedule with hypothetical
// emergencies and reports how fast the best placed crew could respond.
// It never changes the schedule.
package responsiveness

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/washcrew/core/crew"
	"github.com/kilianp07/washcrew/core/logger"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/core/travel"
)

// Values reported when no sample finds an eligible crew.
const (
	DefaultAvgMinutes = 30
	DefaultMaxMinutes = 30
	DefaultMinMinutes = 5
)

// Options tune the probe.
type Options struct {
	SampleInterval        time.Duration
	MaxWashroomsPerSample int
	EmergencyMinutes      int
	MaxResponseMinutes    int
	// BackToBackGap joins schedule events separated by less than it.
	BackToBackGap time.Duration
	Travel        travel.Estimator
	Depot         model.Coordinates
}

// DefaultOptions samples every hour, ten washrooms at a time, with a 25
// minute emergency cleaning and a two hour cap.
func DefaultOptions() Options {
	return Options{
		SampleInterval:        time.Hour,
		MaxWashroomsPerSample: 10,
		EmergencyMinutes:      25,
		MaxResponseMinutes:    120,
		BackToBackGap:         time.Minute,
		Travel:                travel.New(travel.DefaultWalkingSpeed),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SampleInterval <= 0 {
		o.SampleInterval = d.SampleInterval
	}
	if o.MaxWashroomsPerSample <= 0 {
		o.MaxWashroomsPerSample = d.MaxWashroomsPerSample
	}
	if o.EmergencyMinutes <= 0 {
		o.EmergencyMinutes = d.EmergencyMinutes
	}
	if o.MaxResponseMinutes <= 0 {
		o.MaxResponseMinutes = d.MaxResponseMinutes
	}
	if o.BackToBackGap <= 0 {
		o.BackToBackGap = d.BackToBackGap
	}
	return o
}

// Input is a finished plan and its roster.
type Input struct {
	Start        time.Time
	HorizonHours float64
	Crews        []model.Crew
	Washrooms    []model.Washroom
	Schedules    map[string][]model.ScheduleEvent
}

// Estimator runs the probe.
type Estimator struct {
	opts Options
	log  logger.Logger
}

// New returns an Estimator. Zero option fields take their defaults.
func New(opts Options, log logger.Logger) *Estimator {
	return &Estimator{opts: opts.withDefaults(), log: logger.OrNop(log)}
}

// Estimate samples every interval of the horizon against the first
// washrooms by id and aggregates the best case response of each sample.
func (e *Estimator) Estimate(in Input) model.EmergencyResponsiveness {
	sites := e.sites(in.Washrooms)
	locations := make(map[string]model.Coordinates, len(in.Washrooms))
	for _, w := range in.Washrooms {
		locations[w.ID] = w.Location
	}
	schedules := make(map[string][]model.ScheduleEvent, len(in.Schedules))
	for id, events := range in.Schedules {
		sorted := append([]model.ScheduleEvent(nil), events...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
		schedules[id] = sorted
	}

	var best, eligible []float64
	var samples int
	end := in.Start.Add(time.Duration(in.HorizonHours * float64(time.Hour)))
	for at := in.Start; at.Before(end); at = at.Add(e.opts.SampleInterval) {
		for _, site := range sites {
			samples++
			fastest, count := -1.0, 0
			for _, c := range in.Crews {
				minutes, ok := e.response(c, schedules[c.ID], locations, site, at)
				if !ok {
					continue
				}
				count++
				if fastest < 0 || minutes < fastest {
					fastest = minutes
				}
			}
			eligible = append(eligible, float64(count))
			if count > 0 {
				best = append(best, fastest)
			}
		}
	}

	r := model.EmergencyResponsiveness{Samples: samples, SuccessfulSamples: len(best)}
	if len(eligible) > 0 {
		r.AvgCrewAvailable = stat.Mean(eligible, nil)
		r.AvailabilityRate = float64(len(best)) / float64(samples)
	}
	if len(best) == 0 {
		r.AvgResponseMinutes = DefaultAvgMinutes
		r.MaxResponseMinutes = DefaultMaxMinutes
		r.MinResponseMinutes = DefaultMinMinutes
		e.log.Warnf("no crew could answer any of %d sampled emergencies, reporting defaults", samples)
		return r
	}
	r.AvgResponseMinutes = stat.Mean(best, nil)
	r.MinResponseMinutes = floats.Min(best)
	r.MaxResponseMinutes = floats.Max(best)
	return r
}

func (e *Estimator) sites(washrooms []model.Washroom) []model.Washroom {
	var active []model.Washroom
	for _, w := range washrooms {
		if w.IsActive() {
			active = append(active, w)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	if len(active) > e.opts.MaxWashroomsPerSample {
		active = active[:e.opts.MaxWashroomsPerSample]
	}
	return active
}

// response projects how long crew c would take to finish an emergency at
// site raised at at.
func (e *Estimator) response(c model.Crew, events []model.ScheduleEvent, locations map[string]model.Coordinates, site model.Washroom, at time.Time) (float64, bool) {
	_, shiftEnd, ok := crew.Occurrence(c.Shift, at)
	if !ok {
		return 0, false
	}
	free, location := e.freeAt(c, events, at)
	from := e.opts.Depot
	if location != "" && location != crew.Depot {
		coords, known := locations[location]
		if !known {
			return 0, false
		}
		from = coords
	}
	// waiting, walking, then cleaning
	done := free.Add(time.Duration(e.opts.Travel.Minutes(from, site.Location)+e.opts.EmergencyMinutes) * time.Minute)
	if done.After(shiftEnd) {
		return 0, false
	}
	total := done.Sub(at).Minutes()
	if total > float64(e.opts.MaxResponseMinutes) {
		return 0, false
	}
	return total, true
}

// freeAt returns the instant the crew can leave and where it will be. A
// busy crew is followed through back-to-back events; an idle one is at the
// washroom of its latest finished event, or home.
func (e *Estimator) freeAt(c model.Crew, events []model.ScheduleEvent, at time.Time) (time.Time, string) {
	location := c.Home
	if location == "" {
		location = crew.Depot
	}
	for i, ev := range events {
		if ev.Start.After(at) {
			break
		}
		if !ev.End.After(at) {
			if ev.WashroomID != "" {
				location = ev.WashroomID
			}
			continue
		}
		free, where := ev.End, ev.WashroomID
		for _, next := range events[i+1:] {
			if next.Start.Sub(free) >= e.opts.BackToBackGap {
				break
			}
			if next.End.After(free) {
				free = next.End
			}
			if next.WashroomID != "" {
				where = next.WashroomID
			}
		}
		if where == "" {
			where = location
		}
		return free, where
	}
	return at, location
}
