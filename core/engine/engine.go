package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/washcrew/core/crew"
	"github.com/kilianp07/washcrew/core/logger"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/core/peak"
	"github.com/kilianp07/washcrew/core/travel"
)

var (
	// ErrLocationUnresolved is reported when a crew location matches no washroom.
	ErrLocationUnresolved = errors.New("crew location unresolved")
	// ErrUnknownWashroom is reported when a task references a missing washroom.
	ErrUnknownWashroom = errors.New("unknown washroom")
)

// Options configure a run.
type Options struct {
	// Step is the tick length. Zero means one minute.
	Step time.Duration
	// PeakWeighting nudges routine cleanings toward busy hours.
	PeakWeighting bool
	// EnforceShiftEnd rejects assignments finishing after the crew's shift.
	EnforceShiftEnd bool
	Weights         ScoreWeights
	Travel          travel.Estimator
	// Depot locates crews that have no washroom location yet.
	Depot model.Coordinates
}

// DefaultOptions returns one minute ticks, peak weighting and shift-end
// enforcement with the default weights.
func DefaultOptions() Options {
	return Options{
		Step:            time.Minute,
		PeakWeighting:   true,
		EnforceShiftEnd: true,
		Weights:         DefaultWeights(),
		Travel:          travel.New(travel.DefaultWalkingSpeed),
	}
}

// Input is everything one run consumes. The engine never mutates it.
type Input struct {
	Start        time.Time
	HorizonHours float64
	Tasks        []model.Task
	Crews        []model.Crew
	Washrooms    []model.Washroom
	Peak         *peak.Surface
}

// End returns the exclusive end of the simulated horizon.
func (in Input) End() time.Time {
	return in.Start.Add(time.Duration(in.HorizonHours * float64(time.Hour)))
}

// Result is the outcome of one run.
type Result struct {
	Assignments []model.CrewAssignment
	Schedules   map[string][]model.ScheduleEvent
	// Tasks holds every input task with AssignedCrew and CompletedAt filled
	// for the assigned ones.
	Tasks     []model.Task
	Anomalies []model.Anomaly
	Crew      map[string]crew.State
}

// Engine runs greedy assignment passes. An Engine is stateless between runs
// and may be shared by concurrent runs.
type Engine struct {
	opts Options
	log  logger.Logger
}

// New returns an Engine.
func New(opts Options, log logger.Logger) *Engine {
	if opts.Step <= 0 {
		opts.Step = time.Minute
	}
	return &Engine{opts: opts, log: logger.OrNop(log)}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// run holds the mutable state of a single pass.
type run struct {
	*Engine
	in        Input
	washrooms map[string]model.Washroom
	tracker   *crew.Tracker
	occupied  *occupancy
	tasks     []model.Task
	pending   []int
	res       Result
	reported  map[string]bool
}

// Run simulates [Start, Start+HorizonHours) and returns the assignments.
func (e *Engine) Run(in Input) Result {
	r := &run{
		Engine:    e,
		in:        in,
		washrooms: make(map[string]model.Washroom, len(in.Washrooms)),
		tracker:   crew.NewTracker(in.Crews),
		occupied:  newOccupancy(),
		tasks:     append([]model.Task(nil), in.Tasks...),
		reported:  make(map[string]bool),
		res:       Result{Schedules: make(map[string][]model.ScheduleEvent)},
	}
	for _, w := range in.Washrooms {
		r.washrooms[w.ID] = w
	}
	for i, t := range r.tasks {
		if t.Assigned() {
			continue
		}
		if _, ok := r.washrooms[t.WashroomID]; !ok {
			r.anomaly(model.Anomaly{Kind: model.AnomalyUnknownWashroom, TaskID: t.ID, WashroomID: t.WashroomID, At: in.Start},
				fmt.Errorf("task %s: %w %s", t.ID, ErrUnknownWashroom, t.WashroomID))
			continue
		}
		r.pending = append(r.pending, i)
	}

	end := in.End()
	for tick := in.Start; tick.Before(end); tick = tick.Add(e.opts.Step) {
		r.tracker.Advance(tick)
		ready := r.ready(tick)
		for _, idx := range ready {
			r.assign(idx, tick)
		}
	}
	r.res.Tasks = r.tasks
	r.res.Crew = r.tracker.Snapshot()
	e.log.Infof("assigned %d of %d tasks", len(r.res.Assignments), len(r.tasks))
	return r.res
}

// ready prunes tasks that are assigned or expired and returns the ready ones
// in priority order.
func (r *run) ready(tick time.Time) []int {
	var ready []int
	kept := r.pending[:0]
	for _, idx := range r.pending {
		t := r.tasks[idx]
		if t.Assigned() {
			continue
		}
		if t.Deadline != nil && tick.After(*t.Deadline) {
			r.log.Debugf("task %s expired unassigned", t.ID)
			continue
		}
		kept = append(kept, idx)
		if !t.RequiredAt.After(tick) {
			ready = append(ready, idx)
		}
	}
	r.pending = kept
	sort.SliceStable(ready, func(i, j int) bool {
		return before(r.tasks[ready[i]], r.tasks[ready[j]])
	})
	return ready
}

// before orders by priority, then deadline with missing deadlines last, then
// required time and id.
func before(a, b model.Task) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	switch {
	case a.Deadline != nil && b.Deadline == nil:
		return true
	case a.Deadline == nil && b.Deadline != nil:
		return false
	case a.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
		return a.Deadline.Before(*b.Deadline)
	}
	if !a.RequiredAt.Equal(b.RequiredAt) {
		return a.RequiredAt.Before(b.RequiredAt)
	}
	return a.ID < b.ID
}

type candidate struct {
	crew   model.Crew
	travel int
	score  float64
}

// candidates scores every available crew for the task, best first. Equal
// scores keep crew id order.
func (r *run) candidates(t model.Task, site model.Washroom, tick time.Time) []candidate {
	var out []candidate
	for _, id := range r.tracker.IDs() {
		if !r.tracker.Available(id, tick) {
			continue
		}
		c, _ := r.tracker.Crew(id)
		st, _ := r.tracker.State(id)
		from, err := r.locate(st.Location)
		if err != nil {
			if !r.reported[id] {
				r.reported[id] = true
				r.anomaly(model.Anomaly{Kind: model.AnomalyLocationUnresolved, CrewID: id, WashroomID: st.Location, At: tick},
					fmt.Errorf("crew %s: %w", id, err))
			}
			continue
		}
		minutes := r.opts.Travel.Minutes(from, site.Location)
		intensity := 0.0
		if r.opts.PeakWeighting && t.Priority != model.PriorityEmergency {
			intensity = r.in.Peak.At(t.WashroomID, tick.Add(time.Duration(minutes)*time.Minute))
		}
		out = append(out, candidate{crew: c, travel: minutes, score: r.opts.Weights.Score(c, t, tick, minutes, intensity)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func (r *run) locate(location string) (model.Coordinates, error) {
	if location == crew.Depot {
		return r.opts.Depot, nil
	}
	w, ok := r.washrooms[location]
	if !ok {
		return model.Coordinates{}, fmt.Errorf("%w: %s", ErrLocationUnresolved, location)
	}
	return w.Location, nil
}

// assign tries the ranked crews in turn and commits the first pairing whose
// slot is free and fits the shift. Otherwise the task stays ready.
func (r *run) assign(idx int, tick time.Time) {
	t := r.tasks[idx]
	site := r.washrooms[t.WashroomID]
	for _, c := range r.candidates(t, site, tick) {
		start := tick.Add(time.Duration(c.travel) * time.Minute)
		end := start.Add(t.Duration())
		if r.occupied.overlaps(t.WashroomID, start, end) {
			continue
		}
		if r.opts.EnforceShiftEnd {
			if _, shiftEnd, ok := crew.Occurrence(c.crew.Shift, tick); !ok || end.After(shiftEnd) {
				continue
			}
		}
		r.commit(idx, c, tick, start, end)
		return
	}
}

func (r *run) commit(idx int, c candidate, tick, start, end time.Time) {
	t := &r.tasks[idx]
	t.AssignedCrew = c.crew.ID
	done := end
	t.CompletedAt = &done

	r.occupied.add(t.WashroomID, start, end)
	r.tracker.Commit(c.crew.ID, t.WashroomID, tick, start, end)
	r.res.Assignments = append(r.res.Assignments, model.CrewAssignment{
		TaskID:          t.ID,
		CrewID:          c.crew.ID,
		WashroomID:      t.WashroomID,
		Priority:        t.Priority,
		Start:           start,
		End:             end,
		TravelMinutes:   c.travel,
		CleaningMinutes: t.EstimatedMinutes,
		Score:           c.score,
	})
	events := r.res.Schedules[c.crew.ID]
	if c.travel > 0 {
		events = append(events, model.ScheduleEvent{
			CrewID: c.crew.ID, Start: tick, End: start, Status: model.ScheduleTraveling,
			TaskID: t.ID, WashroomID: t.WashroomID,
		})
	}
	events = append(events, model.ScheduleEvent{
		CrewID: c.crew.ID, Start: start, End: end, Status: model.ScheduleCleaning,
		TaskID: t.ID, WashroomID: t.WashroomID,
	})
	r.res.Schedules[c.crew.ID] = events
	r.log.Debugw("task assigned", map[string]any{
		"task":     t.ID,
		"crew":     c.crew.ID,
		"washroom": t.WashroomID,
		"start":    start,
		"travel":   c.travel,
		"score":    c.score,
	})
}

func (r *run) anomaly(a model.Anomaly, err error) {
	r.res.Anomalies = append(r.res.Anomalies, a)
	r.log.Warnf("skipping candidate: %v", err)
}
