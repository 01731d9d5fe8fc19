// Package crew models crew availability during a simulation run. Every crew
// is idle, traveling or cleaning, and is on or off shift at each simulated
// instant. Leaving idle only happens through Commit.
package crew

import (
	"sort"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// Status is the transient activity of a crew inside a run.
type Status string

const (
	Idle      Status = "idle"
	Traveling Status = "traveling"
	Cleaning  Status = "cleaning"
)

// Depot is the location of a crew that has not been anywhere yet.
const Depot = "depot"

// State is the engine-owned simulation state of one crew member.
type State struct {
	CrewID        string
	Location      string
	Status        Status
	CleaningFrom  time.Time
	BusyUntil     time.Time
	WorkedMinutes int
}

// Busy reports whether the crew is traveling or cleaning.
func (s State) Busy() bool { return s.Status != Idle }

// Tracker holds the state of every crew for one run. It is not safe for
// concurrent use.
type Tracker struct {
	crews  map[string]model.Crew
	states map[string]*State
	order  []string
}

// NewTracker creates idle states located at each crew's home, or the depot.
func NewTracker(crews []model.Crew) *Tracker {
	t := &Tracker{
		crews:  make(map[string]model.Crew, len(crews)),
		states: make(map[string]*State, len(crews)),
	}
	for _, c := range crews {
		if _, dup := t.crews[c.ID]; dup {
			continue
		}
		loc := c.Home
		if loc == "" {
			loc = Depot
		}
		t.crews[c.ID] = c
		t.states[c.ID] = &State{CrewID: c.ID, Location: loc, Status: Idle}
		t.order = append(t.order, c.ID)
	}
	sort.Strings(t.order)
	return t
}

// IDs returns crew ids in ascending order, the iteration order of the engine.
func (t *Tracker) IDs() []string {
	return append([]string(nil), t.order...)
}

// Crew returns the roster entry of id.
func (t *Tracker) Crew(id string) (model.Crew, bool) {
	c, ok := t.crews[id]
	return c, ok
}

// State returns a copy of the current state of id.
func (t *Tracker) State(id string) (State, bool) {
	s, ok := t.states[id]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Advance moves every crew through the transitions due at now.
func (t *Tracker) Advance(now time.Time) {
	for _, id := range t.order {
		advance(t.states[id], now)
	}
}

func advance(s *State, now time.Time) {
	if s.Status == Traveling && !now.Before(s.CleaningFrom) {
		s.Status = Cleaning
	}
	if s.Status != Idle && !now.Before(s.BusyUntil) {
		s.Status = Idle
	}
}

// Available reports whether id can take new work at now: on shift and idle,
// or busy with a task that has already ended, in which case it becomes idle.
func (t *Tracker) Available(id string, now time.Time) bool {
	c, ok := t.crews[id]
	if !ok || !OnShift(c.Shift, now) {
		return false
	}
	s := t.states[id]
	advance(s, now)
	return s.Status == Idle
}

// Commit hands a task to id. The crew travels until start, cleans until end
// and is located at washroomID from then on.
func (t *Tracker) Commit(id, washroomID string, now, start, end time.Time) {
	s, ok := t.states[id]
	if !ok {
		return
	}
	s.Location = washroomID
	s.CleaningFrom = start
	s.BusyUntil = end
	s.WorkedMinutes += int(end.Sub(now) / time.Minute)
	s.Status = Cleaning
	if start.After(now) {
		s.Status = Traveling
	}
}

// Snapshot returns a copy of every state keyed by crew id.
func (t *Tracker) Snapshot() map[string]State {
	out := make(map[string]State, len(t.states))
	for id, s := range t.states {
		out[id] = *s
	}
	return out
}
