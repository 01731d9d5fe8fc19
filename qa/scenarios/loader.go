// Package scenarios replays planning days described in YAML files and checks
// the resulting plans against their expectations and the plan invariants.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/washcrew/core/demand"
	"github.com/kilianp07/washcrew/core/engine"
	"github.com/kilianp07/washcrew/core/planner"
	"github.com/kilianp07/washcrew/dataset"
)

// Expected describes what the plan of a scenario must contain.
type Expected struct {
	MinAssigned int  `yaml:"min_assigned"`
	MaxAssigned *int `yaml:"max_assigned,omitempty"`
	// Assigned lists tasks that must be assigned.
	Assigned []string `yaml:"assigned,omitempty"`
	// NotAssigned lists tasks that must stay unassigned.
	NotAssigned []string `yaml:"not_assigned,omitempty"`
	// AssignedTo maps task ids to the crew that must take them.
	AssignedTo map[string]string `yaml:"assigned_to,omitempty"`
	// FirstTask maps crew ids to the first task they start.
	FirstTask map[string]string `yaml:"first_task,omitempty"`
	Anomalies int               `yaml:"anomalies"`
}

type Scenario struct {
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description,omitempty"`
	Start           string          `yaml:"start"`
	HorizonHours    float64         `yaml:"horizon_hours"`
	FrequencyHours  float64         `yaml:"frequency_hours"`
	BacklogFilter   string          `yaml:"backlog_filter,omitempty"`
	PeakWeighting   *bool           `yaml:"peak_weighting,omitempty"`
	EnforceShiftEnd *bool           `yaml:"enforce_shift_end,omitempty"`
	Dataset         dataset.Dataset `yaml:"dataset"`
	Expected        Expected        `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Input resolves the scenario dataset into a planner input.
func (s Scenario) Input() (planner.Input, error) {
	data, err := s.Dataset.ToModel()
	if err != nil {
		return planner.Input{}, err
	}
	start, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return planner.Input{}, fmt.Errorf("scenario %s start: %w", s.Name, err)
	}
	return planner.Input{
		Params: planner.Params{
			Start:          start,
			HorizonHours:   s.HorizonHours,
			FrequencyHours: s.FrequencyHours,
			BacklogMode:    demand.BacklogMode(s.BacklogFilter),
		},
		Washrooms: data.Washrooms,
		Crews:     data.Crews,
		Flights:   data.Flights,
		Backlog:   data.Backlog,
	}, nil
}

// EngineOptions returns the default engine options with the scenario
// overrides applied.
func (s Scenario) EngineOptions() engine.Options {
	o := engine.DefaultOptions()
	if s.PeakWeighting != nil {
		o.PeakWeighting = *s.PeakWeighting
	}
	if s.EnforceShiftEnd != nil {
		o.EnforceShiftEnd = *s.EnforceShiftEnd
	}
	return o
}
