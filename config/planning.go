package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/washcrew/core/demand"
	"github.com/kilianp07/washcrew/core/engine"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/core/planner"
	"github.com/kilianp07/washcrew/core/responsiveness"
	"github.com/kilianp07/washcrew/core/scheduler"
	"github.com/kilianp07/washcrew/core/travel"
)

// Planning defaults.
const (
	DefaultHorizonHours    = 24.0
	DefaultFrequencyHours  = 2.0
	DefaultIntervalMinutes = 15
)

// ResponsivenessConfig tunes the emergency probe.
type ResponsivenessConfig struct {
	SampleMinutes      int `json:"sample_minutes"`
	MaxWashrooms       int `json:"max_washrooms"`
	EmergencyMinutes   int `json:"emergency_minutes"`
	MaxResponseMinutes int `json:"max_response_minutes"`
}

// VariantConfig overrides engine options for a named comparison run.
type VariantConfig struct {
	Name            string `json:"name"`
	PeakWeighting   *bool  `json:"peak_weighting"`
	EnforceShiftEnd *bool  `json:"enforce_shift_end"`
	StepMinutes     int    `json:"step_minutes"`
}

// PlanningConfig holds the run parameters and stage options.
type PlanningConfig struct {
	// Start is an RFC 3339 instant. Empty starts at midnight of the dataset day.
	Start              string               `json:"start"`
	HorizonHours       float64              `json:"horizon_hours"`
	FrequencyHours     float64              `json:"frequency_hours"`
	StepMinutes        int                  `json:"step_minutes"`
	BacklogFilter      string               `json:"backlog_filter"`
	PeakWeighting      *bool                `json:"peak_weighting"`
	EnforceShiftEnd    *bool                `json:"enforce_shift_end"`
	WalkingSpeed       float64              `json:"walking_speed"`
	Depot              model.Coordinates    `json:"depot"`
	Scheduler          scheduler.Config     `json:"scheduler"`
	// SchedulerFile replaces the scheduler section with a YAML or JSON file,
	// relative to the configuration file.
	SchedulerFile      string               `json:"scheduler_file"`
	Responsiveness     ResponsivenessConfig `json:"responsiveness"`
	OvertimeMultiplier float64              `json:"overtime_multiplier"`
	Variants           []VariantConfig      `json:"variants"`
	// IntervalMinutes is the period of the serve loop.
	IntervalMinutes    int                  `json:"interval_minutes"`
}

// SetDefaults applies sane defaults.
func (c *PlanningConfig) SetDefaults() {
	if c.HorizonHours == 0 {
		c.HorizonHours = DefaultHorizonHours
	}
	if c.FrequencyHours == 0 {
		c.FrequencyHours = DefaultFrequencyHours
	}
	if c.BacklogFilter == "" {
		c.BacklogFilter = string(demand.BacklogAll)
	}
	if c.WalkingSpeed == 0 {
		c.WalkingSpeed = travel.DefaultWalkingSpeed
	}
	sd := scheduler.DefaultConfig()
	if c.Scheduler.TaskDurationMinutes == 0 {
		c.Scheduler.TaskDurationMinutes = sd.TaskDurationMinutes
	}
	if c.Scheduler.DeadlineSlackMinutes == 0 {
		c.Scheduler.DeadlineSlackMinutes = sd.DeadlineSlackMinutes
	}
	if c.OvertimeMultiplier == 0 {
		c.OvertimeMultiplier = engine.DefaultOvertimeMultiplier
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = DefaultIntervalMinutes
	}
}

// Validate checks mandatory fields.
func (c PlanningConfig) Validate() error {
	if c.Start != "" {
		if _, err := time.Parse(time.RFC3339, c.Start); err != nil {
			return fmt.Errorf("start: %w", err)
		}
	}
	if c.HorizonHours <= 0 {
		return errors.New("horizon_hours must be positive")
	}
	if c.FrequencyHours < 0 || c.StepMinutes < 0 || c.IntervalMinutes < 0 {
		return errors.New("frequency_hours, step_minutes and interval_minutes must not be negative")
	}
	if c.WalkingSpeed < 0 {
		return errors.New("walking_speed must not be negative")
	}
	if c.OvertimeMultiplier < 1 {
		return errors.New("overtime_multiplier must be at least 1")
	}
	if _, err := demand.ParseBacklogMode(c.BacklogFilter); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Variants))
	for i, v := range c.Variants {
		if v.Name == "" {
			return fmt.Errorf("variants[%d]: name is required", i)
		}
		if _, ok := seen[v.Name]; ok {
			return fmt.Errorf("variants[%d]: duplicate name %s", i, v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}

// StartTime returns the configured start, or midnight of day.
func (c PlanningConfig) StartTime(day time.Time) time.Time {
	if c.Start != "" {
		if t, err := time.Parse(time.RFC3339, c.Start); err == nil {
			return t
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

// Params returns the run parameters starting at start. The engine step is
// carried by EngineOptions so that variants can override it.
func (c PlanningConfig) Params(start time.Time) planner.Params {
	return planner.Params{
		Start:          start,
		HorizonHours:   c.HorizonHours,
		FrequencyHours: c.FrequencyHours,
		BacklogMode:    demand.BacklogMode(c.BacklogFilter),
	}
}

// EngineOptions returns the engine options of the default variant.
func (c PlanningConfig) EngineOptions() engine.Options {
	o := engine.DefaultOptions()
	o.Travel = travel.New(c.WalkingSpeed)
	o.Depot = c.Depot
	if c.StepMinutes > 0 {
		o.Step = time.Duration(c.StepMinutes) * time.Minute
	}
	if c.PeakWeighting != nil {
		o.PeakWeighting = *c.PeakWeighting
	}
	if c.EnforceShiftEnd != nil {
		o.EnforceShiftEnd = *c.EnforceShiftEnd
	}
	return o
}

// Options returns the options of every planner stage.
func (c PlanningConfig) Options() planner.Options {
	o := planner.DefaultOptions()
	o.Engine = c.EngineOptions()
	o.Scheduler = c.Scheduler
	o.Cost = engine.CostParams{OvertimeMultiplier: c.OvertimeMultiplier}
	r := responsiveness.DefaultOptions()
	if c.Responsiveness.SampleMinutes > 0 {
		r.SampleInterval = time.Duration(c.Responsiveness.SampleMinutes) * time.Minute
	}
	if c.Responsiveness.MaxWashrooms > 0 {
		r.MaxWashroomsPerSample = c.Responsiveness.MaxWashrooms
	}
	if c.Responsiveness.EmergencyMinutes > 0 {
		r.EmergencyMinutes = c.Responsiveness.EmergencyMinutes
	}
	if c.Responsiveness.MaxResponseMinutes > 0 {
		r.MaxResponseMinutes = c.Responsiveness.MaxResponseMinutes
	}
	r.Travel = o.Engine.Travel
	r.Depot = c.Depot
	o.Responsiveness = r
	return o
}

// EngineVariants returns one planner variant per configured variant, each
// starting from the default engine options.
func (c PlanningConfig) EngineVariants() []planner.Variant {
	out := make([]planner.Variant, 0, len(c.Variants))
	for _, v := range c.Variants {
		o := c.EngineOptions()
		if v.PeakWeighting != nil {
			o.PeakWeighting = *v.PeakWeighting
		}
		if v.EnforceShiftEnd != nil {
			o.EnforceShiftEnd = *v.EnforceShiftEnd
		}
		if v.StepMinutes > 0 {
			o.Step = time.Duration(v.StepMinutes) * time.Minute
		}
		out = append(out, planner.Variant{Name: v.Name, Engine: o})
	}
	return out
}
