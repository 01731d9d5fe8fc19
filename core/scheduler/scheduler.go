package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// Config holds the shape of generated routine tasks.
type Config struct {
	TaskDurationMinutes  int `json:"task_duration_minutes" yaml:"task_duration_minutes"`
	DeadlineSlackMinutes int `json:"deadline_slack_minutes" yaml:"deadline_slack_minutes"`
}

// DefaultConfig returns 15 minute cleanings due 30 minutes after their
// required time.
func DefaultConfig() Config {
	return Config{TaskDurationMinutes: 15, DeadlineSlackMinutes: 30}
}

// Validate checks that durations are positive.
func (c Config) Validate() error {
	if c.TaskDurationMinutes <= 0 {
		return errors.New("task_duration_minutes must be positive")
	}
	if c.DeadlineSlackMinutes < 0 {
		return errors.New("deadline_slack_minutes must not be negative")
	}
	return nil
}

// Params bounds one scheduling pass.
type Params struct {
	Start        time.Time
	HorizonHours float64
	// FrequencyHours applies to requirements without their own frequency.
	// Zero spreads those cleanings evenly.
	FrequencyHours float64
}

// Scheduler generates routine tasks. Task ids are numbered in generation
// order for traceability only.
type Scheduler struct {
	Config Config
	seq    int
}

// New returns a Scheduler using cfg.
func New(cfg Config) *Scheduler {
	return &Scheduler{Config: cfg}
}

// Generate returns the routine tasks for every requirement. With a frequency
// the cleanings fall at Start+k*frequency, k=1..N, as long as they are not
// past the horizon end. Without one they are spaced horizon/(N+1) apart.
func (s *Scheduler) Generate(reqs []model.CleaningRequirement, p Params) []model.Task {
	horizon := time.Duration(p.HorizonHours * float64(time.Hour))
	end := p.Start.Add(horizon)
	var tasks []model.Task
	for _, r := range reqs {
		if r.NumCleanings <= 0 {
			continue
		}
		freqHours := r.FrequencyHours
		if freqHours <= 0 {
			freqHours = p.FrequencyHours
		}
		for _, at := range requiredTimes(r.NumCleanings, p.Start, end, horizon, freqHours) {
			tasks = append(tasks, s.routineTask(r.WashroomID, at, p.Start))
		}
	}
	return tasks
}

func requiredTimes(n int, start, end time.Time, horizon time.Duration, freqHours float64) []time.Time {
	var out []time.Time
	if freqHours > 0 {
		freq := time.Duration(freqHours * float64(time.Hour))
		for k := 1; k <= n; k++ {
			at := start.Add(time.Duration(k) * freq)
			if at.After(end) {
				break
			}
			out = append(out, at)
		}
		return out
	}
	step := horizon / time.Duration(n+1)
	for k := 1; k <= n; k++ {
		out = append(out, start.Add(time.Duration(k)*step))
	}
	return out
}

func (s *Scheduler) routineTask(washroomID string, at, created time.Time) model.Task {
	s.seq++
	deadline := at.Add(time.Duration(s.Config.DeadlineSlackMinutes) * time.Minute)
	return model.Task{
		ID:               fmt.Sprintf("routine-%d", s.seq),
		WashroomID:       washroomID,
		Type:             model.TaskRoutine,
		Priority:         model.PriorityNormal,
		EstimatedMinutes: s.Config.TaskDurationMinutes,
		RequiredAt:       at,
		Deadline:         &deadline,
		CreatedAt:        created,
	}
}
