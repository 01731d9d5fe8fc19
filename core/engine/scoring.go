package engine

import (
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// ScoreWeights tune the crew/task scoring. Higher scores win.
type ScoreWeights struct {
	EmergencySkill float64
	TravelPenalty  float64
	PeakBonus      float64
	UrgencyBonus   float64
	UrgencyWindow  time.Duration
	EmergencyBonus float64
	HighBonus      float64
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		EmergencySkill: 15,
		TravelPenalty:  2,
		PeakBonus:      40,
		UrgencyBonus:   30,
		UrgencyWindow:  30 * time.Minute,
		EmergencyBonus: 50,
		HighBonus:      20,
	}
}

// Score rates crew c for task t at tick. travelMinutes is the walk from the
// crew's location to the task washroom and peak the crowd intensity at the
// projected start, ignored for emergencies.
func (w ScoreWeights) Score(c model.Crew, t model.Task, tick time.Time, travelMinutes int, peak float64) float64 {
	score := -w.TravelPenalty * float64(travelMinutes)
	switch t.Priority {
	case model.PriorityEmergency:
		score += w.EmergencySkill*float64(c.SkillLevel()) + w.EmergencyBonus
	case model.PriorityHigh:
		score += w.HighBonus + w.PeakBonus*peak
	default:
		score += w.PeakBonus * peak
	}
	if t.Deadline != nil && t.Deadline.Sub(tick) < w.UrgencyWindow {
		score += w.UrgencyBonus
	}
	return score
}
