package model

import "time"

// CrewStatus is the externally managed roster status of a crew member.
type CrewStatus string

const (
	CrewOnShift   CrewStatus = "on_shift"
	CrewAvailable CrewStatus = "available"
	CrewBusy      CrewStatus = "busy"
	CrewOnBreak   CrewStatus = "on_break"
	CrewOffShift  CrewStatus = "off_shift"
)

// Shift is the working window of a crew member. Only the time of day of
// Start and End matters; End before Start means the shift crosses midnight.
type Shift struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Hours returns the length of one shift occurrence.
func (s Shift) Hours() float64 {
	start := s.Start.Hour()*60 + s.Start.Minute()
	end := s.End.Hour()*60 + s.End.Minute()
	if end <= start {
		end += 24 * 60
	}
	return float64(end-start) / 60
}

// Crew is a cleaning crew member from the external roster.
type Crew struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Skills     []string   `json:"skills" yaml:"skills"`
	Shift      Shift      `json:"shift" yaml:"shift"`
	Status     CrewStatus `json:"status" yaml:"status"`
	HourlyRate float64    `json:"hourly_rate" yaml:"hourly_rate"`
	// Home is the washroom the crew starts from. Empty means the depot.
	Home string `json:"home" yaml:"home"`
}

// SkillLevel is the size of the skill set, never less than one.
func (c Crew) SkillLevel() int {
	if len(c.Skills) < 1 {
		return 1
	}
	return len(c.Skills)
}
