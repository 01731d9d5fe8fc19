package demand

import (
	"fmt"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// BacklogMode selects which existing tasks enter a planning run.
type BacklogMode string

const (
	// BacklogAll keeps every backlog task.
	BacklogAll BacklogMode = "all"
	// BacklogTodayEmergencies keeps every non-emergency task and only the
	// emergencies created on the planning day.
	BacklogTodayEmergencies BacklogMode = "today_emergencies"
)

// ParseBacklogMode validates a configured mode. Empty selects BacklogAll.
func ParseBacklogMode(s string) (BacklogMode, error) {
	switch BacklogMode(s) {
	case "", BacklogAll:
		return BacklogAll, nil
	case BacklogTodayEmergencies:
		return BacklogTodayEmergencies, nil
	}
	return "", fmt.Errorf("unknown backlog filter %q", s)
}

// FilterBacklog applies mode to tasks. day is any instant of the planning
// day, compared in its own location. Already assigned tasks are dropped.
func FilterBacklog(tasks []model.Task, day time.Time, mode BacklogMode) []model.Task {
	y, m, d := day.Date()
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Assigned() {
			continue
		}
		if mode == BacklogTodayEmergencies && t.Priority == model.PriorityEmergency {
			cy, cm, cd := t.CreatedAt.In(day.Location()).Date()
			if cy != y || cm != m || cd != d {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
