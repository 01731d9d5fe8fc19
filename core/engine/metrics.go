package engine

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/washcrew/core/crew"
	"github.com/kilianp07/washcrew/core/model"
)

// DefaultOvertimeMultiplier scales the hourly rate of minutes worked past the
// scheduled shift.
const DefaultOvertimeMultiplier = 1.5

// CostParams price crew work.
type CostParams struct {
	OvertimeMultiplier float64
}

// DefaultCost returns the standard cost parameters.
func DefaultCost() CostParams {
	return CostParams{OvertimeMultiplier: DefaultOvertimeMultiplier}
}

func pct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// workedMinutes is the travel plus cleaning time of an assignment.
func workedMinutes(a model.CrewAssignment) int {
	return a.TravelMinutes + int(a.End.Sub(a.Start)/time.Minute)
}

// BuildMetrics derives the service metrics of a run. Responsiveness is left
// zero; the estimator fills it.
func BuildMetrics(in Input, res Result, cost CostParams) model.OptimizationMetrics {
	if cost.OvertimeMultiplier <= 0 {
		cost.OvertimeMultiplier = DefaultOvertimeMultiplier
	}
	tasks := make(map[string]model.Task, len(res.Tasks))
	for _, t := range res.Tasks {
		tasks[t.ID] = t
	}
	washrooms := make(map[string]model.Washroom, len(in.Washrooms))
	for _, w := range in.Washrooms {
		washrooms[w.ID] = w
	}

	m := model.OptimizationMetrics{
		TotalTasks:        len(res.Tasks),
		AssignedTasks:     len(res.Assignments),
		SLAComplianceRate: 100,
	}
	m.UnassignedTasks = m.TotalTasks - m.AssignedTasks
	if m.UnassignedTasks < 0 {
		m.UnassignedTasks = 0
	}

	var onTime int
	var responses []float64
	worked := make(map[string]int)
	for _, a := range res.Assignments {
		t := tasks[a.TaskID]
		if t.Deadline == nil || !a.End.After(*t.Deadline) {
			onTime++
		}
		if a.Priority.Rank() >= model.PriorityHigh.Rank() {
			responses = append(responses, a.Start.Sub(t.RequiredAt).Minutes())
		}
		if a.Priority == model.PriorityEmergency {
			limit := washrooms[a.WashroomID].SLA.EmergencyResponseMinutes
			if limit > 0 && a.End.Sub(t.RequiredAt) > time.Duration(limit)*time.Minute {
				m.EmergencySLABreaches++
			}
		}
		m.TotalTravelMinutes += a.TravelMinutes
		worked[a.CrewID] += workedMinutes(a)
	}
	for _, t := range res.Tasks {
		if t.Priority == model.PriorityEmergency && !t.Assigned() {
			m.EmergencySLABreaches++
		}
	}
	if len(res.Assignments) > 0 {
		m.SLAComplianceRate = pct(float64(onTime), float64(len(res.Assignments)))
	}
	m.AvgResponseMinutes = mean(responses)
	m.HeadwayViolations = headwayViolations(in, res.Assignments)

	var busy, shift []float64
	for _, c := range in.Crews {
		scheduled := crew.ShiftMinutes(c.Shift, in.Start, in.End())
		w := worked[c.ID]
		busy = append(busy, float64(w))
		shift = append(shift, float64(scheduled))

		regular := min(w, scheduled)
		over := w - regular
		perMinute := c.HourlyRate / 60
		overtime := float64(over) * perMinute * cost.OvertimeMultiplier
		m.LaborCost += float64(regular)*perMinute + overtime
		m.OvertimeCost += overtime
	}
	m.CrewUtilization = pct(floats.Sum(busy), floats.Sum(shift))
	return m
}

// headwayViolations counts, per washroom with a headway SLA, the gaps longer
// than the SLA between the horizon start, successive cleanings and the
// horizon end.
func headwayViolations(in Input, assignments []model.CrewAssignment) int {
	cleanings := make(map[string][]model.CrewAssignment)
	for _, a := range assignments {
		cleanings[a.WashroomID] = append(cleanings[a.WashroomID], a)
	}
	end := in.End()
	var count int
	for _, w := range in.Washrooms {
		if !w.IsActive() || w.SLA.MaxHeadwayMinutes <= 0 {
			continue
		}
		limit := time.Duration(w.SLA.MaxHeadwayMinutes) * time.Minute
		list := cleanings[w.ID]
		sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
		last := in.Start
		for _, a := range list {
			if a.Start.Sub(last) > limit {
				count++
			}
			last = a.End
		}
		if end.Sub(last) > limit {
			count++
		}
	}
	return count
}

// BuildTaskSummary counts tasks by outcome and type.
func BuildTaskSummary(tasks []model.Task) model.TaskSummary {
	s := model.TaskSummary{ByType: make(map[model.TaskType]model.TypeSummary)}
	for _, t := range tasks {
		ts := s.ByType[t.Type]
		ts.Total++
		s.Total++
		if t.Assigned() {
			ts.Assigned++
			s.Assigned++
		}
		s.ByType[t.Type] = ts
	}
	for k, ts := range s.ByType {
		ts.CompletionRate = pct(float64(ts.Assigned), float64(ts.Total))
		s.ByType[k] = ts
	}
	s.Unassigned = s.Total - s.Assigned
	s.CompletionRate = pct(float64(s.Assigned), float64(s.Total))
	return s
}

// BuildCrewPerformance reports the workload of every crew in the roster,
// including crews that received nothing.
func BuildCrewPerformance(in Input, assignments []model.CrewAssignment) map[string]model.CrewPerformance {
	out := make(map[string]model.CrewPerformance, len(in.Crews))
	for _, c := range in.Crews {
		out[c.ID] = model.CrewPerformance{CrewID: c.ID}
	}
	cleaning := make(map[string][]float64)
	for _, a := range assignments {
		p, ok := out[a.CrewID]
		if !ok {
			continue
		}
		p.Tasks++
		if a.Priority == model.PriorityEmergency {
			p.EmergencyTasks++
		}
		p.WorkedMinutes += workedMinutes(a)
		p.TravelMinutes += a.TravelMinutes
		cleaning[a.CrewID] = append(cleaning[a.CrewID], a.End.Sub(a.Start).Minutes())
		out[a.CrewID] = p
	}
	for _, c := range in.Crews {
		p := out[c.ID]
		p.AvgTaskMinutes = mean(cleaning[c.ID])
		p.UtilizationRate = pct(float64(p.WorkedMinutes), float64(crew.ShiftMinutes(c.Shift, in.Start, in.End())))
		out[c.ID] = p
	}
	return out
}
