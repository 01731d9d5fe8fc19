package scenarios

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kilianp07/washcrew/core/crew"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/core/planner"
	"github.com/kilianp07/washcrew/infra/logger"
	"github.com/kilianp07/washcrew/infra/metrics"
)

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	in, err := sc.Input()
	if err != nil {
		t.Fatalf("input: %v", err)
	}
	opts := planner.DefaultOptions()
	opts.Engine = sc.EngineOptions()
	p := planner.New(opts, logger.NopLogger{})
	p.SetSink(sink)

	res, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, v := range Violations(in, opts.Engine.EnforceShiftEnd, res) {
		t.Errorf("scenario %s: %s", sc.Name, v)
	}
	checkExpected(t, sc, res)

	if got := sum(t, reg, "washcrew_plan_runs_total"); got != 1 {
		t.Errorf("scenario %s recorded %v runs", sc.Name, got)
	}
	if got := gauge(t, reg, "washcrew_plan_tasks", "assigned"); int(got) != len(res.Assignments) {
		t.Errorf("scenario %s exported %v assigned tasks, want %d", sc.Name, got, len(res.Assignments))
	}
	if got := sum(t, reg, "washcrew_plan_anomalies_total"); int(got) != sc.Expected.Anomalies {
		t.Errorf("scenario %s exported %v anomalies, want %d", sc.Name, got, sc.Expected.Anomalies)
	}
}

// Violations lists the breaches of the plan invariants: a crew or a washroom
// busy twice at once, and, when enforced, work ending after the shift.
func Violations(in planner.Input, enforceShiftEnd bool, res model.PlanResult) []string {
	var out []string
	for id, events := range res.CrewSchedules {
		sorted := append([]model.ScheduleEvent(nil), events...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Start.Before(sorted[i-1].End) {
				out = append(out, fmt.Sprintf("crew %s double booked at %s", id, sorted[i].Start))
			}
		}
	}

	byWashroom := make(map[string][]model.CrewAssignment)
	for _, a := range res.Assignments {
		byWashroom[a.WashroomID] = append(byWashroom[a.WashroomID], a)
	}
	for id, as := range byWashroom {
		sort.Slice(as, func(i, j int) bool { return as[i].Start.Before(as[j].Start) })
		for i := 1; i < len(as); i++ {
			if as[i].Start.Before(as[i-1].End) {
				out = append(out, fmt.Sprintf("washroom %s cleaned twice at %s", id, as[i].Start))
			}
		}
	}

	if !enforceShiftEnd {
		return out
	}
	crews := make(map[string]model.Crew, len(in.Crews))
	for _, c := range in.Crews {
		crews[c.ID] = c
	}
	for _, a := range res.Assignments {
		_, end, ok := crew.Occurrence(crews[a.CrewID].Shift, a.Start)
		if !ok || a.End.After(end) {
			out = append(out, fmt.Sprintf("task %s ends after the shift of %s", a.TaskID, a.CrewID))
		}
	}
	return out
}

func checkExpected(t *testing.T, sc *Scenario, res model.PlanResult) {
	t.Helper()
	exp := sc.Expected
	n := len(res.Assignments)
	if n < exp.MinAssigned {
		t.Errorf("scenario %s assigned %d tasks, want at least %d", sc.Name, n, exp.MinAssigned)
	}
	if exp.MaxAssigned != nil && n > *exp.MaxAssigned {
		t.Errorf("scenario %s assigned %d tasks, want at most %d", sc.Name, n, *exp.MaxAssigned)
	}
	if len(res.Anomalies) != exp.Anomalies {
		t.Errorf("scenario %s reported %d anomalies, want %d", sc.Name, len(res.Anomalies), exp.Anomalies)
	}

	crewOf := make(map[string]string, n)
	first := make(map[string]model.CrewAssignment)
	for _, a := range res.Assignments {
		crewOf[a.TaskID] = a.CrewID
		if f, ok := first[a.CrewID]; !ok || a.Start.Before(f.Start) {
			first[a.CrewID] = a
		}
	}
	for _, id := range exp.Assigned {
		if _, ok := crewOf[id]; !ok {
			t.Errorf("scenario %s left %s unassigned", sc.Name, id)
		}
	}
	for _, id := range exp.NotAssigned {
		if c, ok := crewOf[id]; ok {
			t.Errorf("scenario %s assigned %s to %s", sc.Name, id, c)
		}
	}
	for task, want := range exp.AssignedTo {
		if got := crewOf[task]; got != want {
			t.Errorf("scenario %s gave %s to %q, want %s", sc.Name, task, got, want)
		}
	}
	for c, want := range exp.FirstTask {
		if got := first[c].TaskID; got != want {
			t.Errorf("scenario %s crew %s started with %q, want %s", sc.Name, c, got, want)
		}
	}
}

func family(t *testing.T, g prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

// sum adds every series of a counter. A counter never incremented reads 0.
func sum(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	total := 0.0
	for _, m := range family(t, g, name).GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}

// gauge returns the gauge series whose only label has the given value.
func gauge(t *testing.T, g prometheus.Gatherer, name, label string) float64 {
	t.Helper()
	for _, m := range family(t, g, name).GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetValue() == label {
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}
