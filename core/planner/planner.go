// Package planner chains demand generation, routine scheduling, greedy
// assignment and the responsiveness probe into one planning run, then hands
// the result to the configured sinks, run log, bus and publisher.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/washcrew/core/demand"
	"github.com/kilianp07/washcrew/core/engine"
	"github.com/kilianp07/washcrew/core/events"
	"github.com/kilianp07/washcrew/core/logger"
	"github.com/kilianp07/washcrew/core/metrics"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/core/peak"
	"github.com/kilianp07/washcrew/core/responsiveness"
	"github.com/kilianp07/washcrew/core/runlog"
	"github.com/kilianp07/washcrew/core/scheduler"
	"github.com/kilianp07/washcrew/internal/eventbus"
)

// ErrInvalidParams is returned when run parameters cannot describe a horizon.
var ErrInvalidParams = errors.New("invalid planning parameters")

// DefaultVariant names the run made with the planner's own engine options.
const DefaultVariant = "default"

// Params are the scalar inputs of a run.
type Params struct {
	Start        time.Time
	HorizonHours float64
	// FrequencyHours is the target cleaning interval of every washroom.
	FrequencyHours float64
	// StepMinutes overrides the engine tick when positive.
	StepMinutes int
	BacklogMode demand.BacklogMode
}

// Validate reports parameters that cannot be planned.
func (p Params) Validate() error {
	switch {
	case p.Start.IsZero():
		return fmt.Errorf("%w: start is required", ErrInvalidParams)
	case p.HorizonHours <= 0:
		return fmt.Errorf("%w: horizon must be positive, got %v", ErrInvalidParams, p.HorizonHours)
	case p.FrequencyHours < 0:
		return fmt.Errorf("%w: frequency must not be negative, got %v", ErrInvalidParams, p.FrequencyHours)
	case p.StepMinutes < 0:
		return fmt.Errorf("%w: step must not be negative, got %d", ErrInvalidParams, p.StepMinutes)
	}
	if _, err := demand.ParseBacklogMode(string(p.BacklogMode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Input is the catalog, roster and traffic of one run.
type Input struct {
	Params
	Washrooms []model.Washroom
	Crews     []model.Crew
	Flights   []model.Flight
	// Backlog holds tasks that exist before the run, such as reported incidents.
	Backlog []model.Task
}

// Options configure every stage.
type Options struct {
	Engine         engine.Options
	Scheduler      scheduler.Config
	Responsiveness responsiveness.Options
	Cost           engine.CostParams
}

// DefaultOptions returns the defaults of every stage.
func DefaultOptions() Options {
	return Options{
		Engine:         engine.DefaultOptions(),
		Scheduler:      scheduler.DefaultConfig(),
		Responsiveness: responsiveness.DefaultOptions(),
		Cost:           engine.DefaultCost(),
	}
}

// Publisher pushes finished plans to crews.
type Publisher interface {
	PublishPlan(ctx context.Context, res model.PlanResult) error
}

// Variant is a named set of engine options.
type Variant struct {
	Name   string
	Engine engine.Options
}

// VariantResult is the outcome of one variant.
type VariantResult struct {
	Variant string
	Result  model.PlanResult
	Err     error

	took time.Duration
}

// Planner runs planning pipelines. Collaborators are optional and set
// before the first run.
type Planner struct {
	opts      Options
	log       logger.Logger
	sink      metrics.PlanSink
	store     runlog.Store
	bus       *eventbus.Bus[events.PlanCompleted]
	anomalies *eventbus.Bus[events.AnomalyDetected]
	publisher Publisher
	now       func() time.Time
}

// New returns a Planner with no-op collaborators.
func New(opts Options, log logger.Logger) *Planner {
	return &Planner{
		opts:  opts,
		log:   logger.OrNop(log),
		sink:  metrics.NopSink{},
		store: runlog.NopStore{},
		now:   time.Now,
	}
}

// SetSink sets the metrics sink receiving every run.
func (p *Planner) SetSink(s metrics.PlanSink) {
	if s != nil {
		p.sink = s
	}
}

// SetStore sets the run log.
func (p *Planner) SetStore(s runlog.Store) {
	if s != nil {
		p.store = s
	}
}

// SetBus sets the bus receiving PlanCompleted events.
func (p *Planner) SetBus(b *eventbus.Bus[events.PlanCompleted]) { p.bus = b }

// SetAnomalyBus sets the bus receiving one event per anomaly. Once set,
// anomalies reach the sink through the bus only.
func (p *Planner) SetAnomalyBus(b *eventbus.Bus[events.AnomalyDetected]) { p.anomalies = b }

// SetPublisher sets the publisher of finished plans.
func (p *Planner) SetPublisher(pub Publisher) { p.publisher = pub }

// Run plans in with the planner's engine options.
func (p *Planner) Run(ctx context.Context, in Input) (model.PlanResult, error) {
	res, took, err := p.plan(ctx, in, p.opts.Engine)
	if err != nil {
		return res, err
	}
	p.emit(ctx, res, DefaultVariant, took)
	return res, nil
}

// RunVariants plans in once per variant, concurrently. Each run works on its
// own copy of the input. Results keep the order of variants.
func (p *Planner) RunVariants(ctx context.Context, in Input, variants []Variant) ([]VariantResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	out := make([]VariantResult, len(variants))
	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		go func(i int, v Variant) {
			defer wg.Done()
			res, took, err := p.plan(ctx, in.clone(), v.Engine)
			out[i] = VariantResult{Variant: v.Name, Result: res, Err: err, took: took}
		}(i, v)
	}
	wg.Wait()
	for _, r := range out {
		if r.Err == nil {
			p.emit(ctx, r.Result, r.Variant, r.took)
		}
	}
	return out, ctx.Err()
}

func (in Input) clone() Input {
	c := in
	c.Washrooms = append([]model.Washroom(nil), in.Washrooms...)
	c.Crews = append([]model.Crew(nil), in.Crews...)
	c.Flights = append([]model.Flight(nil), in.Flights...)
	c.Backlog = append([]model.Task(nil), in.Backlog...)
	return c
}

// plan runs the pipeline. Cancellation is checked between stages only.
func (p *Planner) plan(ctx context.Context, in Input, eopts engine.Options) (model.PlanResult, time.Duration, error) {
	if err := in.Validate(); err != nil {
		return model.PlanResult{}, 0, err
	}
	if in.BacklogMode == "" {
		in.BacklogMode = demand.BacklogAll
	}
	if in.StepMinutes > 0 {
		eopts.Step = time.Duration(in.StepMinutes) * time.Minute
	}
	began := p.now()
	res := model.PlanResult{RunID: uuid.NewString(), Start: in.Start, HorizonHours: in.HorizonHours}

	backlog := demand.FilterBacklog(in.Backlog, in.Start, in.BacklogMode)
	reqs := demand.NewGenerator(p.log).Generate(in.Flights, in.Washrooms, demand.Params{
		Start:          in.Start,
		HorizonHours:   in.HorizonHours,
		FrequencyHours: in.FrequencyHours,
	})
	if err := ctx.Err(); err != nil {
		return res, 0, err
	}
	routine := scheduler.New(p.opts.Scheduler).Generate(reqs, scheduler.Params{
		Start:          in.Start,
		HorizonHours:   in.HorizonHours,
		FrequencyHours: in.FrequencyHours,
	})
	tasks := make([]model.Task, 0, len(backlog)+len(routine))
	tasks = append(tasks, backlog...)
	tasks = append(tasks, routine...)

	var surface *peak.Surface
	if eopts.PeakWeighting {
		surface = peak.Build(in.Flights, in.Washrooms)
	}
	if err := ctx.Err(); err != nil {
		return res, 0, err
	}

	einput := engine.Input{
		Start:        in.Start,
		HorizonHours: in.HorizonHours,
		Tasks:        tasks,
		Crews:        in.Crews,
		Washrooms:    in.Washrooms,
		Peak:         surface,
	}
	out := engine.New(eopts, p.log).Run(einput)
	if err := ctx.Err(); err != nil {
		return res, 0, err
	}

	ropts := p.opts.Responsiveness
	ropts.Travel = eopts.Travel
	ropts.Depot = eopts.Depot
	probe := responsiveness.New(ropts, p.log).Estimate(responsiveness.Input{
		Start:        in.Start,
		HorizonHours: in.HorizonHours,
		Crews:        in.Crews,
		Washrooms:    in.Washrooms,
		Schedules:    out.Schedules,
	})

	res.Assignments = out.Assignments
	res.CrewSchedules = out.Schedules
	res.Anomalies = out.Anomalies
	res.Metrics = engine.BuildMetrics(einput, out, p.opts.Cost)
	res.Metrics.Responsiveness = probe
	res.TaskSummary = engine.BuildTaskSummary(out.Tasks)
	res.CrewPerformance = engine.BuildCrewPerformance(einput, out.Assignments)

	took := p.now().Sub(began)
	p.log.Infof("run %s: %d requirements, %d tasks, %d assigned in %s",
		res.RunID, len(reqs), len(tasks), len(res.Assignments), took)
	return res, took, nil
}

// emit hands a finished run to every collaborator. Failures are logged and
// never fail the run.
func (p *Planner) emit(ctx context.Context, res model.PlanResult, variant string, took time.Duration) {
	if err := p.sink.RecordPlan(res); err != nil {
		p.log.Errorf("record plan %s: %v", res.RunID, err)
	}
	if p.anomalies != nil {
		for _, a := range res.Anomalies {
			p.anomalies.Publish(events.AnomalyDetected{RunID: res.RunID, Anomaly: a})
		}
	} else if rec, ok := p.sink.(metrics.AnomalyRecorder); ok && len(res.Anomalies) > 0 {
		if err := rec.RecordAnomalies(res.RunID, res.Anomalies); err != nil {
			p.log.Errorf("record anomalies %s: %v", res.RunID, err)
		}
	}
	if rec, ok := p.sink.(metrics.RunDurationRecorder); ok {
		if err := rec.RecordRunDuration(metrics.RunDuration{RunID: res.RunID, Variant: variant, Duration: took}); err != nil {
			p.log.Errorf("record duration %s: %v", res.RunID, err)
		}
	}
	if err := p.store.Append(ctx, runlog.NewRecord(res, variant, p.now())); err != nil {
		p.log.Errorf("append run log %s: %v", res.RunID, err)
	}
	if p.publisher != nil {
		if err := p.publisher.PublishPlan(ctx, res); err != nil {
			p.log.Warnf("publish plan %s: %v", res.RunID, err)
		}
	}
	if p.bus != nil {
		p.bus.Publish(events.PlanCompleted{RunID: res.RunID, Variant: variant, Result: res, Duration: took})
	}
}
