// Package app wires configuration, planner, sinks, run log and publisher into
// the commands of the washcrew binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/washcrew/api/runs"
	"github.com/kilianp07/washcrew/config"
	"github.com/kilianp07/washcrew/core/events"
	coremetrics "github.com/kilianp07/washcrew/core/metrics"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/core/planner"
	"github.com/kilianp07/washcrew/core/responsiveness"
	"github.com/kilianp07/washcrew/core/runlog"
	"github.com/kilianp07/washcrew/dataset"
	"github.com/kilianp07/washcrew/infra/logger"
	"github.com/kilianp07/washcrew/infra/metrics"
	"github.com/kilianp07/washcrew/infra/mqtt"
	"github.com/kilianp07/washcrew/internal/eventbus"
)

// AnomalyBuffer is the subscriber capacity of the anomaly bus in serve mode.
const AnomalyBuffer = 256

// Service orchestrates planning runs and their collaborators.
type Service struct {
	cfg       *config.Config
	planner   *planner.Planner
	sink      coremetrics.PlanSink
	store     runlog.Store
	publisher *mqtt.Publisher
	plans     *eventbus.Bus[events.PlanCompleted]
	anomalies *eventbus.Bus[events.AnomalyDetected]
	log       logger.Logger
	now       func() time.Time
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	log := logger.New("service")

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		coremetrics.Close(sink)
		return nil, err
	}

	p := planner.New(cfg.Planning.Options(), logger.New("planner"))
	p.SetSink(sink)
	p.SetStore(store)
	plans := eventbus.New[events.PlanCompleted]()
	p.SetBus(plans)

	svc := &Service{
		cfg:       cfg,
		planner:   p,
		sink:      sink,
		store:     store,
		plans:     plans,
		anomalies: eventbus.NewBuffered[events.AnomalyDetected](AnomalyBuffer),
		log:       log,
		now:       time.Now,
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
		p.SetPublisher(pub)
	}
	return svc, nil
}

func (s *Service) input(data dataset.Data, start time.Time) planner.Input {
	if start.IsZero() {
		start = s.cfg.Planning.StartTime(data.Day)
	}
	return planner.Input{
		Params:    s.cfg.Planning.Params(start),
		Washrooms: data.Washrooms,
		Crews:     data.Crews,
		Flights:   data.Flights,
		Backlog:   data.Backlog,
	}
}

// Plan runs the default variant over data. A zero start uses the configured
// start or midnight of the dataset day.
func (s *Service) Plan(ctx context.Context, data dataset.Data, start time.Time) (model.PlanResult, error) {
	return s.planner.Run(ctx, s.input(data, start))
}

// Compare runs every configured variant over data.
func (s *Service) Compare(ctx context.Context, data dataset.Data, start time.Time) ([]planner.VariantResult, error) {
	variants := s.cfg.Planning.EngineVariants()
	if len(variants) == 0 {
		return nil, nil
	}
	return s.planner.RunVariants(ctx, s.input(data, start), variants)
}

// Probe reports emergency responsiveness. With idle set the roster is probed
// with empty schedules; otherwise a plan is built first and nothing is
// recorded or published.
func (s *Service) Probe(ctx context.Context, data dataset.Data, start time.Time, idle bool) (model.EmergencyResponsiveness, error) {
	in := s.input(data, start)
	if err := in.Validate(); err != nil {
		return model.EmergencyResponsiveness{}, err
	}
	opts := s.cfg.Planning.Options()
	if idle {
		est := responsiveness.New(opts.Responsiveness, logger.New("responsiveness"))
		return est.Estimate(responsiveness.Input{
			Start:        in.Start,
			HorizonHours: in.HorizonHours,
			Crews:        in.Crews,
			Washrooms:    in.Washrooms,
		}), nil
	}
	res, err := planner.New(opts, logger.New("planner")).Run(ctx, in)
	if err != nil {
		return model.EmergencyResponsiveness{}, err
	}
	return res.Metrics.Responsiveness, nil
}

// Serve plans periodically from the dataset at path and exposes Prometheus
// metrics and the run log until ctx is canceled. The dataset is reloaded before every run.
func (s *Service) Serve(ctx context.Context, path string) error {
	s.planner.SetAnomalyBus(s.anomalies)
	collected := metrics.StartEventCollector(ctx, s.anomalies, s.sink)

	completed := s.plans.Subscribe()
	go func() {
		for ev := range completed {
			m := ev.Result.Metrics
			s.log.Infof("run %s (%s) assigned %d/%d tasks, sla %.1f%%, utilization %.1f%% in %s",
				ev.RunID, ev.Variant, m.AssignedTasks, m.TotalTasks, m.SLAComplianceRate, m.CrewUtilization, ev.Duration)
		}
	}()

	promErr := make(chan error, 1)
	go func() {
		promErr <- metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr,
			metrics.Route{Pattern: runs.Path, Handler: runs.NewHandler(s.store)})
	}()

	interval := time.Duration(s.cfg.Planning.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.tick(ctx, path)
	for {
		select {
		case <-ctx.Done():
			s.plans.Unsubscribe(completed)
			<-collected
			if n := s.anomalies.Dropped(); n > 0 {
				s.log.Warnf("anomaly collector fell behind, %d events dropped", n)
			}
			if promErr != nil {
				if err := <-promErr; err != nil {
					return fmt.Errorf("prom server: %w", err)
				}
			}
			return nil
		case err := <-promErr:
			promErr = nil
			if err != nil {
				return fmt.Errorf("prom server: %w", err)
			}
		case <-ticker.C:
			s.tick(ctx, path)
		}
	}
}

func (s *Service) tick(ctx context.Context, path string) {
	data, err := dataset.LoadData(path)
	if err != nil {
		s.log.Errorf("dataset: %v", err)
		return
	}
	start := time.Time{}
	if s.cfg.Planning.Start == "" {
		start = s.now().Truncate(time.Minute)
	}
	if _, err := s.Plan(ctx, data, start); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorf("plan: %v", err)
	}
	if _, err := s.Compare(ctx, data, start); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorf("variants: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	s.plans.Close()
	s.anomalies.Close()
	coremetrics.Close(s.sink)
	return s.store.Close()
}
