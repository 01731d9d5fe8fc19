package metrics

import (
	"context"

	"github.com/kilianp07/washcrew/core/events"
	coremetrics "github.com/kilianp07/washcrew/core/metrics"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/infra/logger"
	"github.com/kilianp07/washcrew/internal/eventbus"
)

var collectorLog = logger.New("event-collector")

// StartEventCollector subscribes to anomaly events and forwards them to sinks
// able to record anomalies. It stops when the context is canceled or the bus
// is closed, and returns a channel closed on exit.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.AnomalyDetected], sink coremetrics.PlanSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.AnomalyRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := rec.RecordAnomalies(ev.RunID, []model.Anomaly{ev.Anomaly}); err != nil {
					collectorLog.Errorf("record anomaly %s: %v", ev.RunID, err)
				}
			}
		}
	}()
	return done
}
