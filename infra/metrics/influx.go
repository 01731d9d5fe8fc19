package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/washcrew/core/metrics"
	"github.com/kilianp07/washcrew/core/model"
	"github.com/kilianp07/washcrew/infra/logger"
)

// InfluxSink writes plan runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.PlanSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPlan writes one plan_run point and one crew_performance point per
// crew, in a single request.
func (s *InfluxSink) RecordPlan(res model.PlanResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := s.now()
	m := res.Metrics
	points := []*write.Point{
		write.NewPointWithMeasurement("plan_run").
			AddTag("run_id", res.RunID).
			AddField("tasks", m.TotalTasks).
			AddField("assigned", m.AssignedTasks).
			AddField("unassigned", m.UnassignedTasks).
			AddField("sla_compliance", round3(m.SLAComplianceRate)).
			AddField("utilization", round3(m.CrewUtilization)).
			AddField("avg_response_minutes", round3(m.AvgResponseMinutes)).
			AddField("travel_minutes", m.TotalTravelMinutes).
			AddField("labor_cost", round3(m.LaborCost)).
			AddField("availability_rate", round3(m.Responsiveness.AvailabilityRate)).
			SetTime(ts),
	}
	ids := make([]string, 0, len(res.CrewPerformance))
	for id := range res.CrewPerformance {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := res.CrewPerformance[id]
		points = append(points, write.NewPointWithMeasurement("crew_performance").
			AddTag("run_id", res.RunID).
			AddTag("crew_id", id).
			AddField("tasks", p.Tasks).
			AddField("emergency_tasks", p.EmergencyTasks).
			AddField("worked_minutes", p.WorkedMinutes).
			AddField("utilization", round3(p.UtilizationRate)).
			SetTime(ts))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordAnomalies writes one plan_anomaly point per anomaly.
func (s *InfluxSink) RecordAnomalies(runID string, anomalies []model.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(anomalies))
	for _, a := range anomalies {
		p := write.NewPointWithMeasurement("plan_anomaly").
			AddTag("run_id", runID).
			AddTag("kind", string(a.Kind))
		if a.CrewID != "" {
			p = p.AddTag("crew_id", a.CrewID)
		}
		if a.TaskID != "" {
			p = p.AddTag("task_id", a.TaskID)
		}
		points = append(points, p.AddField("washroom_id", a.WashroomID).SetTime(a.At))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRunDuration writes how long a run took.
func (s *InfluxSink) RecordRunDuration(d coremetrics.RunDuration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_duration").
		AddTag("run_id", d.RunID).
		AddTag("variant", d.Variant).
		AddField("duration_ms", round3(float64(d.Duration)/float64(time.Millisecond))).
		SetTime(s.now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
