package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/washcrew/core/demand"
	"github.com/kilianp07/washcrew/core/runlog"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `planning:
  start: "2024-05-01T06:00:00Z"
  horizon_hours: 12
  frequency_hours: 3
  step_minutes: 5
  backlog_filter: today_emergencies
  peak_weighting: false
  depot: {x: 10, y: 20, z: 0}
  scheduler:
    task_duration_minutes: 20
  responsiveness:
    max_washrooms: 4
  variants:
    - name: peak
      peak_weighting: true
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  topic_prefix: "t1"
metrics:
  sinks:
    - type: "nop"
logging:
  level: debug
runlog:
  backend: sqlite
  path: runs.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"horizon", cfg.Planning.HorizonHours, 12.0},
		{"frequency", cfg.Planning.FrequencyHours, 3.0},
		{"backlog", cfg.Planning.BacklogFilter, "today_emergencies"},
		{"peak", *cfg.Planning.PeakWeighting, false},
		{"depot", cfg.Planning.Depot.Y, 20.0},
		{"task_duration", cfg.Planning.Scheduler.TaskDurationMinutes, 20},
		{"slack default", cfg.Planning.Scheduler.DeadlineSlackMinutes, 30},
		{"variants", len(cfg.Planning.Variants), 1},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "t1"},
		{"mqtt retries default", cfg.MQTT.MaxRetries, 3},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prom addr", cfg.Metrics.PrometheusAddr, ":2112"},
		{"level", cfg.Logging.Level, "debug"},
		{"runlog", cfg.RunLog.Backend, runlog.BackendSQLite},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}

	params := cfg.Planning.Params(cfg.Planning.StartTime(time.Time{}))
	assert.Equal(t, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), params.Start.UTC())
	assert.Equal(t, demand.BacklogTodayEmergencies, params.BacklogMode)

	opts := cfg.Planning.Options()
	assert.False(t, opts.Engine.PeakWeighting)
	assert.True(t, opts.Engine.EnforceShiftEnd)
	assert.Equal(t, 5*time.Minute, opts.Engine.Step)
	assert.Equal(t, 4, opts.Responsiveness.MaxWashroomsPerSample)
	assert.Equal(t, 10.0, opts.Responsiveness.Depot.X)
	assert.Equal(t, 20, opts.Scheduler.TaskDurationMinutes)

	variants := cfg.Planning.EngineVariants()
	require.Len(t, variants, 1)
	assert.Equal(t, "peak", variants[0].Name)
	assert.True(t, variants[0].Engine.PeakWeighting)
	assert.Equal(t, 5*time.Minute, variants[0].Engine.Step)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"planning":{"horizon_hours":6},"runlog":{"backend":"none"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6.0, cfg.Planning.HorizonHours)
	assert.Equal(t, DefaultFrequencyHours, cfg.Planning.FrequencyHours)
	assert.False(t, cfg.MQTT.Enabled())
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHorizonHours, cfg.Planning.HorizonHours)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, runlog.BackendJSONL, cfg.RunLog.Backend)
	assert.Equal(t, DefaultIntervalMinutes, cfg.Planning.IntervalMinutes)

	day := time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), cfg.Planning.StartTime(day))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WC_MQTT__BROKER", "tcp://env:1883")
	t.Setenv("WC_PLANNING__HORIZON_HOURS", "8")
	t.Setenv("WC_LOGGING__LEVEL", "warn")
	path := writeConfig(t, "config.yaml", "planning:\n  horizon_hours: 12\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://env:1883", cfg.MQTT.Broker)
	assert.Equal(t, 8.0, cfg.Planning.HorizonHours)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cases := map[string]string{
		"backlog":   "planning:\n  backlog_filter: yesterday\n",
		"start":     "planning:\n  start: tomorrow\n",
		"horizon":   "planning:\n  horizon_hours: -1\n",
		"overtime":  "planning:\n  overtime_multiplier: 0.5\n",
		"variant":   "planning:\n  variants:\n    - peak_weighting: true\n",
		"duplicate": "planning:\n  variants:\n    - name: a\n    - name: a\n",
		"level":     "logging:\n  level: chatty\n",
		"runlog":    "runlog:\n  backend: redis\n",
		"sink":      "metrics:\n  sinks:\n    - conf: {}\n",
		"mqtt qos":  "mqtt:\n  broker: tcp://x:1883\n  qos: 3\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", data))
			assert.Error(t, err)
		})
	}
}

func TestLoadSchedulerFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scheduler.json"),
		[]byte(`{"task_duration_minutes":12,"deadline_slack_minutes":20}`), 0o644))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planning:\n  scheduler_file: scheduler.json\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Planning.Scheduler.TaskDurationMinutes)
	assert.Equal(t, 20, cfg.Planning.Scheduler.DeadlineSlackMinutes)

	require.NoError(t, os.WriteFile(path, []byte("planning:\n  scheduler_file: missing.yaml\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
