package scheduler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGenerateFixedFrequency(t *testing.T) {
	s := New(DefaultConfig())
	reqs := []model.CleaningRequirement{
		{WashroomID: "w1", NumCleanings: 12},
		{WashroomID: "w2", NumCleanings: 12},
	}
	tasks := s.Generate(reqs, Params{Start: day, HorizonHours: 24, FrequencyHours: 2})
	per := map[string][]model.Task{}
	for _, tk := range tasks {
		per[tk.WashroomID] = append(per[tk.WashroomID], tk)
	}
	for _, id := range []string{"w1", "w2"} {
		list := per[id]
		if len(list) != 12 {
			t.Fatalf("%s: expected 12 tasks got %d", id, len(list))
		}
		for i, tk := range list {
			want := day.Add(time.Duration(i+1) * 2 * time.Hour)
			if !tk.RequiredAt.Equal(want) {
				t.Fatalf("%s task %d at %v want %v", id, i, tk.RequiredAt, want)
			}
		}
	}
}

func TestGenerateCapsAtFeasibleSlots(t *testing.T) {
	s := New(DefaultConfig())
	reqs := []model.CleaningRequirement{{WashroomID: "w1", NumCleanings: 20, FrequencyHours: 4}}
	tasks := s.Generate(reqs, Params{Start: day, HorizonHours: 24})
	if len(tasks) != 6 {
		t.Fatalf("expected 6 feasible slots got %d", len(tasks))
	}
}

func TestGenerateEvenSpacingFallback(t *testing.T) {
	s := New(DefaultConfig())
	reqs := []model.CleaningRequirement{{WashroomID: "w1", NumCleanings: 3}}
	tasks := s.Generate(reqs, Params{Start: day, HorizonHours: 24})
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks got %d", len(tasks))
	}
	for i, tk := range tasks {
		want := day.Add(time.Duration(i+1) * 6 * time.Hour)
		if !tk.RequiredAt.Equal(want) {
			t.Fatalf("task %d at %v want %v", i, tk.RequiredAt, want)
		}
	}
}

func TestGeneratedTaskShape(t *testing.T) {
	s := New(DefaultConfig())
	tasks := s.Generate([]model.CleaningRequirement{
		{WashroomID: "w1", NumCleanings: 1, FrequencyHours: 1},
		{WashroomID: "w2", NumCleanings: 1, FrequencyHours: 1},
	}, Params{Start: day, HorizonHours: 8})
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks got %d", len(tasks))
	}
	tk := tasks[0]
	if tk.Type != model.TaskRoutine || tk.Priority != model.PriorityNormal || tk.EstimatedMinutes != 15 {
		t.Fatalf("bad task %#v", tk)
	}
	if tk.Deadline == nil || tk.Deadline.Sub(tk.RequiredAt) != 30*time.Minute {
		t.Fatalf("deadline should be 30 minutes after required time")
	}
	if tk.ID == tasks[1].ID {
		t.Fatalf("task ids must be unique")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if err := (Config{TaskDurationMinutes: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero duration")
	}
	if err := (Config{TaskDurationMinutes: 15, DeadlineSlackMinutes: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative slack")
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader("task_duration_minutes: 20\n"), "yaml")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.TaskDurationMinutes != 20 || cfg.DeadlineSlackMinutes != 30 {
		t.Fatalf("bad cfg %#v", cfg)
	}
	cfg, err = DecodeConfig(strings.NewReader(`{"deadline_slack_minutes":45}`), "JSON")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if cfg.TaskDurationMinutes != 15 || cfg.DeadlineSlackMinutes != 45 {
		t.Fatalf("bad cfg %#v", cfg)
	}
	if _, err := DecodeConfig(strings.NewReader(""), "yaml"); err != nil {
		t.Fatalf("empty document keeps defaults: %v", err)
	}
}

func TestDecodeConfigErrors(t *testing.T) {
	cases := map[string]struct{ body, format string }{
		"format":     {"{}", "toml"},
		"syntax":     {":", "yaml"},
		"unknown":    {"mop_minutes: 3\n", "yaml"},
		"validation": {`{"task_duration_minutes":0}`, "json"},
	}
	for name, c := range cases {
		if _, err := DecodeConfig(strings.NewReader(c.body), c.format); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yml")
	if err := os.WriteFile(path, []byte("task_duration_minutes: 25\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TaskDurationMinutes != 25 {
		t.Fatalf("bad cfg %#v", cfg)
	}
	if _, err := LoadConfig(path + ".missing"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
