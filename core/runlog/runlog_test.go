package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

func sampleRecord(runID, crewID string, ts time.Time) Record {
	return Record{
		RunID:     runID,
		Timestamp: ts,
		Metrics:   model.OptimizationMetrics{AssignedTasks: 1},
		Assignments: []model.CrewAssignment{{
			TaskID: "t1", CrewID: crewID, WashroomID: "w1",
		}},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	if err := s.Append(ctx, sampleRecord("r1", "c1", base)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, sampleRecord("r2", "c2", base.Add(time.Hour))); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := s.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records got %d", len(all))
	}
	byCrew, err := s.Query(ctx, Query{CrewID: "c2"})
	if err != nil {
		t.Fatalf("query crew: %v", err)
	}
	if len(byCrew) != 1 || byCrew[0].RunID != "r2" {
		t.Fatalf("unexpected crew filter result %+v", byCrew)
	}
	late, err := s.Query(ctx, Query{Start: base.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("query start: %v", err)
	}
	if len(late) != 1 || late[0].RunID != "r2" {
		t.Fatalf("unexpected start filter result %+v", late)
	}
	byRun, err := s.Query(ctx, Query{RunID: "r1"})
	if err != nil {
		t.Fatalf("query run: %v", err)
	}
	if len(byRun) != 1 || byRun[0].Assignments[0].CrewID != "c1" {
		t.Fatalf("unexpected run filter result %+v", byRun)
	}
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_ReadsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 3, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	now := time.Now()
	if err := s.Append(ctx, sampleRecord("before", "c1", now)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := s.Append(ctx, sampleRecord("after", "c1", now)); err != nil {
		t.Fatalf("append: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "runs*"))
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
	out, err := s.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 || out[0].RunID != "before" || out[1].RunID != "after" {
		t.Fatalf("unexpected records %+v", out)
	}
}

func TestJSONLStoreDoesNotRotate(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "logs", "runs.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	if err := s.Rotate(); !errors.Is(err, ErrNotRotating) {
		t.Fatalf("expected ErrNotRotating got %v", err)
	}
}

func TestSQLiteStoreCrewFilter(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()
	rec := sampleRecord("r1", "c1", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	rec.Variant = "peak"
	rec.Assignments = append(rec.Assignments,
		model.CrewAssignment{TaskID: "t2", CrewID: "c3"},
		model.CrewAssignment{TaskID: "t3", CrewID: "c3"})
	if err := s.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := s.Query(ctx, Query{CrewID: "c3", Variant: "peak"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || len(got[0].Assignments) != 3 {
		t.Fatalf("unexpected records %+v", got)
	}
	none, err := s.Query(ctx, Query{CrewID: "c3", Variant: "flat"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no record got %+v", none)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{BackendJSONL, BackendRotating, BackendSQLite} {
		cfg := Config{Backend: backend, Path: filepath.Join(dir, backend)}
		cfg.SetDefaults()
		s, err := Open(cfg)
		if err != nil {
			t.Fatalf("open %s: %v", backend, err)
		}
		_ = s.Close()
	}
	s, err := Open(Config{Backend: BackendNone})
	if err != nil {
		t.Fatalf("open none: %v", err)
	}
	if _, ok := s.(NopStore); !ok {
		t.Fatalf("expected NopStore got %T", s)
	}
	if _, err := Open(Config{Backend: "csv", Path: "x"}); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestNewRecord(t *testing.T) {
	res := model.PlanResult{RunID: "r", HorizonHours: 24, Assignments: []model.CrewAssignment{{TaskID: "t"}}}
	rec := NewRecord(res, "peak", time.Unix(0, 0))
	if rec.RunID != "r" || rec.Variant != "peak" || len(rec.Assignments) != 1 || rec.HorizonHours != 24 {
		t.Fatalf("unexpected record %+v", rec)
	}
}
