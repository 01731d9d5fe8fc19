package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS plan_runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT    NOT NULL,
	ts            INTEGER NOT NULL,
	variant       TEXT    NOT NULL DEFAULT '',
	start         INTEGER NOT NULL,
	horizon_hours REAL    NOT NULL,
	assigned      INTEGER NOT NULL,
	unassigned    INTEGER NOT NULL,
	sla_percent   REAL    NOT NULL,
	record        TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS plan_runs_ts ON plan_runs (ts);
CREATE TABLE IF NOT EXISTS run_crews (
	run_id  TEXT    NOT NULL,
	crew_id TEXT    NOT NULL,
	tasks   INTEGER NOT NULL,
	PRIMARY KEY (run_id, crew_id)
);`

// SQLiteStore keeps one row per run plus the crews each run assigned work
// to, so every Query filter runs in SQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes them anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Join(fmt.Errorf("create schema: %w", err), db.Close())
	}
	return &SQLiteStore{db: db}, nil
}

// Append stores the run and its crews in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) (err error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", rec.RunID, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	m := rec.Metrics
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO plan_runs (run_id, ts, variant, start, horizon_hours, assigned, unassigned, sla_percent, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Timestamp.UnixNano(), rec.Variant, rec.Start.UnixNano(), rec.HorizonHours,
		m.AssignedTasks, m.UnassignedTasks, m.SLAComplianceRate, string(b)); err != nil {
		return err
	}
	tasks := make(map[string]int)
	for _, a := range rec.Assignments {
		tasks[a.CrewID]++
	}
	for crew, n := range tasks {
		if _, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO run_crews (run_id, crew_id, tasks) VALUES (?, ?, ?)`,
			rec.RunID, crew, n); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Query returns the matching runs in insertion order.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if !q.Start.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, q.End.UnixNano())
	}
	if q.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, q.RunID)
	}
	if q.Variant != "" {
		where = append(where, "variant = ?")
		args = append(args, q.Variant)
	}
	if q.CrewID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM run_crews c WHERE c.run_id = plan_runs.run_id AND c.crew_id = ?)")
		args = append(args, q.CrewID)
	}
	query := "SELECT record FROM plan_runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
