// Package history records conformance runs in a SQLite database so that a
// subject's progress can be followed across runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lattice-substrate/joml-conformance/report"
)

//go:embed schema.sql
var schemaSQL string

// Memory is the path that opens a private in-memory database.
const Memory = ":memory:"

// Run is one recorded run.
type Run struct {
	RunID     string
	Subject   string
	StartedAt time.Time
	Duration  time.Duration
	Total     int
	Failed    int
}

// FixtureResult is one fixture's verdict within a recorded run.
type FixtureResult struct {
	RunID     string
	StartedAt time.Time
	FixtureID string
	Pass      bool
	Reason    string
	Duration  time.Duration
}

// Store manages the history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == Memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	if path != Memory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if err := execWithRetry(db, p, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// execWithRetry retries statements that fail because another process holds
// the database lock.
func execWithRetry(db *sql.DB, stmt string, attempts int, base time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(base * time.Duration(1<<i))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a run summary and its per-fixture results in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, sum *report.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, subject, started_at, duration_ns, total, failed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Subject, sum.StartedAt.UnixNano(), int64(sum.Duration), sum.Total, len(sum.Failed))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, seq, fixture_id, pass, reason, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range sum.Results {
		if _, err := stmt.ExecContext(ctx, sum.RunID, i, r.ID, r.Pass, r.Reason, int64(r.Duration)); err != nil {
			return fmt.Errorf("insert result %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Runs returns up to limit recorded runs, newest first. A limit <= 0
// returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, subject, started_at, duration_ns, total, failed
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started int64
			dur     int64
		)
		if err := rows.Scan(&r.RunID, &r.Subject, &started, &dur, &r.Total, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.Duration = time.Duration(dur)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FixtureHistory returns the verdicts recorded for one fixture, newest run
// first.
func (s *Store) FixtureHistory(ctx context.Context, fixtureID string, limit int) ([]FixtureResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.run_id, runs.started_at, r.fixture_id, r.pass, r.reason, r.duration_ns
		FROM results r
		JOIN runs ON runs.run_id = r.run_id
		WHERE r.fixture_id = ?
		ORDER BY runs.started_at DESC, runs.rowid DESC
		LIMIT ?`, fixtureID, limit)
	if err != nil {
		return nil, fmt.Errorf("query fixture history: %w", err)
	}
	defer rows.Close()

	var out []FixtureResult
	for rows.Next() {
		var (
			fr      FixtureResult
			started int64
			dur     int64
		)
		if err := rows.Scan(&fr.RunID, &started, &fr.FixtureID, &fr.Pass, &fr.Reason, &dur); err != nil {
			return nil, fmt.Errorf("scan fixture result: %w", err)
		}
		fr.StartedAt = time.Unix(0, started).UTC()
		fr.Duration = time.Duration(dur)
		out = append(out, fr)
	}
	return out, rows.Err()
}
