// Package history indexes finished runs in a local sqlite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// RunRecord is one indexed run.
type RunRecord struct {
	RunID        string `json:"run_id"`
	CreatedAt    string `json:"created_at"`
	Location     string `json:"location"`
	Tasks        int    `json:"tasks"`
	Completed    int    `json:"completed"`
	Violations   int    `json:"violations"`
	Approvals    int    `json:"approvals"`
	PolicyHash   string `json:"policy_hash"`
	ManifestHash string `json:"manifest_hash"`
}

// DB is the run index.
type DB struct {
	db *sql.DB
}

// Open opens or creates the index at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	h := &DB{db: db}
	if err := h.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

func (h *DB) migrate(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL,
	location      TEXT NOT NULL,
	tasks         INTEGER NOT NULL,
	completed     INTEGER NOT NULL,
	violations    INTEGER NOT NULL,
	approvals     INTEGER NOT NULL,
	policy_hash   TEXT NOT NULL,
	manifest_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`)
	if err != nil {
		return fmt.Errorf("failed to migrate history: %w", err)
	}
	return nil
}

// Close closes the database.
func (h *DB) Close() error { return h.db.Close() }

// Record inserts rec, replacing an earlier record with the same run id.
func (h *DB) Record(ctx context.Context, rec RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	_, err := h.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs
	(run_id, created_at, location, tasks, completed, violations, approvals, policy_hash, manifest_hash)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.CreatedAt, rec.Location, rec.Tasks, rec.Completed,
		rec.Violations, rec.Approvals, rec.PolicyHash, rec.ManifestHash)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", rec.RunID, err)
	}
	return nil
}

const selectColumns = `run_id, created_at, location, tasks, completed, violations, approvals, policy_hash, manifest_hash`

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (RunRecord, error) {
	var r RunRecord
	err := s.Scan(&r.RunID, &r.CreatedAt, &r.Location, &r.Tasks, &r.Completed,
		&r.Violations, &r.Approvals, &r.PolicyHash, &r.ManifestHash)
	return r, err
}

// List returns the most recent runs first. limit <= 0 means no limit.
func (h *DB) List(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `SELECT ` + selectColumns + ` FROM runs ORDER BY created_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	out := []RunRecord{}
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the record for runID.
func (h *DB) Get(ctx context.Context, runID string) (RunRecord, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return r, nil
}
