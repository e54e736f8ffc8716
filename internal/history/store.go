// Package history persists one row per requester sync run.
//
// Import Path: lakesync.dev/lakesync/internal/history
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"lakesync.dev/lakesync/internal/reconcile"
)

// ErrNoRuns is returned by Latest when nothing has been recorded.
var ErrNoRuns = errors.New("no sync runs recorded")

// Schema creates the run history table. Applied by AutoMigrate.
const Schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id               UUID PRIMARY KEY,
	trigger          TEXT        NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL,
	success          BOOLEAN     NOT NULL,
	total_employees  INTEGER     NOT NULL DEFAULT 0,
	total_requesters INTEGER     NOT NULL DEFAULT 0,
	matched          INTEGER     NOT NULL DEFAULT 0,
	updated          INTEGER     NOT NULL DEFAULT 0,
	skipped          INTEGER     NOT NULL DEFAULT 0,
	failed           INTEGER     NOT NULL DEFAULT 0,
	errors           JSONB       NOT NULL DEFAULT '[]'::jsonb,
	failure          TEXT        NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS sync_runs_started_at_idx ON sync_runs (started_at DESC);
`

// Run is one recorded reconciliation run.
type Run struct {
	ID              uuid.UUID `json:"id"`
	Trigger         string    `json:"trigger"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	Success         bool      `json:"success"`
	TotalEmployees  int       `json:"totalEmployees"`
	TotalRequesters int       `json:"totalRequesters"`
	Matched         int       `json:"matched"`
	Updated         int       `json:"updated"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	Errors          []string  `json:"errors"`
	// Failure is the fatal error message, empty for successful runs.
	Failure string `json:"failure,omitempty"`
}

// NewRun builds a Run from a reconcile outcome. result may be nil when the
// run never started.
func NewRun(id uuid.UUID, trigger string, startedAt, finishedAt time.Time, result *reconcile.Result, runErr error) Run {
	run := Run{
		ID:         id,
		Trigger:    trigger,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
		Success:    runErr == nil,
		Errors:     []string{},
	}
	if result != nil {
		run.TotalEmployees = result.TotalEmployees
		run.TotalRequesters = result.TotalRequesters
		run.Matched = result.Matched
		run.Updated = result.Updated
		run.Skipped = result.Skipped
		run.Failed = result.Failed
		run.Errors = append(run.Errors, result.Errors...)
	}
	if runErr != nil {
		run.Failure = runErr.Error()
	}
	return run
}

// Duration is the wall-clock length of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads and writes sync_runs.
type Store struct {
	db DB
}

// NewStore creates a Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Migrate creates the history table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create sync_runs: %w", err)
	}
	return nil
}

// Record inserts one run.
func (s *Store) Record(ctx context.Context, run Run) error {
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	payload, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("encode run errors: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sync_runs (
			id, trigger, started_at, finished_at, success,
			total_employees, total_requesters, matched, updated, skipped, failed,
			errors, failure
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.Trigger, run.StartedAt, run.FinishedAt, run.Success,
		run.TotalEmployees, run.TotalRequesters, run.Matched, run.Updated, run.Skipped, run.Failed,
		payload, run.Failure,
	)
	if err != nil {
		return fmt.Errorf("insert sync run %s: %w", run.ID, err)
	}
	return nil
}

// Latest returns the most recently started run, or ErrNoRuns.
func (s *Store) Latest(ctx context.Context) (Run, error) {
	runs, err := s.List(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, trigger, started_at, finished_at, success,
		       total_employees, total_requesters, matched, updated, skipped, failed,
		       errors, failure
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}

	stored, err := pgx.CollectRows(rows, pgx.RowToStructByName[runRow])
	if err != nil {
		return nil, fmt.Errorf("scan sync runs: %w", err)
	}

	runs := make([]Run, 0, len(stored))
	for _, row := range stored {
		run, err := row.run()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

type runRow struct {
	ID              uuid.UUID `db:"id"`
	Trigger         string    `db:"trigger"`
	StartedAt       time.Time `db:"started_at"`
	FinishedAt      time.Time `db:"finished_at"`
	Success         bool      `db:"success"`
	TotalEmployees  int32     `db:"total_employees"`
	TotalRequesters int32     `db:"total_requesters"`
	Matched         int32     `db:"matched"`
	Updated         int32     `db:"updated"`
	Skipped         int32     `db:"skipped"`
	Failed          int32     `db:"failed"`
	Errors          []byte    `db:"errors"`
	Failure         string    `db:"failure"`
}

func (r runRow) run() (Run, error) {
	errs := []string{}
	if len(r.Errors) > 0 {
		if err := json.Unmarshal(r.Errors, &errs); err != nil {
			return Run{}, fmt.Errorf("decode errors of run %s: %w", r.ID, err)
		}
	}
	return Run{
		ID:              r.ID,
		Trigger:         r.Trigger,
		StartedAt:       r.StartedAt.UTC(),
		FinishedAt:      r.FinishedAt.UTC(),
		Success:         r.Success,
		TotalEmployees:  int(r.TotalEmployees),
		TotalRequesters: int(r.TotalRequesters),
		Matched:         int(r.Matched),
		Updated:         int(r.Updated),
		Skipped:         int(r.Skipped),
		Failed:          int(r.Failed),
		Errors:          errs,
		Failure:         r.Failure,
	}, nil
}
