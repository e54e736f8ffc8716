// Package handlers implements the lakesync HTTP API.
//
// Handlers do not register their own routes; the router in internal/app
// binds them.
//
// Import Path: lakesync.dev/lakesync/internal/api/handlers
package handlers

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"lakesync.dev/lakesync/internal/history"
	"lakesync.dev/lakesync/internal/usecase"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// SyncExecutor runs one requester sync synchronously.
type SyncExecutor interface {
	Execute(ctx context.Context, input usecase.SyncRequestersInput) (*usecase.SyncRequestersOutput, error)
}

// JobInserter enqueues River jobs. Satisfied by *river.Client[pgx.Tx].
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// RunHistory reads recorded sync runs.
type RunHistory interface {
	Latest(ctx context.Context) (history.Run, error)
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the API handlers.
type Server struct {
	sync      SyncExecutor
	jobs      JobInserter
	history   RunHistory
	checks    map[string]Pinger
	runsLimit int
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Sync    SyncExecutor
	Jobs    JobInserter // optional: nil disables ?async=true
	History RunHistory  // optional: nil disables /sync/runs
	// Checks are pinged by /health/ready, keyed by the name reported.
	Checks map[string]Pinger
	// RunsLimit caps GET /sync/runs; 0 means the hard maximum.
	RunsLimit int
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	limit := deps.RunsLimit
	if limit <= 0 || limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	return &Server{
		sync:      deps.Sync,
		jobs:      deps.Jobs,
		history:   deps.History,
		checks:    deps.Checks,
		runsLimit: limit,
	}
}
