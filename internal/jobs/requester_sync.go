// Package jobs defines the River job types lakesync runs in the background.
//
// Import Path: lakesync.dev/lakesync/internal/jobs
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/pkg/logger"
	"lakesync.dev/lakesync/internal/reconcile"
	"lakesync.dev/lakesync/internal/usecase"
)

// MaxLoggedErrors bounds how many per-requester errors a finished job logs.
const MaxLoggedErrors = 10

// RequesterSyncArgs runs one requester reconciliation.
type RequesterSyncArgs struct {
	Trigger string `json:"trigger"`
}

// Kind returns the job kind identifier for requester sync.
func (RequesterSyncArgs) Kind() string { return "requester_sync" }

// InsertOpts disables retries: a failed run waits for the next trigger.
func (RequesterSyncArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
	}
}

// SyncExecutor runs one sync. Implemented by usecase.SyncRequestersUseCase.
type SyncExecutor interface {
	Execute(ctx context.Context, input usecase.SyncRequestersInput) (*usecase.SyncRequestersOutput, error)
}

// RequesterSyncWorker executes RequesterSyncArgs jobs.
type RequesterSyncWorker struct {
	river.WorkerDefaults[RequesterSyncArgs]
	sync    SyncExecutor
	timeout time.Duration
}

// NewRequesterSyncWorker creates the worker. Non-positive timeout means the
// job runs until the reconciler finishes.
func NewRequesterSyncWorker(sync SyncExecutor, timeout time.Duration) *RequesterSyncWorker {
	return &RequesterSyncWorker{sync: sync, timeout: timeout}
}

// Timeout overrides River's one minute default.
func (w *RequesterSyncWorker) Timeout(*river.Job[RequesterSyncArgs]) time.Duration {
	if w == nil || w.timeout <= 0 {
		return -1
	}
	return w.timeout
}

// Work runs the sync. An overlapping run is skipped, not failed; fatal run
// errors are returned so River records the job as failed.
func (w *RequesterSyncWorker) Work(ctx context.Context, job *river.Job[RequesterSyncArgs]) error {
	if w == nil || w.sync == nil {
		return fmt.Errorf("requester sync worker is not initialized")
	}

	trigger := job.Args.Trigger
	if trigger == "" {
		trigger = usecase.TriggerScheduled
	}
	log := logger.With(zap.Int64("job_id", job.ID), zap.String("trigger", trigger))

	out, err := w.sync.Execute(ctx, usecase.SyncRequestersInput{Trigger: trigger})
	if errors.Is(err, reconcile.ErrRunInProgress) {
		log.Warn("requester sync skipped: another run is in progress")
		return nil
	}
	if out != nil && out.Result != nil {
		logRunErrors(log, out.Result.Errors)
	}
	if err != nil {
		return fmt.Errorf("requester sync job %d: %w", job.ID, err)
	}

	if out != nil && out.Result != nil {
		log.Info("requester sync job completed",
			zap.String("run_id", out.RunID.String()),
			zap.String("summary", out.Result.Summary()),
		)
	}
	return nil
}

func logRunErrors(log *zap.Logger, errs []string) {
	if len(errs) == 0 {
		return
	}
	log.Warn("requester sync reported errors", zap.Int("count", len(errs)))
	for i, msg := range errs {
		if i == MaxLoggedErrors {
			log.Warn("further requester sync errors omitted", zap.Int("omitted", len(errs)-MaxLoggedErrors))
			return
		}
		log.Warn("requester sync error", zap.String("error", msg))
	}
}

// PeriodicRequesterSync schedules RequesterSyncArgs every interval. Runs are
// unique per interval so restarts within one period do not duplicate them.
func PeriodicRequesterSync(interval time.Duration, runOnStart bool) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return RequesterSyncArgs{Trigger: usecase.TriggerScheduled}, &river.InsertOpts{
				Queue:       river.QueueDefault,
				MaxAttempts: 1,
				UniqueOpts: river.UniqueOpts{
					ByPeriod: interval,
					ByQueue:  true,
					ByArgs:   true,
				},
			}
		},
		&river.PeriodicJobOpts{RunOnStart: runOnStart},
	)
}
