// Package usecase holds the application services invoked by the HTTP layer
// and the River workers.
//
// Import Path: lakesync.dev/lakesync/internal/usecase
package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/history"
	"lakesync.dev/lakesync/internal/metrics"
	apperrors "lakesync.dev/lakesync/internal/pkg/errors"
	"lakesync.dev/lakesync/internal/pkg/logger"
	"lakesync.dev/lakesync/internal/reconcile"
)

// Run triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerHTTP      = "http"
	TriggerHTTPAsync = "http_async"
)

const recordTimeout = 10 * time.Second

// Runner performs one reconciliation pass.
type Runner interface {
	Run(ctx context.Context) (*reconcile.Result, error)
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	Record(ctx context.Context, run history.Run) error
}

// SyncRequestersInput identifies who asked for the run.
type SyncRequestersInput struct {
	Trigger string
}

// SyncRequestersOutput is the outcome of one run. Result is partial when
// Execute also returns an error.
type SyncRequestersOutput struct {
	RunID      uuid.UUID
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	Result     *reconcile.Result
}

// SyncRequestersUseCase runs the reconciler under the single-run guard and
// records the outcome.
type SyncRequestersUseCase struct {
	runner   Runner
	guard    *reconcile.Guard
	recorder RunRecorder
	now      func() time.Time
}

// NewSyncRequestersUseCase creates a SyncRequestersUseCase.
func NewSyncRequestersUseCase(runner Runner, guard *reconcile.Guard) *SyncRequestersUseCase {
	if guard == nil {
		guard = &reconcile.Guard{}
	}
	return &SyncRequestersUseCase{runner: runner, guard: guard, now: time.Now}
}

// WithRecorder sets the run history recorder (optional dependency).
func (uc *SyncRequestersUseCase) WithRecorder(r RunRecorder) *SyncRequestersUseCase {
	uc.recorder = r
	return uc
}

// Execute runs one sync. A run already in progress yields SYNC_IN_PROGRESS;
// a fatal reconcile error yields an AppError wrapping it, alongside the
// partial output.
func (uc *SyncRequestersUseCase) Execute(ctx context.Context, input SyncRequestersInput) (*SyncRequestersOutput, error) {
	trigger := input.Trigger
	if trigger == "" {
		trigger = TriggerHTTP
	}

	release, err := uc.guard.TryAcquire()
	if err != nil {
		metrics.ObserveRun(trigger, metrics.OutcomeRejected, 0, metrics.RunCounts{})
		logger.Warn("requester sync rejected: run in progress", zap.String("trigger", trigger))
		appErr := apperrors.ErrSyncInProgressf(trigger)
		appErr.Err = err
		return nil, appErr
	}
	defer release()

	runID, err := uuid.NewV7()
	if err != nil {
		runID = uuid.New()
	}
	log := logger.With(zap.String("run_id", runID.String()), zap.String("trigger", trigger))

	out := &SyncRequestersOutput{RunID: runID, Trigger: trigger, StartedAt: uc.now()}
	log.Info("requester sync started")

	// Runs are not cancellable: a dropped request must not fail pending writes.
	result, runErr := uc.runner.Run(context.WithoutCancel(ctx))
	out.FinishedAt = uc.now()
	out.Result = result
	elapsed := out.FinishedAt.Sub(out.StartedAt)

	uc.record(ctx, log, history.NewRun(runID, trigger, out.StartedAt, out.FinishedAt, result, runErr))

	counts := metrics.RunCounts{}
	if result != nil {
		counts = metrics.RunCounts{Matched: result.Matched, Updated: result.Updated, Skipped: result.Skipped, Failed: result.Failed}
	}

	if runErr != nil {
		metrics.ObserveRun(trigger, metrics.OutcomeFailed, elapsed, counts)
		log.Error("requester sync failed", zap.Duration("elapsed", elapsed), zap.Error(runErr))
		return out, classifyRunError(runErr)
	}

	metrics.ObserveRun(trigger, metrics.OutcomeSuccess, elapsed, counts)
	log.Info("requester sync completed",
		zap.String("summary", result.Summary()),
		zap.Duration("elapsed", elapsed),
		zap.Int("errors", len(result.Errors)),
	)
	return out, nil
}

func (uc *SyncRequestersUseCase) record(ctx context.Context, log *zap.Logger, run history.Run) {
	if uc.recorder == nil {
		return
	}
	// The caller may already be gone; the run still happened.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := uc.recorder.Record(ctx, run); err != nil {
		log.Warn("failed to record sync run", zap.Error(err))
	}
}

func classifyRunError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, reconcile.ErrSourceFetch):
		return apperrors.Wrap(err, apperrors.CodeSourceFetchFailed, "failed to read employees from the source database", http.StatusBadGateway)
	case errors.Is(err, reconcile.ErrTargetFetch):
		return apperrors.Wrap(err, apperrors.CodeTargetFetchFailed, "failed to list requesters from FreshService", http.StatusBadGateway)
	default:
		return apperrors.Wrap(err, apperrors.CodeSyncFailed, "requester sync failed", http.StatusInternalServerError)
	}
}
