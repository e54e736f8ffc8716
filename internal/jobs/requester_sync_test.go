package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	apperrors "lakesync.dev/lakesync/internal/pkg/errors"
	"lakesync.dev/lakesync/internal/pkg/logger"
	"lakesync.dev/lakesync/internal/reconcile"
	"lakesync.dev/lakesync/internal/usecase"
)

func init() {
	_ = logger.Init("error", "json")
}

type stubExecutor struct {
	out   *usecase.SyncRequestersOutput
	err   error
	input usecase.SyncRequestersInput
	calls int
}

func (s *stubExecutor) Execute(_ context.Context, input usecase.SyncRequestersInput) (*usecase.SyncRequestersOutput, error) {
	s.calls++
	s.input = input
	return s.out, s.err
}

func newJob(trigger string) *river.Job[RequesterSyncArgs] {
	return &river.Job[RequesterSyncArgs]{
		JobRow: &rivertype.JobRow{ID: 42, Attempt: 1},
		Args:   RequesterSyncArgs{Trigger: trigger},
	}
}

func TestRequesterSyncArgsKind(t *testing.T) {
	t.Parallel()

	if got := (RequesterSyncArgs{}).Kind(); got != "requester_sync" {
		t.Fatalf("Kind() = %q, want %q", got, "requester_sync")
	}
}

func TestRequesterSyncArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (RequesterSyncArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.MaxAttempts != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", opts.MaxAttempts)
	}
}

func TestRequesterSyncWorkerTimeout(t *testing.T) {
	t.Parallel()

	if got := NewRequesterSyncWorker(nil, 0).Timeout(nil); got != -1 {
		t.Fatalf("Timeout() = %s, want -1 (disabled)", got)
	}
	if got := NewRequesterSyncWorker(nil, time.Hour).Timeout(nil); got != time.Hour {
		t.Fatalf("Timeout() = %s, want %s", got, time.Hour)
	}
}

func TestRequesterSyncWorkerWork_Uninitialized(t *testing.T) {
	t.Parallel()

	t.Run("nil receiver", func(t *testing.T) {
		var w *RequesterSyncWorker
		err := w.Work(context.Background(), newJob(""))
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})

	t.Run("nil executor", func(t *testing.T) {
		w := &RequesterSyncWorker{}
		err := w.Work(context.Background(), newJob(""))
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})
}

func TestRequesterSyncWorkerWork(t *testing.T) {
	t.Parallel()

	manyErrors := make([]string, 25)
	for i := range manyErrors {
		manyErrors[i] = fmt.Sprintf("Failed to update requester u%d@co.com (ID: %d)", i, i)
	}
	fatal := fmt.Errorf("%w: %w", reconcile.ErrTargetFetch, errors.New("status 503"))

	testCases := []struct {
		name        string
		trigger     string
		out         *usecase.SyncRequestersOutput
		err         error
		wantTrigger string
		wantErr     error
	}{
		{
			name:        "empty trigger defaults to scheduled",
			out:         &usecase.SyncRequestersOutput{RunID: uuid.New(), Result: &reconcile.Result{Errors: []string{}}},
			wantTrigger: usecase.TriggerScheduled,
		},
		{
			name:        "async trigger is passed through",
			trigger:     usecase.TriggerHTTPAsync,
			out:         &usecase.SyncRequestersOutput{RunID: uuid.New(), Result: &reconcile.Result{Failed: 25, Errors: manyErrors}},
			wantTrigger: usecase.TriggerHTTPAsync,
		},
		{
			name:        "overlapping run is skipped",
			err:         &apperrors.AppError{Code: apperrors.CodeSyncInProgress, Err: reconcile.ErrRunInProgress},
			wantTrigger: usecase.TriggerScheduled,
		},
		{
			name:        "fatal run error fails the job",
			out:         &usecase.SyncRequestersOutput{RunID: uuid.New(), Result: &reconcile.Result{Errors: []string{"Sync process error: boom"}}},
			err:         fatal,
			wantTrigger: usecase.TriggerScheduled,
			wantErr:     fatal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exec := &stubExecutor{out: tc.out, err: tc.err}
			w := NewRequesterSyncWorker(exec, 0)

			err := w.Work(context.Background(), newJob(tc.trigger))
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Work() error = %v, want nil", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("Work() error = %v, want wrapping %v", err, tc.wantErr)
			}
			if exec.calls != 1 {
				t.Fatalf("Execute calls = %d, want 1", exec.calls)
			}
			if exec.input.Trigger != tc.wantTrigger {
				t.Fatalf("trigger = %q, want %q", exec.input.Trigger, tc.wantTrigger)
			}
		})
	}
}

func TestPeriodicRequesterSync(t *testing.T) {
	t.Parallel()

	if job := PeriodicRequesterSync(6*time.Hour, true); job == nil {
		t.Fatal("PeriodicRequesterSync() = nil")
	}
}
