package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/pkg/logger"
)

// Fatal run errors. Both abort the run before any write happens.
var (
	ErrSourceFetch = errors.New("fetch source records")
	ErrTargetFetch = errors.New("fetch target records")
)

// DefaultWriteDelay is the pause after every attempted write.
const DefaultWriteDelay = 100 * time.Millisecond

// Reconciler joins source and target records on normalized email and writes
// the owned custom fields onto every requester that is out of date.
//
// Matches are processed strictly one at a time with a fixed pause after each
// write; the pause is what keeps the run under the remote rate limit.
type Reconciler struct {
	source     SourceReader
	target     TargetDirectory
	writeDelay time.Duration
	sleep      func(context.Context, time.Duration)
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithWriteDelay sets the pause after each attempted write. Zero disables it.
func WithWriteDelay(d time.Duration) Option {
	return func(r *Reconciler) { r.writeDelay = d }
}

// WithSleep replaces the pause implementation, mainly for tests.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(r *Reconciler) { r.sleep = sleep }
}

// New creates a Reconciler over the two collaborators.
func New(source SourceReader, target TargetDirectory, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:     source,
		target:     target,
		writeDelay: DefaultWriteDelay,
		sleep:      SleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one full reconciliation pass.
//
// On a fetch failure Run returns the partially built result together with an
// error wrapping ErrSourceFetch or ErrTargetFetch; that result carries a
// trailing error message and must not be trusted as a sync outcome.
// Per-requester write failures never abort the run.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	result := newResult()

	sources, err := r.source.FetchActive(ctx)
	if err != nil {
		return abort(result, fmt.Errorf("%w: %w", ErrSourceFetch, err))
	}
	result.TotalEmployees = len(sources)
	if len(sources) == 0 {
		logger.Warn("no active employees found in source")
		return result, nil
	}

	targets, err := r.target.FetchAll(ctx)
	if err != nil {
		return abort(result, fmt.Errorf("%w: %w", ErrTargetFetch, err))
	}
	result.TotalRequesters = len(targets)
	if len(targets) == 0 {
		logger.Warn("no requesters found in FreshService")
		return result, nil
	}

	lookup := buildLookup(sources)

	for _, target := range targets {
		if strings.TrimSpace(target.PrimaryEmail) == "" {
			continue
		}
		src, ok := lookup[NormalizeEmail(target.PrimaryEmail)]
		if !ok {
			continue
		}

		result.Matched++
		desired := DesiredFields(src)

		if !NeedsUpdate(target.CustomFields, desired) {
			result.Skipped++
			logger.Debug("requester up to date",
				zap.String("email", target.PrimaryEmail),
				zap.Int64("requester_id", target.ID),
			)
			continue
		}

		logger.Debug("updating requester",
			zap.String("email", target.PrimaryEmail),
			zap.Int64("requester_id", target.ID),
		)
		if r.update(ctx, target, desired) {
			result.Updated++
		} else {
			result.recordFailure(target)
		}
		r.sleep(ctx, r.writeDelay)
	}

	return result, nil
}

// update isolates a single write: a panic in the directory client counts as
// a failed write for this requester only.
func (r *Reconciler) update(ctx context.Context, target TargetRecord, desired CustomFields) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("requester update panicked",
				zap.Int64("requester_id", target.ID),
				zap.Any("panic", p),
			)
			ok = false
		}
	}()
	return r.target.UpdateCustomFields(ctx, target.ID, desired)
}

func abort(result *Result, err error) (*Result, error) {
	result.Errors = append(result.Errors, "Sync process error: "+err.Error())
	return result, err
}

// buildLookup indexes source records by normalized email. When two records
// share an address the first one in source order wins.
func buildLookup(sources []SourceRecord) map[string]SourceRecord {
	lookup := make(map[string]SourceRecord, len(sources))
	duplicates := 0
	for _, src := range sources {
		key := NormalizeEmail(src.Email)
		if key == "" {
			continue
		}
		if _, exists := lookup[key]; exists {
			duplicates++
			continue
		}
		lookup[key] = src
	}
	if duplicates > 0 {
		logger.Warn("duplicate source emails ignored, first record kept",
			zap.Int("duplicates", duplicates),
		)
	}
	return lookup
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
