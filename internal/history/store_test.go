package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakesync.dev/lakesync/internal/reconcile"
	"lakesync.dev/lakesync/internal/testutil"
)

func TestNewRun_FromResult(t *testing.T) {
	start := time.Date(2026, 3, 1, 2, 0, 0, 0, time.FixedZone("X", 3600))
	end := start.Add(90 * time.Second)
	result := &reconcile.Result{
		TotalEmployees: 3, TotalRequesters: 4,
		Matched: 3, Updated: 1, Skipped: 1, Failed: 1,
		Errors: []string{"Failed to update requester a@co.com (ID: 7)"},
	}

	run := NewRun(uuid.New(), "scheduled", start, end, result, nil)

	assert.True(t, run.Success)
	assert.Empty(t, run.Failure)
	assert.Equal(t, time.UTC, run.StartedAt.Location())
	assert.Equal(t, 90*time.Second, run.Duration())
	assert.Equal(t, 3, run.Matched)
	assert.Equal(t, result.Errors, run.Errors)

	run.Errors[0] = "changed"
	assert.NotEqual(t, "changed", result.Errors[0], "run must not alias the result's slice")
}

func TestNewRun_FatalWithoutResult(t *testing.T) {
	run := NewRun(uuid.New(), "http", time.Now(), time.Now(), nil, errors.New("boom"))

	assert.False(t, run.Success)
	assert.Equal(t, "boom", run.Failure)
	assert.NotNil(t, run.Errors)
	assert.Empty(t, run.Errors)
}

func TestStore_RecordAndList(t *testing.T) {
	pool, _ := testutil.OpenPGXPool(t, "history_store")
	ctx := context.Background()
	store := NewStore(pool)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migration must be repeatable")

	_, err := store.Latest(ctx)
	require.ErrorIs(t, err, ErrNoRuns)

	base := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)
	first := NewRun(uuid.New(), "scheduled", base, base.Add(time.Minute),
		&reconcile.Result{TotalEmployees: 2, Matched: 2, Updated: 2, Errors: []string{}}, nil)
	second := NewRun(uuid.New(), "http", base.Add(time.Hour), base.Add(time.Hour+time.Second),
		&reconcile.Result{TotalEmployees: 1, Errors: []string{"Sync process error: boom"}}, errors.New("boom"))

	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, second))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.False(t, latest.Success)
	assert.Equal(t, "boom", latest.Failure)
	assert.Equal(t, []string{"Sync process error: boom"}, latest.Errors)
	assert.True(t, second.StartedAt.Equal(latest.StartedAt))

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 2, runs[1].Updated)
	assert.Equal(t, []string{}, runs[1].Errors)

	runs, err = store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_RecordDuplicateID(t *testing.T) {
	pool, _ := testutil.OpenPGXPool(t, "history_dup")
	ctx := context.Background()
	store := NewStore(pool)
	require.NoError(t, store.Migrate(ctx))

	run := NewRun(uuid.New(), "http", time.Now(), time.Now(), nil, nil)
	require.NoError(t, store.Record(ctx, run))
	assert.Error(t, store.Record(ctx, run))
}
