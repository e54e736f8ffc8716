package errors

import "net/http"

// Sync run error codes.
const (
	CodeSourceFetchFailed = "SOURCE_FETCH_FAILED"
	CodeTargetFetchFailed = "TARGET_FETCH_FAILED"
	CodeSyncFailed        = "SYNC_FAILED"
	CodeSyncInProgress    = "SYNC_IN_PROGRESS"
	CodeSyncEnqueueFailed = "SYNC_ENQUEUE_FAILED"
)

// Run history error codes.
const (
	CodeRunNotFound      = "RUN_NOT_FOUND"
	CodeHistoryDisabled  = "HISTORY_DISABLED"
	CodeInvalidParameter = "INVALID_PARAMETER"
)

// Auth error codes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// ErrSyncInProgressf reports an overlapping trigger.
func ErrSyncInProgressf(trigger string) *AppError {
	return Conflict(CodeSyncInProgress, "a requester sync run is already in progress").
		WithParams(map[string]interface{}{"trigger": trigger})
}

// ErrRunNotFoundf reports an empty run history.
func ErrRunNotFoundf() *AppError {
	return NotFound(CodeRunNotFound, "no sync run has been recorded yet")
}

// ErrSyncEnqueueFailedf wraps a River insert failure.
func ErrSyncEnqueueFailedf(err error) *AppError {
	return Wrap(err, CodeSyncEnqueueFailed, "could not enqueue sync job", http.StatusServiceUnavailable)
}
