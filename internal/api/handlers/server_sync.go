package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/api/middleware"
	"lakesync.dev/lakesync/internal/jobs"
	apperrors "lakesync.dev/lakesync/internal/pkg/errors"
	"lakesync.dev/lakesync/internal/pkg/logger"
	"lakesync.dev/lakesync/internal/reconcile"
	"lakesync.dev/lakesync/internal/usecase"
)

// SyncDetails are the run counters of a successful sync.
type SyncDetails struct {
	TotalEmployees  int `json:"totalEmployees"`
	TotalRequesters int `json:"totalRequesters"`
	Matched         int `json:"matched"`
	Updated         int `json:"updated"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
}

// SyncResponse is the body of a completed on-demand sync.
type SyncResponse struct {
	Success   bool        `json:"success"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"runId"`
	Summary   string      `json:"summary"`
	Details   SyncDetails `json:"details"`
	Errors    []string    `json:"errors"`
}

// SyncFailureResponse is the body of a sync that aborted.
type SyncFailureResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Code      string    `json:"code"`
	Error     string    `json:"error"`
	RunID     string    `json:"runId,omitempty"`
}

// SyncEnqueuedResponse is the body of an accepted async trigger.
type SyncEnqueuedResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	JobID     int64     `json:"jobId"`
	Duplicate bool      `json:"duplicate,omitempty"`
}

func newSyncResponse(out *usecase.SyncRequestersOutput) SyncResponse {
	result := out.Result
	if result == nil {
		result = &reconcile.Result{}
	}
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return SyncResponse{
		Success:   true,
		Timestamp: time.Now().UTC(),
		RunID:     out.RunID.String(),
		Summary:   result.Summary(),
		Details: SyncDetails{
			TotalEmployees:  result.TotalEmployees,
			TotalRequesters: result.TotalRequesters,
			Matched:         result.Matched,
			Updated:         result.Updated,
			Skipped:         result.Skipped,
			Failed:          result.Failed,
		},
		Errors: errs,
	}
}

// TriggerRequesterSync handles POST /sync/requesters.
//
// By default the run executes within the request. With ?async=true a River
// job is enqueued and 202 is returned immediately.
func (s *Server) TriggerRequesterSync(c *gin.Context) {
	async := false
	if raw := c.Query("async"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidParameter, "async must be a boolean"))
			return
		}
		async = v
	}

	ctx := c.Request.Context()
	log := logger.With(
		zap.String("request_id", middleware.GetRequestID(ctx)),
		zap.String("subject", middleware.GetSubject(ctx)),
	)

	if async {
		s.enqueueRequesterSync(c, log)
		return
	}

	log.Info("on-demand requester sync requested")
	out, err := s.sync.Execute(ctx, usecase.SyncRequestersInput{Trigger: usecase.TriggerHTTP})
	if err != nil {
		appErr, ok := apperrors.IsAppError(err)
		if !ok {
			appErr = apperrors.Wrap(err, apperrors.CodeSyncFailed, "requester sync failed", http.StatusInternalServerError)
		}
		if appErr.HTTPStatus < http.StatusInternalServerError {
			_ = c.Error(appErr)
			return
		}

		_ = c.Error(err)
		resp := SyncFailureResponse{
			Success:   false,
			Timestamp: time.Now().UTC(),
			Code:      appErr.Code,
			Error:     errorMessage(appErr),
		}
		if out != nil {
			resp.RunID = out.RunID.String()
		}
		c.JSON(appErr.HTTPStatus, resp)
		return
	}

	c.JSON(http.StatusOK, newSyncResponse(out))
}

func (s *Server) enqueueRequesterSync(c *gin.Context, log *zap.Logger) {
	if s.jobs == nil {
		_ = c.Error(apperrors.Unavailable(apperrors.CodeSyncEnqueueFailed, "async sync is not available"))
		return
	}

	res, err := s.jobs.Insert(c.Request.Context(), jobs.RequesterSyncArgs{Trigger: usecase.TriggerHTTPAsync}, nil)
	if err != nil {
		_ = c.Error(apperrors.ErrSyncEnqueueFailedf(err))
		return
	}

	log.Info("requester sync job enqueued",
		zap.Int64("job_id", res.Job.ID),
		zap.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	c.JSON(http.StatusAccepted, SyncEnqueuedResponse{
		Success:   true,
		Timestamp: time.Now().UTC(),
		JobID:     res.Job.ID,
		Duplicate: res.UniqueSkippedAsDuplicate,
	})
}

// errorMessage prefers the underlying cause, which names the failing system.
func errorMessage(appErr *apperrors.AppError) string {
	if appErr.Err != nil {
		return appErr.Err.Error()
	}
	return appErr.Message
}
