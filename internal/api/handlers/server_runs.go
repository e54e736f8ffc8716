package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lakesync.dev/lakesync/internal/history"
	apperrors "lakesync.dev/lakesync/internal/pkg/errors"
)

// RunList is the body of GET /sync/runs.
type RunList struct {
	Items []history.Run `json:"items"`
	Count int           `json:"count"`
}

// ListSyncRuns handles GET /sync/runs?limit=N.
func (s *Server) ListSyncRuns(c *gin.Context) {
	if s.history == nil {
		_ = c.Error(apperrors.Unavailable(apperrors.CodeHistoryDisabled, "run history is not configured"))
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeInvalidParameter, "limit must be a positive integer"))
			return
		}
		limit = v
	}
	if limit > s.runsLimit {
		limit = s.runsLimit
	}

	runs, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	c.JSON(http.StatusOK, RunList{Items: runs, Count: len(runs)})
}

// GetLatestSyncRun handles GET /sync/runs/latest.
func (s *Server) GetLatestSyncRun(c *gin.Context) {
	if s.history == nil {
		_ = c.Error(apperrors.Unavailable(apperrors.CodeHistoryDisabled, "run history is not configured"))
		return
	}

	run, err := s.history.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, history.ErrNoRuns) {
			_ = c.Error(apperrors.ErrRunNotFoundf())
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, run)
}
