package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Health is the body of the health endpoints.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health statuses.
const (
	HealthStatusOk       = "ok"
	HealthStatusDegraded = "degraded"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: HealthStatusOk})
}

// GetReadiness handles GET /health/ready. Every configured dependency must answer a ping.
func (s *Server) GetReadiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	allHealthy := true
	for _, name := range names {
		if err := s.checks[name].Ping(ctx); err != nil {
			logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "error"
			allHealthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := HealthStatusOk
	httpStatus := http.StatusOK
	if !allHealthy {
		status = HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, Health{
		Status: status,
		Checks: checks,
	})
}
