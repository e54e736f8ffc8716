package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lakesync.dev/lakesync/internal/api/handlers"
	"lakesync.dev/lakesync/internal/api/middleware"
	"lakesync.dev/lakesync/internal/config"
	"lakesync.dev/lakesync/internal/pkg/logger"
)

// defaultAllowedOrigins applies when server.allowed_origins is empty.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

func newRouter(cfg *config.Config, server *handlers.Server, jwtCfg middleware.JWTConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), cors.New(buildCORSConfig(cfg)), middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/health/live", server.GetLiveness)
	v1.GET("/health/ready", server.GetReadiness)

	protected := v1.Group("", middleware.JWTAuth(jwtCfg))
	protected.POST("/sync/requesters", server.TriggerRequesterSync)
	protected.GET("/sync/runs", server.ListSyncRuns)
	protected.GET("/sync/runs/latest", server.GetLatestSyncRun)

	level := router.Group("/log", middleware.JWTAuth(jwtCfg))
	level.GET("/level", gin.WrapH(logger.LevelHandler()))
	level.PUT("/level", gin.WrapH(logger.LevelHandler()))

	return router
}

func buildCORSConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		// Browsers reject credentialed requests to a wildcard origin.
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, origin := range cfg.Server.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	corsCfg.AllowOrigins = origins
	return corsCfg
}
