package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/pkg/logger"
)

const riverStopTimeout = 30 * time.Second

// Start starts River, which consumes queued and periodic sync jobs.
func (a *Application) Start(ctx context.Context) error {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Start(ctx); err != nil {
			return fmt.Errorf("start river client: %w", err)
		}
		logger.Info("River client started, jobs will now be consumed")
	}
	return nil
}

// Shutdown gracefully shuts down all application components. A sync job in
// flight gets riverStopTimeout to finish before it is cancelled.
func (a *Application) Shutdown() {
	if a.DB != nil && a.DB.RiverClient != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), riverStopTimeout)
		if err := a.DB.RiverClient.Stop(stopCtx); err != nil {
			logger.Warn("river did not stop cleanly, cancelling running jobs", zap.Error(err))
			if err := a.DB.RiverClient.StopAndCancel(context.Background()); err != nil {
				logger.Error("failed to stop river client", zap.Error(err))
			}
		}
		cancel()
		logger.Info("River client stopped")
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(context.Background()); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.DB != nil {
		a.DB.Close()
	}
}
