package modules

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"

	"lakesync.dev/lakesync/internal/api/handlers"
	"lakesync.dev/lakesync/internal/freshservice"
	"lakesync.dev/lakesync/internal/history"
	"lakesync.dev/lakesync/internal/jobs"
	"lakesync.dev/lakesync/internal/reconcile"
	"lakesync.dev/lakesync/internal/source"
	"lakesync.dev/lakesync/internal/usecase"
)

// SyncModule wires the requester reconciliation: source reader, FreshService
// client, reconciler, run history and the River worker that drives it.
type SyncModule struct {
	infra   *Infrastructure
	history *history.Store
	syncUC  *usecase.SyncRequestersUseCase
}

// NewSyncModule creates the sync module. Both database pools must be open.
func NewSyncModule(infra *Infrastructure) (*SyncModule, error) {
	if infra == nil || infra.Config == nil || infra.Pool == nil || infra.SourcePool == nil {
		return nil, fmt.Errorf("sync module requires config, application pool, and source pool")
	}
	cfg := infra.Config

	client, err := freshservice.NewClient(freshservice.Config{
		BaseURL:           cfg.FreshService.BaseURL,
		APIKey:            cfg.FreshService.APIKey,
		PageSize:          cfg.FreshService.PageSize,
		PageDelay:         cfg.FreshService.PageDelay,
		Timeout:           cfg.FreshService.RequestTimeout,
		RequestsPerMinute: cfg.FreshService.RequestsPerMinute,
		BreakerFailures:   cfg.FreshService.BreakerFailures,
		BreakerTimeout:    cfg.FreshService.BreakerTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init freshservice client: %w", err)
	}

	reader := source.NewReader(infra.SourcePool, cfg.Source.QueryTimeout)
	reconciler := reconcile.New(reader, client, reconcile.WithWriteDelay(cfg.FreshService.WriteDelay))
	store := history.NewStore(infra.Pool)
	syncUC := usecase.NewSyncRequestersUseCase(reconciler, &reconcile.Guard{}).WithRecorder(store)

	return &SyncModule{
		infra:   infra,
		history: store,
		syncUC:  syncUC,
	}, nil
}

func (m *SyncModule) Name() string { return "sync" }

func (m *SyncModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Sync = m.syncUC
	deps.History = m.history
}

func (m *SyncModule) RegisterWorkers(workers *river.Workers) {
	if workers == nil || m == nil {
		return
	}
	river.AddWorker(workers, jobs.NewRequesterSyncWorker(m.syncUC, 0))
}

// PeriodicJobs schedules the requester sync when sync.enabled is set.
func (m *SyncModule) PeriodicJobs() []*river.PeriodicJob {
	if m == nil || m.infra == nil || m.infra.Config == nil || !m.infra.Config.Sync.Enabled {
		return nil
	}
	sc := m.infra.Config.Sync
	return []*river.PeriodicJob{jobs.PeriodicRequesterSync(sc.Interval, sc.RunOnStart)}
}

func (m *SyncModule) Shutdown(context.Context) error { return nil }
