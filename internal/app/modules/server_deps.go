package modules

import (
	"lakesync.dev/lakesync/internal/api/handlers"
	"lakesync.dev/lakesync/internal/config"
)

// NewServerDeps builds base server deps then lets each module contribute explicit wiring.
func NewServerDeps(cfg *config.Config, infra *Infrastructure, mods []Module) handlers.ServerDeps {
	deps := handlers.ServerDeps{
		Checks: map[string]handlers.Pinger{},
	}
	if cfg != nil {
		deps.RunsLimit = cfg.Sync.HistoryLimit
	}
	if infra != nil {
		// Typed nils must not leak into the interface fields.
		if infra.RiverClient != nil {
			deps.Jobs = infra.RiverClient
		}
		if infra.Pool != nil {
			deps.Checks["database"] = infra.Pool
		}
		if infra.SourcePool != nil {
			deps.Checks["source"] = infra.SourcePool
		}
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		contributor, ok := mod.(ServerDepsContributor)
		if !ok {
			continue
		}
		contributor.ContributeServerDeps(&deps)
	}
	return deps
}
