// Package app is the composition root: it wires modules, River and the router.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"lakesync.dev/lakesync/internal/api/handlers"
	"lakesync.dev/lakesync/internal/api/middleware"
	"lakesync.dev/lakesync/internal/app/modules"
	"lakesync.dev/lakesync/internal/config"
	"lakesync.dev/lakesync/internal/infrastructure"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	syncModule, err := modules.NewSyncModule(infra)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init sync module: %w", err)
	}
	allModules := []modules.Module{syncModule}

	workers := river.NewWorkers()
	var periodic []*river.PeriodicJob
	for _, mod := range allModules {
		mod.RegisterWorkers(workers)
		if contributor, ok := mod.(modules.PeriodicJobContributor); ok {
			periodic = append(periodic, contributor.PeriodicJobs()...)
		}
	}
	if err := infra.InitRiver(workers, periodic); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}

	serverDeps := modules.NewServerDeps(cfg, infra, allModules)
	server := handlers.NewServer(serverDeps)
	jwtCfg := middleware.NewJWTConfig(cfg.Auth.SigningKeys, cfg.Auth.Issuer)

	return &Application{
		Config:  cfg,
		Router:  newRouter(cfg, server, jwtCfg),
		DB:      infra.DB,
		Modules: allModules,
	}, nil
}
