package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"lakesync.dev/lakesync/internal/config"
	"lakesync.dev/lakesync/internal/infrastructure"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config      *config.Config
	DB          *infrastructure.DatabaseClients
	Pool        *pgxpool.Pool
	SourcePool  *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
}

// NewInfrastructure opens both database pools and migrates when configured.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return &Infrastructure{
		Config:     cfg,
		DB:         db,
		Pool:       db.Pool,
		SourcePool: db.SourcePool,
	}, nil
}

// InitRiver initializes the River client on top of a prepared worker registry.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.DB == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if err := i.DB.InitRiverClient(workers, periodic, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Close releases infra resources.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
