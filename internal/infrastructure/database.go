// Package infrastructure provides database and connection pool setup.
//
// The application pool hosts the River queue tables and sync run history.
// The source pool reads the employee database and is never written to.
//
// Import Path: lakesync.dev/lakesync/internal/infrastructure
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"lakesync.dev/lakesync/internal/config"
	"lakesync.dev/lakesync/internal/history"
	"lakesync.dev/lakesync/internal/pkg/logger"
)

// DatabaseClients contains all database-related clients.
type DatabaseClients struct {
	// Pool is the application pool shared by River and the history store.
	Pool *pgxpool.Pool

	// SourcePool reads the employee source of truth.
	SourcePool *pgxpool.Pool

	// RiverClient is the River job queue client backed by Pool.
	RiverClient *river.Client[pgx.Tx]
}

// NewDatabaseClients opens both pools and verifies connectivity.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig, src config.SourceConfig) (*DatabaseClients, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = time.Minute

	// Set UTC timezone on each new connection
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := openPool(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("application database: %w", err)
	}

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)

	sourcePool, err := NewSourcePool(ctx, src)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &DatabaseClients{
		Pool:       pool,
		SourcePool: sourcePool,
	}, nil
}

// NewSourcePool opens the read-only employee database pool. Every session is
// marked read only so a stray write fails at the server.
func NewSourcePool(ctx context.Context, cfg config.SourceConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY")
		return err
	}

	pool, err := openPool(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("source database: %w", err)
	}
	logger.Info("Source database pool created", zap.Int32("max_conns", poolConfig.MaxConns))
	return pool, nil
}

func openPool(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// AutoMigrate creates the River queue tables and the sync run history table.
func (c *DatabaseClients) AutoMigrate(ctx context.Context) error {
	logger.Info("Running River migration...")
	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed",
			zap.Int("versions_applied", len(res.Versions)),
		)
	} else {
		logger.Info("River migration: already up-to-date")
	}

	if err := history.NewStore(c.Pool).Migrate(ctx); err != nil {
		return fmt.Errorf("history migrate: %w", err)
	}
	logger.Info("Sync run history table ready")
	return nil
}

// InitRiverClient creates a River client with registered workers and
// periodic jobs. Called after NewDatabaseClients; workers come from bootstrap.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, periodic []*river.PeriodicJob, cfg config.RiverConfig) error {
	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:                     workers,
		PeriodicJobs:                periodic,
		CompletedJobRetentionPeriod: cfg.CompletedJobRetentionPeriod,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("River client initialized",
		zap.Int("max_workers", cfg.MaxWorkers),
		zap.Int("periodic_jobs", len(periodic)),
	)
	return nil
}

// Ping checks both pools.
func (c *DatabaseClients) Ping(ctx context.Context) error {
	if c.Pool != nil {
		if err := c.Pool.Ping(ctx); err != nil {
			return fmt.Errorf("application database: %w", err)
		}
	}
	if c.SourcePool != nil {
		if err := c.SourcePool.Ping(ctx); err != nil {
			return fmt.Errorf("source database: %w", err)
		}
	}
	return nil
}

// Close closes all connection pools gracefully.
func (c *DatabaseClients) Close() {
	if c.SourcePool != nil {
		c.SourcePool.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
