// Package main applies the River queue and sync run history migrations.
//
// The server can migrate on startup with database.auto_migrate; this command
// is the explicit path for deployments that keep that off.
//
// Import Path: lakesync.dev/lakesync/cmd/migrate
package main

import (
	"context"
	"fmt"
	"os"

	"lakesync.dev/lakesync/internal/config"
	"lakesync.dev/lakesync/internal/infrastructure"
	"lakesync.dev/lakesync/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database, cfg.Source)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	logger.Info("Starting migrations...")
	if err := db.AutoMigrate(ctx); err != nil {
		return err
	}
	logger.Info("Migrations completed")
	return nil
}
