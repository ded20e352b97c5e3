// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/config"
	"github.com/aristath/reportdesk/internal/events"
	"github.com/aristath/reportdesk/internal/modules/backup"
	"github.com/aristath/reportdesk/internal/modules/dashboard"
	"github.com/aristath/reportdesk/internal/modules/kvstore"
)

// InitializeServices creates the event bus, the store and every service on top of it.
// The configuration is refreshed from persisted settings once the store exists, and
// the dashboard replays persisted state before it is returned.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.StoreDB == nil {
		return fmt.Errorf("container has no store database")
	}

	// Events
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	// Storage
	repo := kvstore.NewRepository(container.StoreDB.Conn(), log)
	container.Store = kvstore.NewSQLiteStore(repo, container.EventBus, log)

	// Persisted settings take precedence over the environment
	if err := cfg.UpdateFromSettings(ctx, container.Store); err != nil {
		log.Warn().Err(err).Msg("Failed to update config from settings, using environment variables")
	}

	// Dashboard
	container.DashboardService = dashboard.NewService(container.Store, container.EventManager, dashboard.Options{
		StoreCode:        cfg.StoreCode,
		LocationPrefixes: cfg.LocationPrefixes,
	}, log)
	if err := container.DashboardService.Load(ctx); err != nil {
		return fmt.Errorf("failed to load dashboard state: %w", err)
	}

	// Backups
	container.BackupService = backup.NewService(container.Store, container.EventManager, log)
	container.BackupRuns = backup.NewRunRepository(container.StoreDB.Conn(), log)

	var objects backup.ObjectStore
	r2cfg := backup.R2Config{
		AccountID:       cfg.R2.AccountID,
		AccessKeyID:     cfg.R2.AccessKeyID,
		SecretAccessKey: cfg.R2.SecretAccessKey,
		BucketName:      cfg.R2.BucketName,
		Endpoint:        cfg.R2.Endpoint,
	}
	if r2cfg.Configured() {
		client, err := backup.NewR2Client(ctx, r2cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create R2 client, remote backup disabled")
		} else {
			objects = client
		}
	} else {
		log.Info().Msg("R2 credentials not configured, remote backup disabled")
	}
	container.RemoteBackup = backup.NewR2BackupService(container.BackupService, objects, container.BackupRuns, cfg.BackupRetention)

	log.Info().
		Str("origin", container.DashboardService.Origin()).
		Bool("remote_backup", container.RemoteBackup.Enabled()).
		Msg("Services initialized")

	return nil
}
