// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/config"
	"github.com/aristath/reportdesk/internal/database"
	"github.com/aristath/reportdesk/internal/modules/backup"
	"github.com/aristath/reportdesk/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers every job on its schedule.
// Returns JobInstances for manual triggering via API
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.RemoteBackup == nil {
		return nil, fmt.Errorf("remote backup service not initialized")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{}

	// Remote backup upload and rotation
	remoteBackup := backup.NewJob(container.RemoteBackup)
	if err := container.Scheduler.AddJob(cfg.BackupSchedule, remoteBackup); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", remoteBackup.Name(), err)
	}
	instances.RemoteBackup = remoteBackup

	// WAL growth check
	walCheckpoints := scheduler.NewCheckWALCheckpointsJob(map[string]*database.DB{
		"store": container.StoreDB,
	})
	walCheckpoints.SetLogger(log.With().Str("job", "check_wal_checkpoints").Logger())
	if err := container.Scheduler.AddJob(cfg.WALSchedule, walCheckpoints); err != nil {
		return nil, fmt.Errorf("failed to register %s job: %w", walCheckpoints.Name(), err)
	}
	instances.WALCheckpoints = walCheckpoints

	log.Info().Msg("Jobs registered")

	return instances, nil
}
