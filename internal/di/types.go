/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"context"
	"errors"

	"github.com/aristath/reportdesk/internal/database"
	"github.com/aristath/reportdesk/internal/events"
	"github.com/aristath/reportdesk/internal/modules/backup"
	"github.com/aristath/reportdesk/internal/modules/dashboard"
	"github.com/aristath/reportdesk/internal/modules/kvstore"
	"github.com/aristath/reportdesk/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Database
	StoreDB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Storage
	Store kvstore.Store

	// Services
	DashboardService *dashboard.Service
	BackupService    *backup.Service
	BackupRuns       *backup.RunRepository
	RemoteBackup     *backup.R2BackupService

	// Scheduling
	Scheduler *scheduler.Scheduler
}

// Close flushes pending writes and closes the database.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.DashboardService != nil {
		if err := c.DashboardService.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.StoreDB != nil {
		if err := c.StoreDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobInstances holds references to all registered jobs for manual triggering
type JobInstances struct {
	RemoteBackup   scheduler.Job
	WALCheckpoints scheduler.Job
}

// All returns every registered job.
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.RemoteBackup, j.WALCheckpoints}
}
