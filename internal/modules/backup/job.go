package backup

import (
	"context"
	"time"
)

// uploadTimeout bounds one scheduled upload.
const uploadTimeout = 5 * time.Minute

// Job uploads a backup on the scheduler's timetable.
type Job struct {
	service *R2BackupService
}

// NewJob creates the scheduled backup job.
func NewJob(service *R2BackupService) *Job {
	return &Job{service: service}
}

// Name returns the job name
func (j *Job) Name() string {
	return "r2_backup"
}

// Run uploads one backup. It does nothing when no bucket is configured.
func (j *Job) Run() error {
	if !j.service.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	_, err := j.service.Upload(ctx)
	return err
}
