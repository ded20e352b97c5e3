package backup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Run records one backup written to remote storage.
type Run struct {
	BackupID    string    `json:"backup_id"`
	Destination string    `json:"destination"`
	ObjectKey   string    `json:"object_key"`
	Entries     int       `json:"entries"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// RunRepository handles backup_runs database operations.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new backup run repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repository", "backup_runs").Logger(),
	}
}

// Record inserts run.
func (r *RunRepository) Record(ctx context.Context, run Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backup_runs (backup_id, destination, object_key, entries, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.BackupID, run.Destination, run.ObjectKey, run.Entries, run.SizeBytes, run.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record backup run %s: %w", run.BackupID, err)
	}
	return nil
}

// List returns the recorded runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT backup_id, destination, object_key, entries, size_bytes, created_at
		FROM backup_runs
		ORDER BY created_at DESC, backup_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt int64
		if err := rows.Scan(&run.BackupID, &run.Destination, &run.ObjectKey, &run.Entries, &run.SizeBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup run: %w", err)
		}
		run.CreatedAt = time.Unix(createdAt, 0).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup runs: %w", err)
	}
	return runs, nil
}

// DeleteByObjectKey removes the runs pointing at objectKey.
func (r *RunRepository) DeleteByObjectKey(ctx context.Context, objectKey string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM backup_runs WHERE object_key = ?", objectKey); err != nil {
		return fmt.Errorf("failed to delete backup run for %s: %w", objectKey, err)
	}
	return nil
}
