package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DestinationR2 names remote backups in run records and events.
const DestinationR2 = "r2"

// ObjectPrefix is the key prefix of every backup object.
const ObjectPrefix = "reportdesk/backups/"

// ErrRemoteNotConfigured is returned when remote backup is used without credentials.
var ErrRemoteNotConfigured = errors.New("remote backup is not configured")

// R2BackupService uploads archives to remote storage and keeps the newest ones.
type R2BackupService struct {
	backup    *Service
	objects   ObjectStore
	runs      *RunRepository
	retention int

	// mu prevents a scheduled and a manual upload from rotating concurrently.
	mu sync.Mutex
}

// NewR2BackupService creates the remote backup service. objects may be nil when no
// bucket is configured; runs may be nil to skip recording. retention <= 0 keeps every
// backup.
func NewR2BackupService(backup *Service, objects ObjectStore, runs *RunRepository, retention int) *R2BackupService {
	return &R2BackupService{
		backup:    backup,
		objects:   objects,
		runs:      runs,
		retention: retention,
	}
}

// Enabled reports whether a bucket is configured.
func (s *R2BackupService) Enabled() bool {
	return s.objects != nil
}

// Upload exports the store, uploads it as MessagePack and rotates old backups.
func (s *R2BackupService) Upload(ctx context.Context) (Run, error) {
	if s.objects == nil {
		return Run{}, ErrRemoteNotConfigured
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	archive, err := s.backup.Export(ctx)
	if err != nil {
		return Run{}, err
	}
	data, err := Encode(archive, FormatMsgpack)
	if err != nil {
		return Run{}, err
	}

	key := ObjectKey(archive)
	if err := s.objects.Upload(ctx, key, data, FormatMsgpack.ContentType()); err != nil {
		return Run{}, err
	}

	run := Run{
		BackupID:    archive.BackupID,
		Destination: DestinationR2,
		ObjectKey:   key,
		Entries:     len(archive.Data),
		SizeBytes:   int64(len(data)),
		CreatedAt:   archive.CreatedAt,
	}
	if s.runs != nil {
		if err := s.runs.Record(ctx, run); err != nil {
			s.backup.log.Warn().Err(err).Str("backup_id", run.BackupID).Msg("Failed to record backup run")
		}
	}

	if err := s.rotate(ctx); err != nil {
		s.backup.log.Warn().Err(err).Msg("Failed to rotate old backups")
	}

	s.backup.log.Info().
		Str("backup_id", run.BackupID).
		Str("key", key).
		Int("entries", run.Entries).
		Int64("bytes", run.SizeBytes).
		Msg("Backup uploaded")
	s.backup.emitCompleted(run.BackupID, run.Entries, DestinationR2)
	return run, nil
}

// List returns the stored backups, newest first.
func (s *R2BackupService) List(ctx context.Context) ([]ObjectInfo, error) {
	if s.objects == nil {
		return nil, ErrRemoteNotConfigured
	}
	return s.objects.List(ctx, ObjectPrefix)
}

// RestoreObject downloads the backup stored under key and restores it.
func (s *R2BackupService) RestoreObject(ctx context.Context, key string) (int, error) {
	if s.objects == nil {
		return 0, ErrRemoteNotConfigured
	}
	if !strings.HasPrefix(key, ObjectPrefix) {
		return 0, fmt.Errorf("%w: %q is not a backup object", ErrMalformedArchive, key)
	}

	data, err := s.objects.Download(ctx, key)
	if err != nil {
		return 0, err
	}
	format, err := ParseFormat(key)
	if err != nil {
		return 0, err
	}
	archive, err := Decode(data, format)
	if err != nil {
		return 0, err
	}
	return s.backup.Restore(ctx, archive)
}

// rotate deletes all but the newest retention backups.
func (s *R2BackupService) rotate(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	objects, err := s.objects.List(ctx, ObjectPrefix)
	if err != nil {
		return err
	}
	if len(objects) <= s.retention {
		return nil
	}

	var errs []error
	for _, obj := range objects[s.retention:] {
		if err := s.objects.Delete(ctx, obj.Key); err != nil {
			errs = append(errs, err)
			continue
		}
		if s.runs != nil {
			if err := s.runs.DeleteByObjectKey(ctx, obj.Key); err != nil {
				errs = append(errs, err)
			}
		}
		s.backup.log.Debug().Str("key", obj.Key).Msg("Old backup deleted")
	}
	return errors.Join(errs...)
}

// ObjectKey returns the object key of archive. Keys sort by creation time.
func ObjectKey(archive Archive) string {
	return fmt.Sprintf("%sbackup-%s-%s%s",
		ObjectPrefix,
		archive.CreatedAt.UTC().Format("20060102T150405Z"),
		archive.BackupID,
		FormatMsgpack.Extension(),
	)
}
