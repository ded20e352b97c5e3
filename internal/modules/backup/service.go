package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/events"
	"github.com/aristath/reportdesk/internal/modules/kvstore"
)

// restoreOriginPrefix tags the writes of a restore so that every dashboard instance,
// including the one that requested it, re-reads the restored keys.
const restoreOriginPrefix = "restore:"

// Service exports and restores the key-value store.
type Service struct {
	store  kvstore.Store
	events *events.Manager
	clock  func() time.Time
	log    zerolog.Logger
}

// NewService creates a backup service over store.
func NewService(store kvstore.Store, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		events: eventManager,
		clock:  time.Now,
		log:    log.With().Str("service", "backup").Logger(),
	}
}

// Export captures every entry of the store.
func (s *Service) Export(ctx context.Context) (Archive, error) {
	entries, err := s.store.All(ctx)
	if err != nil {
		return Archive{}, fmt.Errorf("failed to read store: %w", err)
	}
	return Archive{
		Version:   ArchiveVersion,
		CreatedAt: s.clock().UTC(),
		BackupID:  uuid.NewString(),
		Data:      entries,
	}, nil
}

// Restore replaces the whole store with the entries of archive and returns how many
// were written. Keys are written one by one, so observers may briefly see a mix of old
// and restored state.
func (s *Service) Restore(ctx context.Context, archive Archive) (int, error) {
	id := archive.BackupID
	if id == "" {
		id = uuid.NewString()
	}
	ctx = kvstore.WithOrigin(ctx, restoreOriginPrefix+id)

	if err := s.store.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear store before restore: %w", err)
	}
	if err := s.store.SetMany(ctx, archive.Data); err != nil {
		return 0, fmt.Errorf("failed to restore backup %s: %w", id, err)
	}

	s.log.Info().
		Str("backup_id", id).
		Int("entries", len(archive.Data)).
		Msg("Backup restored")
	return len(archive.Data), nil
}

func (s *Service) emitCompleted(id string, entries int, destination string) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped("backup", &events.BackupCompletedData{
		BackupID:    id,
		Entries:     entries,
		Destination: destination,
	})
}
