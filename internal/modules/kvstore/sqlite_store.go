package kvstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/events"
)

// SQLiteStore is the Store backed by the kv_entries table.
type SQLiteStore struct {
	repo   *Repository
	locks  *keyLocks
	notify notifier
	log    zerolog.Logger
}

// NewSQLiteStore creates a store over repo that publishes changes on bus.
func NewSQLiteStore(repo *Repository, bus *events.Bus, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		repo:   repo,
		locks:  newKeyLocks(),
		notify: notifier{bus: bus},
		log:    log.With().Str("service", "kvstore").Logger(),
	}
}

// Get returns the value of key and whether it exists.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	value, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// Set writes key and publishes the change once committed.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	unlock := s.locks.lock(key)
	err := s.repo.Upsert(ctx, key, value)
	unlock()
	if err != nil {
		return err
	}

	s.log.Debug().Str("key", key).Int("bytes", len(value)).Msg("Key written")
	s.notify.publish(Change{Key: key, Origin: OriginFrom(ctx)})
	return nil
}

// SetMany writes entries in order, stopping at the first failure.
func (s *SQLiteStore) SetMany(ctx context.Context, entries []Entry) error {
	for i, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value); err != nil {
			return fmt.Errorf("failed to write entry %d of %d: %w", i+1, len(entries), err)
		}
	}
	return nil
}

// Delete removes key. A change is published only when a row was removed.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	unlock := s.locks.lock(key)
	removed, err := s.repo.Delete(ctx, key)
	unlock()
	if err != nil {
		return err
	}
	if removed {
		s.notify.publish(Change{Key: key, Origin: OriginFrom(ctx), Deleted: true})
	}
	return nil
}

// Clear removes every key and publishes one deletion per removed key.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	keys, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int("keys", len(keys)).Msg("Store cleared")

	origin := OriginFrom(ctx)
	for _, key := range keys {
		s.notify.publish(Change{Key: key, Origin: origin, Deleted: true})
	}
	return nil
}

// All returns every entry sorted by key.
func (s *SQLiteStore) All(ctx context.Context) ([]Entry, error) {
	return s.repo.All(ctx)
}

// Subscribe calls fn after each committed write to key ("" for every key).
func (s *SQLiteStore) Subscribe(key string, fn func(Change)) func() {
	return s.notify.subscribe(key, fn)
}
