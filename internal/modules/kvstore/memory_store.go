package kvstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/reportdesk/internal/events"
)

// MemoryStore is a Store kept in process memory. It backs the dashboard when no data
// directory is configured and stands in for the database in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	notify notifier
}

// NewMemoryStore creates an empty store publishing changes on bus.
func NewMemoryStore(bus *events.Bus) *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]string),
		notify: notifier{bus: bus},
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()

	s.notify.publish(Change{Key: key, Origin: OriginFrom(ctx)})
	return nil
}

func (s *MemoryStore) SetMany(ctx context.Context, entries []Entry) error {
	for i, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value); err != nil {
			return fmt.Errorf("failed to write entry %d of %d: %w", i+1, len(entries), err)
		}
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	_, ok := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if ok {
		s.notify.publish(Change{Key: key, Origin: OriginFrom(ctx), Deleted: true})
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.data = make(map[string]string)
	s.mu.Unlock()

	sort.Strings(keys)
	origin := OriginFrom(ctx)
	for _, key := range keys {
		s.notify.publish(Change{Key: key, Origin: origin, Deleted: true})
	}
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.data))
	for k, v := range s.data {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *MemoryStore) Subscribe(key string, fn func(Change)) func() {
	return s.notify.subscribe(key, fn)
}
