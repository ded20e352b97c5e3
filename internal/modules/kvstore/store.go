// Package kvstore is the persistence capability of the dashboard: a flat string key-value
// store with change notifications.
//
// Values are opaque strings (raw report text or JSON). Writes to one key are serialized;
// there is no cross-key atomicity, so a multi-key restore may briefly be visible half
// applied.
package kvstore

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when an operation is given an empty key.
var ErrEmptyKey = errors.New("empty key")

// Entry is one key-value pair.
type Entry struct {
	Key   string `json:"key" msgpack:"key"`
	Value string `json:"value" msgpack:"value"`
}

// Change describes a committed write.
type Change struct {
	Key     string
	Origin  string
	Deleted bool
}

// Store is the key-value capability injected into the dashboard.
type Store interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes one key.
	Set(ctx context.Context, key, value string) error
	// SetMany writes several keys one after another. It is not atomic.
	SetMany(ctx context.Context, entries []Entry) error
	// Delete removes one key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key.
	Clear(ctx context.Context) error
	// All returns every entry sorted by key.
	All(ctx context.Context) ([]Entry, error)
	// Subscribe calls fn after every committed write to key, or to any key when key is
	// empty. The returned function cancels the subscription.
	Subscribe(key string, fn func(Change)) func()
}

type originKey struct{}

// WithOrigin tags writes made with ctx as coming from origin, so that the writer can
// recognize and ignore the notifications of its own writes.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin attached to ctx, or "".
func OriginFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}
