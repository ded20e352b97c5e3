package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/database"
)

// Repository handles kv_entries database operations.
// Every key is one row; updated_at records the unix time of the last write.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new key-value repository.
//
// Parameters:
//   - db: Database connection to store.db
//   - log: Structured logger
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "kvstore").Logger(),
	}
}

// Get retrieves a value by key.
// Returns nil if the key doesn't exist (not an error).
//
// Returns:
//   - *string: Value if found, nil if not found
//   - error: Error if query fails
func (r *Repository) Get(ctx context.Context, key string) (*string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return &value, nil
}

// Upsert inserts or replaces the value of key.
func (r *Repository) Upsert(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Returns whether a row was removed.
func (r *Repository) Delete(ctx context.Context, key string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key)
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for key %s: %w", key, err)
	}
	return n > 0, nil
}

// DeleteAll removes every key and returns the keys that were removed.
func (r *Repository) DeleteAll(ctx context.Context) ([]string, error) {
	var keys []string
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT key FROM kv_entries ORDER BY key")
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan key: %w", err)
			}
			keys = append(keys, key)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating keys: %w", err)
		}
		rows.Close()

		if _, err := tx.ExecContext(ctx, "DELETE FROM kv_entries"); err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// All retrieves every entry ordered by key.
func (r *Repository) All(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM kv_entries ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to get all entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan entry row")
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored keys.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}
