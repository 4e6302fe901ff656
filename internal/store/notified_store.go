package store

import (
	"context"
	"fmt"
	"time"
)

// HasNotified reports whether a notification with the given dedup key
// has already been emitted. Entries are monotonic: they are only ever
// added, so a true result is final for the life of the key.
func (s *SQLiteStore) HasNotified(ctx context.Context, kind NotifiedKind, key string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notified_keys WHERE kind = ? AND key = ?",
		string(kind), key)
	if err != nil {
		return false, fmt.Errorf("checking notified key %s/%s: %w", kind, key, err)
	}
	return count > 0, nil
}

// AddNotified records a dedup key. Re-adding an existing key is a no-op.
func (s *SQLiteStore) AddNotified(ctx context.Context, kind NotifiedKind, key string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notified_keys (kind, key, created_at) VALUES (?, ?, ?)
		ON CONFLICT(kind, key) DO NOTHING`,
		string(kind), key, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adding notified key %s/%s: %w", kind, key, err)
	}
	return nil
}
