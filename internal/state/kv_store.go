package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

type KVStoreKey string

// Entry represents one record: key -> value.
type Entry struct {
	Key       KVStoreKey
	Value     string
	CreatedAt time.Time
	LastUsed  time.Time
}

type KVStore struct {
	db *DB
}

// NewKVStore creates the store and ensures the table exists.
func NewKVStore(ctx context.Context, database *DB) (*KVStore, error) {
	if database == nil {
		return nil, errors.New("kv_store: database is nil")
	}
	s := &KVStore{db: database}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var (
	defaultKVMu    sync.Mutex
	defaultKVStore *KVStore
)

func DefaultKVStore(ctx context.Context) (*KVStore, error) {
	defaultKVMu.Lock()
	defer defaultKVMu.Unlock()

	if defaultKVStore == nil {
		db, err := OpenDefault(ctx)
		if err != nil {
			return nil, err
		}
		kv, err := NewKVStore(ctx, db)
		if err != nil {
			return nil, err
		}
		defaultKVStore = kv
	}
	return defaultKVStore, nil
}

func (s *KVStore) ensureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_used  INTEGER NOT NULL
);
`
	if _, err := s.db.Raw().ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("kv_store: ensure schema: %w", err)
	}
	return nil
}

// Get returns the entry for the given key and marks it used.
// found == false means "no row".
func (s *KVStore) Get(ctx context.Context, key KVStoreKey) (entry Entry, found bool, err error) {
	const q = `
SELECT key, value, created_at, last_used
FROM kv_store
WHERE key = ?
`
	row := s.db.Raw().QueryRowContext(ctx, q, key)

	var createdAtUnix, lastUsedUnix int64
	if err = row.Scan(&entry.Key, &entry.Value, &createdAtUnix, &lastUsedUnix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("kv_store: get: %w", err)
	}

	entry.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	entry.LastUsed = time.Unix(lastUsedUnix, 0).UTC()

	_ = s.Touch(ctx, key)

	return entry, true, nil
}

// Upsert sets value for the key. If the row exists,
// it updates the value + last_used; otherwise it inserts a new one.
func (s *KVStore) Upsert(ctx context.Context, key KVStoreKey, value string) error {
	const stmt = `
INSERT INTO kv_store (key, value, created_at, last_used)
VALUES (?, ?, strftime('%s','now'), strftime('%s','now'))
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	last_used = strftime('%s','now');
`
	if _, err := s.db.Raw().ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("kv_store: upsert: %w", err)
	}
	return nil
}

// Touch updates last_used for a given key if it exists.
// No-op if the row doesn't exist.
func (s *KVStore) Touch(ctx context.Context, key KVStoreKey) error {
	const stmt = `
UPDATE kv_store
SET last_used = strftime('%s','now')
WHERE key = ?;
`
	if _, err := s.db.Raw().ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("kv_store: touch: %w", err)
	}
	return nil
}

// Delete removes the entry for the given key, if any.
func (s *KVStore) Delete(ctx context.Context, key KVStoreKey) error {
	const stmt = `DELETE FROM kv_store WHERE key = ?`
	if _, err := s.db.Raw().ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("kv_store: delete: %w", err)
	}
	return nil
}

// List returns the entries whose key starts with prefix, ordered by key.
// It does not mark them used.
func (s *KVStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	const q = `
SELECT key, value, created_at, last_used
FROM kv_store
WHERE substr(key, 1, ?) = ?
ORDER BY key
`
	rows, err := s.db.Raw().QueryContext(ctx, q, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("kv_store: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdAtUnix, lastUsedUnix int64
		if err := rows.Scan(&e.Key, &e.Value, &createdAtUnix, &lastUsedUnix); err != nil {
			return nil, fmt.Errorf("kv_store: list: %w", err)
		}
		e.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		e.LastUsed = time.Unix(lastUsedUnix, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv_store: list: %w", err)
	}
	return out, nil
}

// DeleteUnusedBefore deletes entries under prefix that haven't been used
// since cutoff and returns their keys.
func (s *KVStore) DeleteUnusedBefore(ctx context.Context, prefix string, cutoff time.Time) ([]KVStoreKey, error) {
	var deleted []KVStoreKey
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		const q = `
SELECT key FROM kv_store
WHERE substr(key, 1, ?) = ? AND last_used < ?
ORDER BY key
`
		rows, err := tx.QueryContext(ctx, q, len(prefix), prefix, cutoff.Unix())
		if err != nil {
			return err
		}
		for rows.Next() {
			var k KVStoreKey
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return err
			}
			deleted = append(deleted, k)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, k := range deleted {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv_store: delete unused: %w", err)
	}
	return deleted, nil
}

