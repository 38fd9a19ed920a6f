// internal/draft/sqlite.go
//
// SQLite-backed KV for users who prefer a single database file over a
// directory of JSON documents. Selected via the storage preference.

package draft

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteKV implements KV on a single sqlite database.
type SQLiteKV struct {
	db    *sql.DB
	quota int64
}

// NewSQLiteKV opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("draft: open sqlite store: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("draft: ensure sqlite schema: %w", err)
	}
	return &SQLiteKV{db: db, quota: DefaultQuota}, nil
}

// Close releases the database handle.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

// Get reads a stored value.
func (s *SQLiteKV) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("draft: read %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a value.
func (s *SQLiteKV) Set(key string, value []byte) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`, key, value)
	if err != nil {
		return fmt.Errorf("draft: write %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *SQLiteKV) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("draft: delete %s: %w", key, err)
	}
	return nil
}

// Keys returns stored keys matching the prefix.
func (s *SQLiteKV) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("draft: list keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("draft: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("draft: list keys: %w", err)
	}
	return keys, nil
}

// Usage sums stored value sizes against the quota.
func (s *SQLiteKV) Usage() (int64, int64, error) {
	var used sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(LENGTH(value)) FROM kv`).Scan(&used); err != nil {
		return 0, 0, fmt.Errorf("draft: measure usage: %w", err)
	}
	return used.Int64, s.quota, nil
}
