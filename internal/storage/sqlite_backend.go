package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// schemaDDL defines the database schema for the SQLite backend.
//
// A single kv table holds each serialized value under its key.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
`

// SQLiteBackend implements Backend using SQLite.
//
// Uses WAL mode for better concurrent access from several processes
// (for example the MCP server and the CLI sharing one database).
type SQLiteBackend struct {
	// DBPath is the absolute path to the SQLite database file.
	DBPath string
}

// NewSQLiteBackend creates a new SQLiteBackend and initializes the database schema.
//
// Parent directories are created automatically if they don't exist.
// Returns an error if schema creation fails.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	backend := &SQLiteBackend{
		DBPath: dbPath,
	}

	if err := backend.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return backend, nil
}

// connect opens a new database connection with WAL mode enabled.
//
// Creates parent directories if needed.
func (b *SQLiteBackend) connect() (*sqlx.DB, error) {
	dir := filepath.Dir(b.DBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", b.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	return db, nil
}

// ensureSchema creates the kv table if it doesn't exist.
func (b *SQLiteBackend) ensureSchema() error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}

	return nil
}

// Get returns the value stored under key.
func (b *SQLiteBackend) Get(key string) (string, bool, error) {
	db, err := b.connect()
	if err != nil {
		return "", false, err
	}
	defer func() { _ = db.Close() }()

	var value string
	err = db.Get(&value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	return value, true, nil
}

// Set upserts value under key.
//
// Returns an error wrapping ErrQuotaExceeded when SQLite reports SQLITE_FULL.
func (b *SQLiteBackend) Set(key, value string) error {
	db, err := b.connect()
	if err != nil {
		return mapSQLiteFull(err)
	}
	defer func() { _ = db.Close() }()

	_, err = db.Exec(
		`INSERT INTO kv (key, value, updated_at)
		 VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return mapSQLiteFull(fmt.Errorf("failed to write key %q: %w", key, err))
	}

	return nil
}

// Delete removes key.
func (b *SQLiteBackend) Delete(key string) error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// kvSize is one row of the Sizes query.
type kvSize struct {
	Key  string `db:"key"`
	Size int    `db:"size"`
}

// Sizes reports the byte length of every stored value.
func (b *SQLiteBackend) Sizes() (map[string]int, error) {
	db, err := b.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	var rows []kvSize
	if err := db.Select(&rows, "SELECT key, length(CAST(value AS BLOB)) AS size FROM kv"); err != nil {
		return nil, fmt.Errorf("failed to query sizes: %w", err)
	}

	sizes := make(map[string]int, len(rows))
	for _, r := range rows {
		sizes[r.Key] = r.Size
	}
	return sizes, nil
}

// mapSQLiteFull wraps SQLITE_FULL errors with ErrQuotaExceeded.
func mapSQLiteFull(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_FULL {
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}
	return mapDiskFull(err)
}
