// Package sqlite provides a session.Storage backed by a SQLite database,
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/securevibes/authgate/internal/domain/session"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Storage implements session.Storage as a key/value table.
type Storage struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ session.Storage = (*Storage)(nil)

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// SQLite gives its -wal and -shm files the mode of the database file,
	// so the database must be private before the first connection.
	if err := restrictFiles(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Debug("session database opened", "path", path)
	return &Storage{db: db, path: path, logger: logger}, nil
}

// sidecars are the files SQLite keeps next to the database in WAL mode.
var sidecars = []string{"-wal", "-shm"}

// restrictFiles creates the database file if needed and sets 0600 on it and
// on any sidecar left by an earlier run.
func restrictFiles(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("create database file: %w", err)
	}
	_ = f.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("set database permissions: %w", err)
	}
	for _, suffix := range sidecars {
		err := os.Chmod(path+suffix, 0600)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set %s permissions: %w", suffix, err)
		}
	}
	return nil
}

// Load returns the record stored under key, or session.ErrNotFound.
func (s *Storage) Load(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return value, nil
}

// Save upserts data under key.
func (s *Storage) Save(key string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Delete removes the record under key. Deleting an absent record is not an error.
func (s *Storage) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.path
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}
