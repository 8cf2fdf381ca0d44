package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/kifu/internal/errors"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DefaultStoreName is the store file name used when none is configured.
const DefaultStoreName = "kifu.db"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store is the cache store: an SQLite file holding cached responses,
// resolved identities, the mirrored-games ledger and run history.
//
// All reads and writes go through one session transaction. Commit makes the
// session durable and starts a new one; Close commits and closes. A Store
// is meant for a single goroutine and a single process.
type Store struct {
	db     *sql.DB
	tx     *sql.Tx
	path   string
	closed bool
}

// Open opens (creating if needed) the store at dir/name.
// Migrations are idempotent and never drop existing data.
func Open(dir, name string) (*Store, error) {
	if name == "" {
		name = DefaultStoreName
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewStoreUnavailable(fmt.Errorf("failed to create directory: %w", err))
	}

	// Pragmas in the connection string apply to every connection
	dbPath := filepath.Join(dir, name)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewStoreUnavailable(fmt.Errorf("failed to open database: %w", err))
	}

	// One connection: the session transaction owns it for the store's lifetime
	db.SetMaxOpenConns(1)

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, errors.NewStoreUnavailable(err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, errors.NewStoreUnavailable(err)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, errors.NewStoreUnavailable(fmt.Errorf("failed to begin session: %w", err))
	}

	return &Store{db: db, tx: tx, path: dbPath}, nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Commit makes everything written so far durable and opens a new session.
func (s *Store) Commit() error {
	if s.closed {
		return errors.NewInternal(fmt.Errorf("store is closed"))
	}
	if err := s.tx.Commit(); err != nil {
		return errors.NewInternal(fmt.Errorf("commit: %w", err))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewInternal(fmt.Errorf("begin session: %w", err))
	}
	s.tx = tx
	return nil
}

// Close commits the session and closes the database. Calling it again is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	commitErr := s.tx.Commit()
	closeErr := s.db.Close()
	if commitErr != nil {
		return errors.NewInternal(fmt.Errorf("commit: %w", commitErr))
	}
	if closeErr != nil {
		return errors.NewInternal(fmt.Errorf("close: %w", closeErr))
	}
	return nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS http_cache (
		  url     TEXT PRIMARY KEY,
		  content TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS identities (
		  name TEXT PRIMARY KEY,
		  id   INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS games (
		  id          INTEGER PRIMARY KEY,
		  white       TEXT NOT NULL,
		  black       TEXT NOT NULL,
		  started_at  TEXT,
		  ended_at    TEXT,
		  is_bot      INTEGER NOT NULL DEFAULT 0,
		  mirrored_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_games_is_bot
		ON games(is_bot, id DESC);

		CREATE TABLE IF NOT EXISTS runs (
		  id          TEXT PRIMARY KEY,
		  names       TEXT NOT NULL,
		  started_at  INTEGER NOT NULL,
		  finished_at INTEGER,
		  found       INTEGER NOT NULL DEFAULT 0,
		  saved       INTEGER NOT NULL DEFAULT 0,
		  cancelled   INTEGER NOT NULL DEFAULT 0
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(q querier) (int, error) {
	var version int
	if err := q.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(q querier, version int) error {
	_, err := q.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// SchemaVersion returns the user_version of the open store.
func (s *Store) SchemaVersion() (int, error) {
	return GetUserVersion(s.tx)
}
