package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := Open(tmpDir, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	// Verify database file was created
	dbPath := filepath.Join(tmpDir, DefaultStoreName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}

	// Verify WAL mode is active
	var journalMode string
	if err := s.tx.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	for _, table := range []string{"http_cache", "identities", "games", "runs"} {
		var name string
		err := s.tx.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpen_CreatesDirectories(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "games")

	s, err := Open(baseDir, "mirror.db")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(baseDir, "mirror.db")); err != nil {
		t.Errorf("store not created in nested directory: %v", err)
	}
}

func TestOpen_UnwritableDirectory(t *testing.T) {
	// A regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(filepath.Join(blocker, "games"), ""); err == nil {
		t.Fatalf("Open() expected error for path under a file")
	}
}

func TestUserVersion(t *testing.T) {
	s, err := Open(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := Open(tmpDir, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.PutResolvedIdentity("alice", 42); err != nil {
		t.Fatalf("PutResolvedIdentity() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Second open re-runs migrations; existing rows must survive
	s, err = Open(tmpDir, "")
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	id, ok, err := s.GetResolvedIdentity("alice")
	if err != nil || !ok || id != 42 {
		t.Errorf("GetResolvedIdentity() = (%d, %v, %v), want (42, true, nil)", id, ok, err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	s, err := Open(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := s.Commit(); err == nil {
		t.Errorf("Commit() after Close() should fail")
	}
}
