// Package store persists completed extractions and attempt records in
// SQLite.
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, err := store.Open("chatgrab.db")
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Open opens the SQLite database at path, applies the production pragmas,
// and ensures the schema exists. The caller must blank-import a driver
// registering as "sqlite" (modernc.org/sqlite).
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Each in-memory connection is a separate database; keep one.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: exec schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory database for testing.
func OpenMemory(t testing.TB) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
