// Package store is the persisted symbol store: workspace files, their
// extracted symbols, imports and exports in SQLite, plus a bleve full-text
// index over file content and symbol documentation. It is the single
// source of truth for everything the indexer has committed.
//
// All mutating operations are expected to be called from one writer at a
// time (the indexer's consumer loop); reads may run concurrently and see
// either the fully-pre-update or fully-post-update state of a file, never
// a half-replaced symbol set.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver for database/sql
)

// Store combines the SQLite tables with the full-text index.
type Store struct {
	db   *sql.DB
	text *TextIndex
}

// Open opens (or creates) the store at dbPath and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	// One connection: keeps in-memory databases coherent and makes the
	// single-writer discipline hold at the connection level too.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying pragma %s: %w", p, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	text, err := NewTextIndex()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, text: text}, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		language TEXT NOT NULL,
		hash TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time TEXT NOT NULL,
		indexed_at TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS symbols (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL,
		modifiers TEXT NOT NULL DEFAULT '',
		documentation TEXT NOT NULL DEFAULT '',
		parent_id INTEGER DEFAULT NULL,
		FOREIGN KEY(file_path) REFERENCES files(path) ON DELETE CASCADE,
		FOREIGN KEY(parent_id) REFERENCES symbols(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name COLLATE NOCASE);`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);`,
	`CREATE TABLE IF NOT EXISTS imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		name TEXT NOT NULL,
		alias TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(file_path) REFERENCES files(path) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		name TEXT NOT NULL,
		alias TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(file_path) REFERENCES files(path) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_path);`,
	`CREATE INDEX IF NOT EXISTS idx_exports_file ON exports(file_path);`,
}

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}

// Text exposes the full-text index for read-only query use.
func (s *Store) Text() *TextIndex { return s.text }

// RebuildTextIndex repopulates the in-memory full-text index from the
// persisted tables. Called once at startup when opening an existing
// database, since bleve does not survive restarts.
func (s *Store) RebuildTextIndex() error {
	rows, err := s.db.Query(`SELECT path, language, content FROM files`)
	if err != nil {
		return fmt.Errorf("reading files for text rebuild: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, language, content string
		if err := rows.Scan(&path, &language, &content); err != nil {
			return fmt.Errorf("scanning file row: %w", err)
		}
		symText, err := s.symbolText(path)
		if err != nil {
			return err
		}
		if err := s.text.UpsertFileText(path, content, language, symText); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Clear drops every indexed file, symbol, and text document.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM files`); err != nil {
		return fmt.Errorf("clearing files: %w", err)
	}
	return s.text.Clear()
}

// Close releases the database and text index.
func (s *Store) Close() error {
	textErr := s.text.Close()
	dbErr := s.db.Close()
	if dbErr != nil {
		return dbErr
	}
	return textErr
}

// timeToDB and timeFromDB convert timestamps to the TEXT column format.
func timeToDB(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func timeFromDB(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
