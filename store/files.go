package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// WorkspaceFile is one indexed file's metadata row. Path is the unique
// key: forward-slash relative to the workspace root.
type WorkspaceFile struct {
	Path      string
	Language  string
	Hash      string
	Size      int64
	ModTime   time.Time
	IndexedAt time.Time
}

// FileByPath returns the file row for path, or nil if the path has never
// been indexed.
func (s *Store) FileByPath(path string) (*WorkspaceFile, error) {
	row := s.db.QueryRow(
		`SELECT path, language, hash, size, mod_time, indexed_at FROM files WHERE path = ?`, path)

	var f WorkspaceFile
	var modTime, indexedAt string
	err := row.Scan(&f.Path, &f.Language, &f.Hash, &f.Size, &modTime, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying file %s: %w", path, err)
	}
	f.ModTime = timeFromDB(modTime)
	f.IndexedAt = timeFromDB(indexedAt)
	return &f, nil
}

// AllFiles returns every indexed file ordered by path.
func (s *Store) AllFiles() ([]*WorkspaceFile, error) {
	rows, err := s.db.Query(
		`SELECT path, language, hash, size, mod_time, indexed_at FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []*WorkspaceFile
	for rows.Next() {
		var f WorkspaceFile
		var modTime, indexedAt string
		if err := rows.Scan(&f.Path, &f.Language, &f.Hash, &f.Size, &modTime, &indexedAt); err != nil {
			return nil, fmt.Errorf("scanning file row: %w", err)
		}
		f.ModTime = timeFromDB(modTime)
		f.IndexedAt = timeFromDB(indexedAt)
		files = append(files, &f)
	}
	return files, rows.Err()
}

// FileContent returns the stored content of an indexed file.
func (s *Store) FileContent(path string) (string, bool, error) {
	row := s.db.QueryRow(`SELECT content FROM files WHERE path = ?`, path)
	var content string
	err := row.Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying content of %s: %w", path, err)
	}
	return content, true, nil
}

// DeleteFile removes a file row; symbols, imports and exports cascade, and
// the file's full-text document is dropped.
func (s *Store) DeleteFile(path string) error {
	if _, err := s.db.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting file %s: %w", path, err)
	}
	return s.text.DeleteFileText(path)
}
