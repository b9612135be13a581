package store

import (
	"fmt"
	"strings"

	"github.com/symdex/symdex-mcp/analyzer"
)

// StoredSymbol is one persisted symbol row.
type StoredSymbol struct {
	ID            int64
	FilePath      string
	Name          string
	Kind          analyzer.SymbolKind
	StartLine     int
	StartColumn   int
	EndLine       int
	EndColumn     int
	Modifiers     []string
	Documentation string
	ParentID      *int64
	ParentName    string // resolved parent symbol name, "" for top-level
}

// ReplaceFileStructure commits one completed analysis: in a single
// transaction it upserts the file row and fully replaces the file's
// symbols, imports and exports with the rows built from structure. Parent
// references are resolved through the structure's ParentIndex arena — each
// inserted symbol's database id is recorded by slice position, and a
// child's parent_id is looked up there directly, so duplicate sibling
// names cannot mis-parent.
//
// After the transaction commits, the file's full-text document is
// replaced. A text index failure is returned to the caller as a store
// error; the relational rows stay committed and the document is repaired
// on the next successful index of the file.
func (s *Store) ReplaceFileStructure(file *WorkspaceFile, structure *analyzer.CodeStructure, content string) error {
	if err := structure.Validate(); err != nil {
		return fmt.Errorf("rejecting structure for %s: %w", file.Path, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO files (path, language, hash, size, mod_time, indexed_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			hash = excluded.hash,
			size = excluded.size,
			mod_time = excluded.mod_time,
			indexed_at = excluded.indexed_at,
			content = excluded.content`,
		file.Path, file.Language, file.Hash, file.Size,
		timeToDB(file.ModTime), timeToDB(file.IndexedAt), content)
	if err != nil {
		return fmt.Errorf("upserting file %s: %w", file.Path, err)
	}

	// Delete-then-insert: the file's symbol set is replaced whole, never
	// partially updated.
	for _, table := range []string{"symbols", "imports", "exports"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE file_path = ?`, file.Path); err != nil {
			return fmt.Errorf("clearing %s for %s: %w", table, file.Path, err)
		}
	}

	insertSym, err := tx.Prepare(`INSERT INTO symbols
		(file_path, name, kind, start_line, start_col, end_line, end_col, modifiers, documentation, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing symbol insert: %w", err)
	}
	defer insertSym.Close()

	// ids[i] is the database id of structure.Symbols[i].
	ids := make([]int64, len(structure.Symbols))
	for i, sym := range structure.Symbols {
		var parentID any
		if sym.ParentIndex >= 0 {
			parentID = ids[sym.ParentIndex]
		}
		res, err := insertSym.Exec(
			file.Path, sym.Name, string(sym.Kind),
			sym.StartLine, sym.StartColumn, sym.EndLine, sym.EndColumn,
			strings.Join(sym.Modifiers, " "), sym.Documentation, parentID)
		if err != nil {
			return fmt.Errorf("inserting symbol %s in %s: %w", sym.Name, file.Path, err)
		}
		ids[i], err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading symbol id for %s: %w", sym.Name, err)
		}
	}

	for _, imp := range structure.Imports {
		if _, err := tx.Exec(`INSERT INTO imports (file_path, name, alias) VALUES (?, ?, ?)`,
			file.Path, imp.Name, imp.Alias); err != nil {
			return fmt.Errorf("inserting import %s in %s: %w", imp.Name, file.Path, err)
		}
	}
	for _, exp := range structure.Exports {
		if _, err := tx.Exec(`INSERT INTO exports (file_path, name, alias) VALUES (?, ?, ?)`,
			file.Path, exp.Name, exp.Alias); err != nil {
			return fmt.Errorf("inserting export %s in %s: %w", exp.Name, file.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace for %s: %w", file.Path, err)
	}

	return s.text.UpsertFileText(file.Path, content, file.Language, symbolTextOf(structure))
}

// SymbolsForFile returns a file's symbols in insertion (pre-order) order.
func (s *Store) SymbolsForFile(path string) ([]StoredSymbol, error) {
	rows, err := s.db.Query(`SELECT sym.id, sym.file_path, sym.name, sym.kind,
		sym.start_line, sym.start_col, sym.end_line, sym.end_col,
		sym.modifiers, sym.documentation, sym.parent_id, COALESCE(par.name, '')
		FROM symbols sym LEFT JOIN symbols par ON par.id = sym.parent_id
		WHERE sym.file_path = ? ORDER BY sym.id`, path)
	if err != nil {
		return nil, fmt.Errorf("querying symbols of %s: %w", path, err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// ImportsForFile returns a file's imports.
func (s *Store) ImportsForFile(path string) ([]analyzer.Import, error) {
	rows, err := s.db.Query(`SELECT name, alias FROM imports WHERE file_path = ? ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("querying imports of %s: %w", path, err)
	}
	defer rows.Close()

	var imports []analyzer.Import
	for rows.Next() {
		var imp analyzer.Import
		if err := rows.Scan(&imp.Name, &imp.Alias); err != nil {
			return nil, fmt.Errorf("scanning import row: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// ExportsForFile returns a file's exports.
func (s *Store) ExportsForFile(path string) ([]analyzer.Export, error) {
	rows, err := s.db.Query(`SELECT name, alias FROM exports WHERE file_path = ? ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("querying exports of %s: %w", path, err)
	}
	defer rows.Close()

	var exports []analyzer.Export
	for rows.Next() {
		var exp analyzer.Export
		if err := rows.Scan(&exp.Name, &exp.Alias); err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		exports = append(exports, exp)
	}
	return exports, rows.Err()
}

// symbolText concatenates a file's symbol names and documentation for the
// full-text document.
func (s *Store) symbolText(path string) (string, error) {
	symbols, err := s.SymbolsForFile(path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, sym := range symbols {
		b.WriteString(sym.Name)
		if sym.Documentation != "" {
			b.WriteByte(' ')
			b.WriteString(sym.Documentation)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func symbolTextOf(structure *analyzer.CodeStructure) string {
	var b strings.Builder
	for _, sym := range structure.Symbols {
		b.WriteString(sym.Name)
		if sym.Documentation != "" {
			b.WriteByte(' ')
			b.WriteString(sym.Documentation)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
