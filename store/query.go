package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
)

// SymbolFilter narrows a symbol query. Zero values mean "no filter".
type SymbolFilter struct {
	Name       string               // "" or "*" match all; otherwise case-insensitive substring
	Kinds      []analyzer.SymbolKind // OR semantics
	Language   string
	PathPrefix string
	MaxResults int // 0 means the 50 default
}

// QuerySymbols returns symbols matching the filter, ordered by file path
// then position. The result cap is enforced by the query's LIMIT, not by
// client-side truncation.
func (s *Store) QuerySymbols(filter SymbolFilter) ([]StoredSymbol, error) {
	var conds []string
	var args []any

	if name := strings.TrimSpace(filter.Name); name != "" && name != "*" {
		conds = append(conds, `sym.name LIKE ? ESCAPE '\' COLLATE NOCASE`)
		args = append(args, "%"+escapeLike(name)+"%")
	}
	if len(filter.Kinds) > 0 {
		placeholders := make([]string, len(filter.Kinds))
		for i, kind := range filter.Kinds {
			placeholders[i] = "?"
			args = append(args, string(kind))
		}
		conds = append(conds, fmt.Sprintf("sym.kind IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.Language != "" {
		conds = append(conds, "f.language = ?")
		args = append(args, filter.Language)
	}
	if filter.PathPrefix != "" {
		conds = append(conds, `sym.file_path LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(filter.PathPrefix)+"%")
	}

	query := `SELECT sym.id, sym.file_path, sym.name, sym.kind, sym.start_line, sym.start_col,
		sym.end_line, sym.end_col, sym.modifiers, sym.documentation, sym.parent_id,
		COALESCE(par.name, '')
		FROM symbols sym
		JOIN files f ON f.path = sym.file_path
		LEFT JOIN symbols par ON par.id = sym.parent_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY sym.file_path, sym.id LIMIT ?"

	limit := filter.MaxResults
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying symbols: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func scanSymbols(rows *sql.Rows) ([]StoredSymbol, error) {
	var symbols []StoredSymbol
	for rows.Next() {
		var sym StoredSymbol
		var kind, modifiers string
		var parentID sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.FilePath, &sym.Name, &kind,
			&sym.StartLine, &sym.StartColumn, &sym.EndLine, &sym.EndColumn,
			&modifiers, &sym.Documentation, &parentID, &sym.ParentName); err != nil {
			return nil, fmt.Errorf("scanning symbol row: %w", err)
		}
		sym.Kind = analyzer.SymbolKind(kind)
		if modifiers != "" {
			sym.Modifiers = strings.Fields(modifiers)
		}
		if parentID.Valid {
			id := parentID.Int64
			sym.ParentID = &id
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Statistics summarizes the committed index state. Everything is derived
// by querying, never from accumulated counters, so it cannot drift from
// the persisted truth.
type Statistics struct {
	TotalFiles           int
	TotalSymbols         int
	LanguageDistribution map[string]int
	LastIndexTime        time.Time
}

// Statistics computes the current index statistics.
func (s *Store) Statistics() (*Statistics, error) {
	stats := &Statistics{LanguageDistribution: make(map[string]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&stats.TotalFiles); err != nil {
		return nil, fmt.Errorf("counting files: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&stats.TotalSymbols); err != nil {
		return nil, fmt.Errorf("counting symbols: %w", err)
	}

	rows, err := s.db.Query(`SELECT language, COUNT(*) FROM files GROUP BY language`)
	if err != nil {
		return nil, fmt.Errorf("querying language distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var language string
		var count int
		if err := rows.Scan(&language, &count); err != nil {
			return nil, fmt.Errorf("scanning language row: %w", err)
		}
		stats.LanguageDistribution[language] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(indexed_at) FROM files`).Scan(&last); err != nil {
		return nil, fmt.Errorf("querying last index time: %w", err)
	}
	if last.Valid {
		stats.LastIndexTime = timeFromDB(last.String)
	}
	return stats, nil
}
