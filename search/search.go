// Package search is the read-only query surface over the symbol store:
// full-text search over file content and filtered symbol lookup.
package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/symdex/symdex-mcp/store"
)

// Service answers queries against one store. It never mutates.
type Service struct {
	store *store.Store
}

// New creates a search service over st.
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// TextOptions configures a full-text search.
type TextOptions struct {
	MaxResults   int    // 0 means the 50 default
	FileGlob     string // doublestar glob over relative paths
	ContextLines int
}

// LineMatch is one matching line with optional surrounding context.
type LineMatch struct {
	LineNumber    int // 1-based
	LineText      string
	ContextBefore []string
	ContextAfter  []string
}

// TextResult groups the matches within one file.
type TextResult struct {
	Path     string
	Language string
	Matches  []LineMatch
}

// SearchText runs a full-text query. Query forms:
//   - plain text: word-level match
//   - "quoted text": exact phrase
//   - /pattern/: regular expression
//
// Ranking is whatever the text engine provides; no custom scoring.
func (s *Service) SearchText(queryString string, opts TextOptions) ([]TextResult, int, error) {
	if strings.TrimSpace(queryString) == "" {
		return nil, 0, fmt.Errorf("empty query")
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	req := bleve.NewSearchRequest(buildQuery(queryString))
	// Over-fetch: hits are grouped per file and filtered by glob below.
	req.Size = maxResults * 5
	req.Fields = []string{"path", "language"}

	hits, err := s.store.Text().Query(req)
	if err != nil {
		return nil, 0, fmt.Errorf("text search: %w", err)
	}

	var results []TextResult
	totalMatches := 0
	term := extractSearchTerm(queryString)

	for _, hit := range hits.Hits {
		path := hit.ID
		if opts.FileGlob != "" {
			glob := strings.ReplaceAll(opts.FileGlob, "\\", "/")
			if ok, _ := doublestar.Match(glob, path); !ok {
				continue
			}
		}

		content, found, err := s.store.FileContent(path)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			continue
		}

		matches := findMatchingLines(content, term, opts.ContextLines)
		if len(matches) == 0 {
			continue
		}
		totalMatches += len(matches)

		language := ""
		if lang, ok := hit.Fields["language"].(string); ok {
			language = lang
		}
		results = append(results, TextResult{Path: path, Language: language, Matches: matches})
		if len(results) >= maxResults {
			break
		}
	}

	return results, totalMatches, nil
}

// SearchSymbols returns symbols whose name matches the filter. An empty
// name and "*" both mean match-all; otherwise matching is case-insensitive
// substring. See store.SymbolFilter for the remaining filters.
func (s *Service) SearchSymbols(filter store.SymbolFilter) ([]store.StoredSymbol, error) {
	return s.store.QuerySymbols(filter)
}

// buildQuery parses the query string into a bleve query.
func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/") && len(queryString) > 2 {
		return bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
	}
	if strings.HasPrefix(queryString, `"`) && strings.HasSuffix(queryString, `"`) && len(queryString) > 2 {
		return bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
	}
	return bleve.NewMatchQuery(queryString)
}

// extractSearchTerm strips the query syntax for line-level matching.
func extractSearchTerm(queryString string) string {
	queryString = strings.TrimSpace(queryString)
	if len(queryString) > 2 {
		if (strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/")) ||
			(strings.HasPrefix(queryString, `"`) && strings.HasSuffix(queryString, `"`)) {
			return queryString[1 : len(queryString)-1]
		}
	}
	return queryString
}

// findMatchingLines scans content for lines containing term,
// case-insensitively, attaching up to contextLines lines of context.
func findMatchingLines(content, term string, contextLines int) []LineMatch {
	if contextLines < 0 {
		contextLines = 0
	}
	lines := strings.Split(content, "\n")
	termLower := strings.ToLower(term)

	var matches []LineMatch
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), termLower) {
			continue
		}
		match := LineMatch{LineNumber: i + 1, LineText: line}
		for j := max(0, i-contextLines); j < i; j++ {
			match.ContextBefore = append(match.ContextBefore, lines[j])
		}
		for j := i + 1; j < min(len(lines), i+contextLines+1); j++ {
			match.ContextAfter = append(match.ContextAfter, lines[j])
		}
		matches = append(matches, match)
	}
	return matches
}
