package tools

import (
	"fmt"
	"strings"

	"github.com/symdex/symdex-mcp/search"
	"github.com/symdex/symdex-mcp/store"
)

// FormatTextResults formats full-text search results as human-readable
// text, grouped by file with line numbers and optional context.
func FormatTextResults(results []search.TextResult, totalMatches int) string {
	if len(results) == 0 {
		return "No matches found."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d matches in %d files:\n\n", totalMatches, len(results)))

	for i, result := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("── %s ──\n", result.Path))

		for _, match := range result.Matches {
			for _, ctxLine := range match.ContextBefore {
				b.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
			b.WriteString(fmt.Sprintf("  %d: %s\n", match.LineNumber, match.LineText))
			for _, ctxLine := range match.ContextAfter {
				b.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
		}
	}

	return b.String()
}

// FormatSymbolResults formats symbol search results, one line per symbol:
// kind, qualified name (parent.name when nested), location, modifiers.
func FormatSymbolResults(symbols []store.StoredSymbol) string {
	if len(symbols) == 0 {
		return "No symbols matched."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d symbols:\n\n", len(symbols)))

	for _, sym := range symbols {
		name := sym.Name
		if sym.ParentName != "" {
			name = sym.ParentName + "." + sym.Name
		}
		b.WriteString(fmt.Sprintf("  %-10s %-40s %s:%d", sym.Kind, name, sym.FilePath, sym.StartLine))
		if len(sym.Modifiers) > 0 {
			b.WriteString("  [" + strings.Join(sym.Modifiers, " ") + "]")
		}
		b.WriteString("\n")
		if sym.Documentation != "" {
			b.WriteString(fmt.Sprintf("             %s\n", firstSentence(sym.Documentation)))
		}
	}

	return b.String()
}

// FormatFileResults formats file listing results.
func FormatFileResults(files []*store.WorkspaceFile, nameOnly bool) string {
	if len(files) == 0 {
		return "No files matched."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d files:\n\n", len(files)))

	for _, f := range files {
		if nameOnly {
			b.WriteString(f.Path)
			b.WriteString("\n")
		} else {
			b.WriteString(fmt.Sprintf("  %s  (%s, %s)\n", f.Path, f.Language, formatFileSize(f.Size)))
		}
	}

	return b.String()
}

// FormatFileContent formats file content with right-aligned line numbers.
func FormatFileContent(filePath string, content string) string {
	lines := strings.Split(content, "\n")
	lineCount := len(lines)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("── %s (%d lines) ──\n", filePath, lineCount))

	width := len(fmt.Sprintf("%d", lineCount))
	for i, line := range lines {
		b.WriteString(fmt.Sprintf("%*d│ %s\n", width, i+1, line))
	}

	return b.String()
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// firstSentence trims documentation to its first sentence or 100 runes.
func firstSentence(doc string) string {
	doc = strings.TrimSpace(doc)
	if idx := strings.Index(doc, ". "); idx > 0 {
		doc = doc[:idx+1]
	}
	if len(doc) > 100 {
		doc = doc[:100] + "…"
	}
	return doc
}
