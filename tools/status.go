package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/symdex/symdex-mcp/indexer"
	"github.com/symdex/symdex-mcp/store"
)

// StatusArgs defines the input parameters for the symdex_status tool
// (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Store     *store.Store
	Indexer   *indexer.Indexer
	StartTime time.Time
	RootDir   string
	Logger    *slog.Logger
}

// Handle processes a symdex_status request. All counts are queried from
// the store so they reflect the last committed state.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	stats, err := h.Store.Statistics()
	if err != nil {
		h.Logger.Error("symdex_status failed", "error", err)
		return errorResult(fmt.Sprintf("Status error: %v", err)), nil, nil
	}

	uptime := time.Since(h.StartTime)
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("symdex_status",
		"files", stats.TotalFiles,
		"symbols", stats.TotalSymbols,
		"uptime", uptime,
	)

	var b strings.Builder
	b.WriteString("=== symdex-mcp Status ===\n\n")
	b.WriteString(fmt.Sprintf("Root directory: %s\n", h.RootDir))
	b.WriteString(fmt.Sprintf("State: %s\n", h.Indexer.State()))
	b.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	b.WriteString(fmt.Sprintf("Indexed files: %d\n", stats.TotalFiles))
	b.WriteString(fmt.Sprintf("Indexed symbols: %d\n", stats.TotalSymbols))
	b.WriteString(fmt.Sprintf("Full-text documents: %d\n", h.Store.Text().DocumentCount()))
	if !stats.LastIndexTime.IsZero() {
		b.WriteString(fmt.Sprintf("Last index: %s\n", stats.LastIndexTime.Local().Format(time.RFC3339)))
	}
	b.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	if len(stats.LanguageDistribution) > 0 {
		b.WriteString("\nLanguages:\n")

		type langEntry struct {
			lang  string
			count int
		}
		entries := make([]langEntry, 0, len(stats.LanguageDistribution))
		for lang, count := range stats.LanguageDistribution {
			entries = append(entries, langEntry{lang, count})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].count > entries[j].count
		})
		for _, entry := range entries {
			b.WriteString(fmt.Sprintf("  %-20s %d files\n", entry.lang, entry.count))
		}
	}

	return textResult(b.String()), nil, nil
}

// formatDuration formats a duration in a compact human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, totalSeconds%60)
	}
	return fmt.Sprintf("%dh%dm", totalMinutes/60, totalMinutes%60)
}
