package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/symdex/symdex-mcp/analyzer"
	"github.com/symdex/symdex-mcp/search"
	"github.com/symdex/symdex-mcp/store"
)

// SymbolsArgs defines the input parameters for the symdex_symbols tool.
type SymbolsArgs struct {
	Name       string   `json:"name,omitempty" jsonschema:"Symbol name filter. Case-insensitive substring; empty or * matches all symbols"`
	Kinds      []string `json:"kinds,omitempty" jsonschema:"Symbol kinds to include (e.g. class, function, method). Empty means all kinds"`
	Language   string   `json:"language,omitempty" jsonschema:"Restrict to one language (e.g. go, python, typescript)"`
	PathPrefix string   `json:"pathPrefix,omitempty" jsonschema:"Restrict to files whose relative path starts with this prefix"`
	MaxResults int      `json:"maxResults,omitempty" jsonschema:"Maximum number of symbols to return (default 50)"`
}

// SymbolsHandler holds the dependencies for the symbol search tool.
type SymbolsHandler struct {
	Search *search.Service
	Logger *slog.Logger
}

// Handle processes a symdex_symbols request.
func (h *SymbolsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SymbolsArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	kinds := make([]analyzer.SymbolKind, 0, len(args.Kinds))
	for _, k := range args.Kinds {
		kinds = append(kinds, analyzer.SymbolKind(k))
	}

	symbols, err := h.Search.SearchSymbols(store.SymbolFilter{
		Name:       args.Name,
		Kinds:      kinds,
		Language:   args.Language,
		PathPrefix: args.PathPrefix,
		MaxResults: args.MaxResults,
	})
	if err != nil {
		h.Logger.Error("symdex_symbols failed", "name", args.Name, "error", err)
		return errorResult(fmt.Sprintf("Symbol search error: %v", err)), nil, nil
	}

	h.Logger.Info("symdex_symbols",
		"name", args.Name,
		"kinds", args.Kinds,
		"results", len(symbols),
		"elapsed", time.Since(start),
	)

	return textResult(FormatSymbolResults(symbols)), nil, nil
}
