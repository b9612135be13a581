package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/symdex/symdex-mcp/store"
)

// FilesArgs defines the input parameters for the symdex_files tool.
type FilesArgs struct {
	Pattern    string `json:"pattern" jsonschema:"Glob pattern to match files (e.g. **/*.ts or src/**/*.go)"`
	NameOnly   bool   `json:"nameOnly,omitempty" jsonschema:"If true return only file paths without metadata"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Store  *store.Store
	Logger *slog.Logger
}

// Handle processes a symdex_files request: lists indexed files matching a
// doublestar glob against their relative paths.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern == "" {
		h.Logger.Warn("symdex_files called with empty pattern")
		return errorResult("Error: pattern parameter is required"), nil, nil
	}

	pattern := strings.ReplaceAll(args.Pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return errorResult(fmt.Sprintf("Invalid glob pattern: %s", pattern)), nil, nil
	}

	maxResults := args.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	all, err := h.Store.AllFiles()
	if err != nil {
		h.Logger.Error("symdex_files failed", "pattern", pattern, "error", err)
		return errorResult(fmt.Sprintf("File search error: %v", err)), nil, nil
	}

	var matched []*store.WorkspaceFile
	for _, f := range all {
		if len(matched) >= maxResults {
			break
		}
		if ok, _ := doublestar.Match(pattern, f.Path); ok {
			matched = append(matched, f)
		}
	}

	h.Logger.Info("symdex_files",
		"pattern", pattern,
		"results", len(matched),
		"elapsed", time.Since(start),
	)

	return textResult(FormatFileResults(matched, args.NameOnly)), nil, nil
}
