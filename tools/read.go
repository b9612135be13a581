package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/symdex/symdex-mcp/store"
)

// ReadArgs defines the input parameters for the symdex_read tool.
type ReadArgs struct {
	FilePath string `json:"filePath" jsonschema:"Relative file path to read from the index (e.g. src/main.go)"`
}

// ReadHandler holds the dependencies for the read tool.
type ReadHandler struct {
	Store  *store.Store
	Logger *slog.Logger
}

// Handle processes a symdex_read request, serving content from the store
// rather than disk.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.FilePath == "" {
		h.Logger.Warn("symdex_read called with empty filePath")
		return errorResult("Error: filePath parameter is required"), nil, nil
	}

	path := strings.ReplaceAll(args.FilePath, "\\", "/")
	content, found, err := h.Store.FileContent(path)
	if err != nil {
		h.Logger.Error("symdex_read failed", "filePath", path, "error", err)
		return errorResult(fmt.Sprintf("Read error: %v", err)), nil, nil
	}
	if !found {
		h.Logger.Info("symdex_read file not found", "filePath", path)
		return errorResult(fmt.Sprintf("File not found in index: %s", path)), nil, nil
	}

	h.Logger.Info("symdex_read", "filePath", path, "elapsed", time.Since(start))

	return textResult(FormatFileContent(path, content)), nil, nil
}
