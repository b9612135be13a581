package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgs defines the input parameters for the symdex_reindex tool.
type ReindexArgs struct{}

// ReindexFunc performs the full re-scan. Provided by main.go to avoid a
// dependency cycle with the wiring code.
type ReindexFunc func(ctx context.Context) (files int, symbols int, elapsed string, err error)

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	DoReindex ReindexFunc
	Logger    *slog.Logger
}

// Handle processes a symdex_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("symdex_reindex started")
	start := time.Now()

	files, symbols, elapsed, err := h.DoReindex(ctx)
	if err != nil {
		h.Logger.Error("symdex_reindex failed", "error", err)
		return errorResult(fmt.Sprintf("Reindex error: %v", err)), nil, nil
	}

	h.Logger.Info("symdex_reindex complete",
		"files", files,
		"symbols", symbols,
		"elapsed", time.Since(start),
	)

	return textResult(fmt.Sprintf("reindexed: %d files, %d symbols in %s", files, symbols, elapsed)), nil, nil
}
