// Package server wires the tool handlers into an MCP server.
package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/symdex/symdex-mcp/tools"
)

// Setup creates and configures the MCP server with all tool registrations.
func Setup(
	searchHandler *tools.SearchHandler,
	symbolsHandler *tools.SymbolsHandler,
	filesHandler *tools.FilesHandler,
	statusHandler *tools.StatusHandler,
	reindexHandler *tools.ReindexHandler,
	readHandler *tools.ReadHandler,
) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "symdex-mcp",
			Version: "0.3.0",
		},
		&mcp.ServerOptions{
			Instructions: `This server provides an indexed view of the workspace: full-text content search plus a structural symbol index (classes, functions, methods…) extracted per language. Its tools are faster than built-in Grep, Glob, and Read because they query a pre-built index instead of scanning the filesystem.

Prefer these tools over built-in alternatives:
- Use symdex_search instead of Grep for content search
- Use symdex_symbols to locate definitions by name and kind (instead of grepping for declarations)
- Use symdex_read instead of Read for indexed files
- Use symdex_files instead of Glob or find for file listing
- The index updates automatically when files change (filesystem watcher)`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "symdex_search",
		Description: `Search file contents using full-text indexed search.

Query formats:
  - Plain text: word-level matching (e.g., "handleRequest")
  - "quoted text": exact phrase matching
  - /regex/: regular expression matching

Filtering:
  - fileGlob: glob pattern to filter by path (e.g., "**/*.go").`,
	}, searchHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "symdex_symbols",
		Description: `Find symbol definitions by name. Name matching is case-insensitive substring; empty name or "*" lists all symbols subject to the other filters.

Filters:
  - kinds: e.g. ["class","method"] (OR semantics)
  - language: "go", "python", "typescript"
  - pathPrefix: restrict to a subtree, e.g. "src/"`,
	}, symbolsHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "symdex_files",
		Description: `Find indexed files by glob pattern.

Pattern examples:
  - "**/*.go" - all Go files
  - "src/**/*.ts" - TypeScript files under src/
  - "*.json" - JSON files in root only`,
	}, filesHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "symdex_read",
		Description: `Read a file's contents from the index. Returns numbered lines. Serves the last indexed state without touching disk.`,
	}, readHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "symdex_status",
		Description: "Show index status: file and symbol counts, languages, state, memory usage, and uptime.",
	}, statusHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "symdex_reindex",
		Description: "Force a full re-index of the workspace. Clears the existing index and rebuilds from scratch.",
	}, reindexHandler.Handle)

	return mcpServer
}
