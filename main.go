package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/symdex/symdex-mcp/analyzer"
	"github.com/symdex/symdex-mcp/analyzer/golang"
	"github.com/symdex/symdex-mcp/analyzer/python"
	"github.com/symdex/symdex-mcp/analyzer/typescript"
	"github.com/symdex/symdex-mcp/ignore"
	"github.com/symdex/symdex-mcp/indexer"
	"github.com/symdex/symdex-mcp/register"
	"github.com/symdex/symdex-mcp/search"
	"github.com/symdex/symdex-mcp/server"
	"github.com/symdex/symdex-mcp/store"
	"github.com/symdex/symdex-mcp/tools"
	"github.com/symdex/symdex-mcp/watcher"
)

// excludePatterns is a repeatable CLI flag for custom ignore patterns.
type excludePatterns []string

func (e *excludePatterns) String() string { return strings.Join(*e, ", ") }
func (e *excludePatterns) Set(value string) error {
	*e = append(*e, value)
	return nil
}

func main() {
	// "symdex-mcp register ..." writes MCP client config and exits.
	if len(os.Args) > 1 && os.Args[1] == "register" {
		register.Run("symdex", os.Args[2:])
		return
	}

	var rootDir string
	var dbPath string
	var maxFileSizeBytes int64
	var debounceMillis int
	var syncIntervalSeconds int
	var noWatch bool
	var noIndexOnStartup bool
	var noRecurse bool
	var logLevel string
	var logFile string
	var excludes excludePatterns

	flag.StringVar(&rootDir, "root", "", "Workspace root directory (default: current working directory)")
	flag.StringVar(&dbPath, "db", "", "Symbol store path (default: in-memory)")
	flag.Var(&excludes, "exclude", "Extra ignore glob pattern, ** and * supported (repeatable)")
	flag.Int64Var(&maxFileSizeBytes, "max-file-size", 1024*1024, "Maximum file size in bytes (default: 1MB)")
	flag.IntVar(&debounceMillis, "debounce", 100, "Watcher debounce delay in milliseconds")
	flag.IntVar(&syncIntervalSeconds, "sync-interval", 0, "Periodic reconcile interval in seconds (0: disabled)")
	flag.BoolVar(&noWatch, "no-watch", false, "Disable the filesystem watcher")
	flag.BoolVar(&noIndexOnStartup, "no-index-on-startup", false, "Skip the initial workspace scan")
	flag.BoolVar(&noRecurse, "no-recurse", false, "Do not index or watch subdirectories")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (default: <root>/symdex-mcp.log)")
	flag.Parse()

	if rootDir == "" {
		var err error
		rootDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			os.Exit(1)
		}
	}
	rootDir, _ = filepath.Abs(rootDir)

	if logFile == "" {
		logFile = filepath.Join(rootDir, "symdex-mcp.log")
	}

	// Never log to stdout: stdout carries the MCP stdio transport.
	logger := setupLogger(logLevel, logFile)

	logger.Info("starting symdex-mcp",
		"root", rootDir,
		"db", storeLabel(dbPath),
		"maxFileSize", maxFileSizeBytes,
	)
	startTime := time.Now()

	registry := analyzer.NewRegistry()
	registry.Register(golang.New())
	registry.Register(python.New())
	registry.Register(typescript.New())

	matcher := ignore.NewMatcher(ignore.Options{
		RootDir:          rootDir,
		Patterns:         excludes,
		MaxFileSizeBytes: maxFileSizeBytes,
	})

	if dbPath == "" {
		dbPath = ":memory:"
	}
	st, err := store.Open(dbPath)
	if err != nil {
		logger.Error("failed to open symbol store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if dbPath != ":memory:" {
		// The bleve side is in-memory only; repopulate it from the
		// persisted tables so search works before the first re-index.
		if err := st.RebuildTextIndex(); err != nil {
			logger.Error("failed to rebuild text index", "error", err)
			os.Exit(1)
		}
	}

	ix := indexer.New(rootDir, registry, st, matcher, logger)
	ix.OnProgress(func(p indexer.Progress) {
		if p.IsComplete {
			logger.Info("workspace scan complete", "files", p.TotalFiles)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !noIndexOnStartup {
		scanStart := time.Now()
		if err := ix.IndexWorkspace(ctx); err != nil {
			logger.Error("initial indexing failed", "error", err)
			os.Exit(1)
		}
		if stats, err := st.Statistics(); err == nil {
			logger.Info("initial indexing complete",
				"files", stats.TotalFiles,
				"symbols", stats.TotalSymbols,
				"duration", time.Since(scanStart),
			)
		}
	}

	if !noWatch {
		fileWatcher, err := watcher.NewWatcher(rootDir, matcher, watcher.Options{
			DebounceDelay: time.Duration(debounceMillis) * time.Millisecond,
			Recursive:     !noRecurse,
		}, logger)
		if err != nil {
			logger.Warn("failed to start file watcher, continuing without live updates", "error", err)
		} else {
			go fileWatcher.Start()
			go ix.Watch(ctx, fileWatcher.Events())
			defer fileWatcher.Close()
		}
	}

	if syncIntervalSeconds > 0 {
		go ix.RunPeriodicReconcile(ctx, time.Duration(syncIntervalSeconds)*time.Second)
	}

	searchService := search.New(st)

	searchHandler := &tools.SearchHandler{Search: searchService, Logger: logger}
	symbolsHandler := &tools.SymbolsHandler{Search: searchService, Logger: logger}
	filesHandler := &tools.FilesHandler{Store: st, Logger: logger}
	readHandler := &tools.ReadHandler{Store: st, Logger: logger}
	statusHandler := &tools.StatusHandler{
		Store:     st,
		Indexer:   ix,
		StartTime: startTime,
		RootDir:   rootDir,
		Logger:    logger,
	}
	reindexHandler := &tools.ReindexHandler{
		Logger: logger,
		DoReindex: func(ctx context.Context) (int, int, string, error) {
			start := time.Now()
			if err := st.Clear(); err != nil {
				return 0, 0, "", fmt.Errorf("clearing store: %w", err)
			}
			// Pick up .gitignore edits made while we were not looking.
			matcher.Reload()
			if err := ix.IndexWorkspace(ctx); err != nil {
				return 0, 0, "", err
			}
			stats, err := st.Statistics()
			if err != nil {
				return 0, 0, "", err
			}
			elapsed := time.Since(start).Round(time.Millisecond).String()
			return stats.TotalFiles, stats.TotalSymbols, elapsed, nil
		},
	}

	mcpServer := server.Setup(searchHandler, symbolsHandler, filesHandler, statusHandler, reindexHandler, readHandler)

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}

// setupLogger creates an slog.Logger writing to a file or stderr.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writer := os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}

func storeLabel(dbPath string) string {
	if dbPath == "" || dbPath == ":memory:" {
		return "in-memory"
	}
	return dbPath
}
