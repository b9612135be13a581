// Package indexer orchestrates workspace scans and per-file re-indexing:
// analyzer dispatch, content-hash skip logic, and synchronization of the
// symbol store with the filesystem. All store mutations for one workspace
// flow through one Indexer, one call at a time.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
	"github.com/symdex/symdex-mcp/ignore"
	"github.com/symdex/symdex-mcp/store"
)

// State is the workspace indexing state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateIndexing
	StateWatching
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateIndexing:
		return "indexing"
	case StateWatching:
		return "watching"
	default:
		return "unknown"
	}
}

// Indexer keeps the symbol store synchronized with one workspace.
type Indexer struct {
	rootDir  string
	registry *analyzer.Registry
	store    *store.Store
	matcher  *ignore.Matcher
	logger   *slog.Logger

	// writeMu serializes externally triggered mutations (an MCP reindex)
	// against the watch loop. The event stream itself is already
	// single-consumer.
	writeMu sync.Mutex

	stateMu sync.Mutex
	state   State

	observerMu sync.Mutex
	observers  []func(Progress)
}

// Progress reports full-workspace scan progress.
type Progress struct {
	TotalFiles     int
	ProcessedFiles int
	CurrentFile    string
	IsComplete     bool
}

// New creates an indexer for the workspace rooted at rootDir.
func New(rootDir string, registry *analyzer.Registry, st *store.Store, matcher *ignore.Matcher, logger *slog.Logger) *Indexer {
	return &Indexer{
		rootDir:  rootDir,
		registry: registry,
		store:    st,
		matcher:  matcher,
		logger:   logger,
	}
}

// OnProgress registers a progress observer. Observers are called from the
// scanning goroutine and must not block.
func (ix *Indexer) OnProgress(fn func(Progress)) {
	ix.observerMu.Lock()
	defer ix.observerMu.Unlock()
	ix.observers = append(ix.observers, fn)
}

func (ix *Indexer) emitProgress(p Progress) {
	ix.observerMu.Lock()
	observers := make([]func(Progress), len(ix.observers))
	copy(observers, ix.observers)
	ix.observerMu.Unlock()

	for _, fn := range observers {
		fn(p)
	}
}

// State returns the current indexing state.
func (ix *Indexer) State() State {
	ix.stateMu.Lock()
	defer ix.stateMu.Unlock()
	return ix.state
}

func (ix *Indexer) setState(s State) {
	ix.stateMu.Lock()
	ix.state = s
	ix.stateMu.Unlock()
}

// relPath converts an absolute workspace path to the store's key form:
// forward-slash relative to the root.
func (ix *Indexer) relPath(absolutePath string) string {
	rel, err := filepath.Rel(ix.rootDir, absolutePath)
	if err != nil {
		rel = absolutePath
	}
	return filepath.ToSlash(rel)
}

// IndexFile analyzes one file and commits the result to the store.
//
// Unchanged content is skipped: if the stored hash for the path matches
// the current bytes, neither the analyzer nor the store is touched. Files
// over the configured size limit are skipped here too, so watch events
// honor the same limit full scans do. An *analyzer.AnalysisError leaves
// the file's previous index entry intact and is returned to the caller;
// read and store errors propagate.
func (ix *Indexer) IndexFile(ctx context.Context, absolutePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := ix.registry.ForPath(absolutePath)
	if a == nil {
		return nil // unregistered extension: not indexed
	}

	info, err := os.Stat(absolutePath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", absolutePath, err)
	}
	if ix.matcher.IsFileTooLarge(info.Size()) {
		ix.logger.Debug("file exceeds size limit, skipping", "path", ix.relPath(absolutePath), "size", info.Size())
		return nil
	}

	content, err := readFileWithRetry(absolutePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", absolutePath, err)
	}
	if isBinaryContent(content) {
		return nil
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	rel := ix.relPath(absolutePath)

	existing, err := ix.store.FileByPath(rel)
	if err != nil {
		return err
	}
	if existing != nil && existing.Hash == hash {
		ix.logger.Debug("content unchanged, skipping", "path", rel)
		return nil
	}

	structure, err := a.Analyze(content)
	if err != nil {
		// Unparseable content keeps its previous stale-but-valid entry.
		ix.logger.Warn("analysis failed, keeping previous index entry", "path", rel, "error", err)
		return err
	}

	file := &store.WorkspaceFile{
		Path:      rel,
		Language:  structure.Language,
		Hash:      hash,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		IndexedAt: time.Now(),
	}
	if err := ix.store.ReplaceFileStructure(file, structure, string(content)); err != nil {
		return err
	}

	ix.logger.Debug("indexed", "path", rel, "language", file.Language, "symbols", len(structure.Symbols))
	return nil
}

// RemoveFile deletes a path's file row; symbols and text documents
// cascade.
func (ix *Indexer) RemoveFile(absolutePath string) error {
	rel := ix.relPath(absolutePath)
	if err := ix.store.DeleteFile(rel); err != nil {
		return err
	}
	ix.logger.Debug("removed from index", "path", rel)
	return nil
}

// readFileWithRetry reads a file, retrying once after a short delay if the
// first read fails (editors briefly lock files on Windows while saving).
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	time.Sleep(50 * time.Millisecond)
	return os.ReadFile(path)
}

// isBinaryContent reports whether data looks binary: a NUL byte within the
// first 512 bytes.
func isBinaryContent(data []byte) bool {
	limit := 512
	if len(data) < limit {
		limit = len(data)
	}
	for i := 0; i < limit; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
