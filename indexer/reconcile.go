package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
)

// ReconcileResult summarizes one consistency pass.
type ReconcileResult struct {
	Indexed  int // files on disk the store was missing or had stale
	Removed  int // store rows whose files are gone from disk
	Duration time.Duration
}

// Reconcile compares the store against the filesystem and repairs both
// directions: missing or content-changed files are re-indexed (the hash
// skip inside IndexFile makes unchanged files free), rows for vanished
// files are removed. Used as a safety net for watch events lost while the
// process was down or the OS dropped notifications.
func (ix *Indexer) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	start := time.Now()
	result := &ReconcileResult{}

	paths, err := ix.collectFiles(ctx)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(paths))
	for _, path := range paths {
		onDisk[ix.relPath(path)] = true
	}

	indexed, err := ix.store.AllFiles()
	if err != nil {
		return nil, err
	}
	indexedHash := make(map[string]string, len(indexed))
	for _, f := range indexed {
		indexedHash[f.Path] = f.Hash
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := ix.relPath(path)
		before, known := indexedHash[rel]
		if err := ix.IndexFile(ctx, path); err != nil {
			var analysisErr *analyzer.AnalysisError
			if errors.As(err, &analysisErr) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			ix.logger.Debug("reconcile: skipped file", "path", rel, "error", err)
			continue
		}
		if !known {
			result.Indexed++
			continue
		}
		if after, err := ix.store.FileByPath(rel); err == nil && after != nil && after.Hash != before {
			result.Indexed++
		}
	}

	for _, f := range indexed {
		if onDisk[f.Path] {
			continue
		}
		if err := ix.store.DeleteFile(f.Path); err != nil {
			ix.logger.Warn("reconcile: failed to remove stale row", "path", f.Path, "error", err)
			continue
		}
		ix.logger.Info("reconcile: removed stale row", "path", f.Path)
		result.Removed++
	}

	result.Duration = time.Since(start)
	return result, nil
}

// RunPeriodicReconcile runs Reconcile at the given interval until ctx is
// cancelled.
func (ix *Indexer) RunPeriodicReconcile(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ix.logger.Info("periodic reconcile started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("periodic reconcile stopped")
			return
		case <-ticker.C:
			result, err := ix.Reconcile(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					ix.logger.Warn("reconcile failed", "error", err)
				}
				continue
			}
			if result.Indexed > 0 || result.Removed > 0 {
				ix.logger.Info("reconcile complete",
					"indexed", result.Indexed,
					"removed", result.Removed,
					"duration", result.Duration,
				)
			} else {
				ix.logger.Debug("reconcile complete, index in sync", "duration", result.Duration)
			}
		}
	}
}
