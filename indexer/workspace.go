package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/symdex/symdex-mcp/analyzer"
)

// IndexWorkspace enumerates all indexable files under the workspace root
// and indexes them sequentially. A single file's failure is logged and the
// scan continues; cancellation is honored between files, never
// mid-mutation.
func (ix *Indexer) IndexWorkspace(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	ix.setState(StateScanning)
	defer ix.setState(StateIdle)

	paths, err := ix.collectFiles(ctx)
	if err != nil {
		return err
	}

	ix.setState(StateIndexing)
	total := len(paths)
	ix.emitProgress(Progress{TotalFiles: total})

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		ix.emitProgress(Progress{
			TotalFiles:     total,
			ProcessedFiles: i,
			CurrentFile:    ix.relPath(path),
		})

		if err := ix.IndexFile(ctx, path); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			var analysisErr *analyzer.AnalysisError
			if errors.As(err, &analysisErr) {
				continue // already logged by IndexFile
			}
			ix.logger.Warn("failed to index file, continuing scan", "path", ix.relPath(path), "error", err)
		}
	}

	ix.emitProgress(Progress{
		TotalFiles:     total,
		ProcessedFiles: total,
		IsComplete:     true,
	})
	return nil
}

// collectFiles walks the workspace and keeps files with a registered
// analyzer extension that are not ignored or oversized.
func (ix *Indexer) collectFiles(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(ix.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != ix.rootDir && ix.matcher.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if ix.registry.ForPath(path) == nil {
			return nil
		}
		if ix.matcher.ShouldIgnore(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if ix.matcher.IsFileTooLarge(info.Size()) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
