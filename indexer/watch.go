package indexer

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/symdex/symdex-mcp/analyzer"
	"github.com/symdex/symdex-mcp/watcher"
)

// Watch consumes the debounced change event stream until the stream
// closes or ctx is cancelled. It is the single consumer loop that
// serializes all event-driven store mutations for the workspace.
func (ix *Indexer) Watch(ctx context.Context, events <-chan watcher.FileChangeEvent) {
	ix.setState(StateWatching)
	defer ix.setState(StateIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := ix.HandleChange(ctx, event); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				var analysisErr *analyzer.AnalysisError
				if !errors.As(err, &analysisErr) {
					ix.logger.Warn("failed to apply change", "path", event.Path, "type", event.Type.String(), "error", err)
				}
			}
		}
	}
}

// HandleChange applies one coalesced change event: created and modified
// re-index the path, deleted removes it, renamed removes the old path and
// indexes the new one. It re-enters the same IndexFile/RemoveFile code
// path full scans use.
func (ix *Indexer) HandleChange(ctx context.Context, event watcher.FileChangeEvent) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	switch event.Type {
	case watcher.Created, watcher.Modified:
		// An edited ignore file changes what the rest of the stream means.
		if filepath.Base(event.Path) == ".gitignore" {
			ix.matcher.Reload()
			ix.logger.Info("reloaded ignore rules")
			return nil
		}
		if ix.matcher.ShouldIgnore(event.Path) {
			return nil
		}
		return ix.IndexFile(ctx, event.Path)

	case watcher.Deleted:
		return ix.RemoveFile(event.Path)

	case watcher.Renamed:
		if event.OldPath != "" {
			if err := ix.RemoveFile(event.OldPath); err != nil {
				return err
			}
		}
		if event.Path == "" {
			// The watch subsystem could not pair the new path; its create
			// event arrives separately.
			return nil
		}
		return ix.IndexFile(ctx, event.Path)

	default:
		return nil
	}
}
