// Package watcher turns raw filesystem notifications into a debounced
// stream of FileChangeEvents, filtered by ignore rules.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IgnoreChecker filters paths before they reach the debouncer.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Options configures a Watcher.
type Options struct {
	DebounceDelay time.Duration // 0 means the 100ms default
	Recursive     bool          // watch subdirectories
}

// Watcher provides recursive file system watching with per-path
// debouncing. OS-level watch errors are logged and the watcher keeps
// running; the event stream is only closed by Close.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	ignore    IgnoreChecker
	rootDir   string
	recursive bool
	logger    *slog.Logger
	done      chan struct{}
}

// NewWatcher creates a watcher on rootDir, registering all non-ignored
// subdirectories when Options.Recursive is set.
func NewWatcher(rootDir string, ignore IgnoreChecker, opts Options, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	delay := opts.DebounceDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(delay),
		ignore:    ignore,
		rootDir:   rootDir,
		recursive: opts.Recursive,
		logger:    logger,
		done:      make(chan struct{}),
	}

	if opts.Recursive {
		err = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			if !d.IsDir() {
				return nil
			}
			if path != rootDir && ignore.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			if watchErr := fsWatcher.Add(path); watchErr != nil {
				logger.Warn("failed to watch directory", "path", path, "error", watchErr)
			}
			return nil
		})
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
	} else {
		if err := fsWatcher.Add(rootDir); err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}

	return w, nil
}

// Events returns the debounced event stream. Exactly one consumer should
// read it; the channel closes when the watcher is closed.
func (w *Watcher) Events() <-chan FileChangeEvent {
	return w.debouncer.Output()
}

// Start listens for raw events until the watcher is closed. Run it in a
// goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleRaw(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch subsystem error", "error", err)
		}
	}
}

// handleRaw filters and classifies one fsnotify event.
//
// fsnotify reports a rename as a Rename on the old path with the new path
// arriving separately as Create, so the two halves cannot be paired here.
// The old path is emitted immediately as a Renamed with an empty new path
// (renames bypass debouncing) and the Create debounces normally.
func (w *Watcher) handleRaw(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.recursive && !w.ignore.ShouldIgnoreDir(path) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			return // no events for directory creation
		}
	}

	if w.ignore.ShouldIgnore(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Rename):
		w.debouncer.EmitRename(path, "")
	case event.Has(fsnotify.Create):
		w.debouncer.Add(path, Created)
	case event.Has(fsnotify.Write):
		w.debouncer.Add(path, Modified)
	case event.Has(fsnotify.Remove):
		w.debouncer.Add(path, Deleted)
	}
}

// Close stops the watcher, cancels pending debounce timers, and closes the
// event stream.
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	w.debouncer.Close()
	return err
}
