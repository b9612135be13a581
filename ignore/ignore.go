// Package ignore decides which paths are excluded from indexing. It
// combines built-in defaults, the workspace .gitignore, and configured
// glob patterns (doublestar syntax: `**` matches any depth, `*` one path
// segment), all matched case-insensitively against forward-slash relative
// paths.
package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher reports whether a file or directory should be skipped.
// Thread-safe: Reload takes the write lock, the Should* methods read locks.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	gitIgnore        gitignore.GitIgnore
	patterns         []string // configured globs, pre-lowercased
	maxFileSizeBytes int64
}

// Options configures a Matcher.
type Options struct {
	RootDir          string
	Patterns         []string // doublestar globs, matched case-insensitively
	MaxFileSizeBytes int64    // 0 means the 1MB default
}

// NewMatcher builds a matcher for the workspace rooted at Options.RootDir.
// Invalid glob patterns are dropped silently.
func NewMatcher(opts Options) *Matcher {
	m := &Matcher{
		rootDir:          opts.RootDir,
		maxFileSizeBytes: opts.MaxFileSizeBytes,
	}
	if m.maxFileSizeBytes <= 0 {
		m.maxFileSizeBytes = 1024 * 1024
	}
	for _, p := range opts.Patterns {
		p = strings.ToLower(filepath.ToSlash(strings.TrimSpace(p)))
		if p != "" && doublestar.ValidatePattern(p) {
			m.patterns = append(m.patterns, p)
		}
	}
	m.gitIgnore = loadIgnoreFile(filepath.Join(opts.RootDir, ".gitignore"), opts.RootDir)
	return m
}

// ShouldIgnore reports whether the given absolute path is excluded from
// indexing.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rel, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		rel = absolutePath
	}
	rel = filepath.ToSlash(rel)
	relLower := strings.ToLower(rel)

	if matchesDefaults(relLower) {
		return true
	}

	for _, pattern := range m.patterns {
		if ok, _ := doublestar.Match(pattern, relLower); ok {
			return true
		}
		// A directory pattern also excludes everything beneath it.
		if ok, _ := doublestar.Match(pattern+"/**", relLower); ok {
			return true
		}
	}

	if m.gitIgnore != nil {
		isDir := false
		if info, err := os.Stat(absolutePath); err == nil {
			isDir = info.IsDir()
		}
		if match := m.gitIgnore.Relative(rel, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	return false
}

// ShouldIgnoreDir reports whether a directory subtree can be skipped
// entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if alwaysSkippedDirs[filepath.Base(absolutePath)] {
		return true
	}
	return m.ShouldIgnore(absolutePath)
}

// IsFileTooLarge reports whether a file exceeds the configured size limit.
func (m *Matcher) IsFileTooLarge(size int64) bool {
	return size > m.maxFileSizeBytes
}

// MaxFileSizeBytes returns the configured limit.
func (m *Matcher) MaxFileSizeBytes() int64 { return m.maxFileSizeBytes }

// Reload re-reads the workspace .gitignore. Called when the watcher sees
// the ignore file change.
func (m *Matcher) Reload() {
	fresh := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = fresh
}

// loadIgnoreFile reads an ignore file into a GitIgnore matcher, via an
// io.Reader so the handle is closed promptly on Windows.
func loadIgnoreFile(path string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	return gitignore.New(f, baseDir, nil)
}
