package analyzer

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry maps file extensions to analyzers. Registration order decides
// conflicts: the first analyzer registered for an extension keeps it.
type Registry struct {
	mu          sync.RWMutex
	byExtension map[string]Analyzer
}

// NewRegistry creates an empty analyzer registry.
func NewRegistry() *Registry {
	return &Registry{byExtension: make(map[string]Analyzer)}
}

// Register adds an analyzer for all of its declared extensions.
// Extensions already claimed by an earlier registration are left untouched.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range a.Extensions() {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if ext == "" {
			continue
		}
		if _, taken := r.byExtension[ext]; taken {
			continue
		}
		r.byExtension[ext] = a
	}
}

// ForPath returns the analyzer registered for the path's extension,
// or nil if the extension has no analyzer.
func (r *Registry) ForPath(path string) Analyzer {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byExtension[ext]
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Languages returns the distinct language identifiers of all registered
// analyzers, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var langs []string
	for _, a := range r.byExtension {
		if !seen[a.Language()] {
			seen[a.Language()] = true
			langs = append(langs, a.Language())
		}
	}
	sort.Strings(langs)
	return langs
}
