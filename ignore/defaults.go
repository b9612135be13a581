package ignore

import (
	"path/filepath"
	"strings"
)

// alwaysSkippedDirs are directory names that are never worth descending
// into, checked by basename before any pattern matching.
var alwaysSkippedDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"node_modules": true, "__pycache__": true, "vendor": true,
	".idea": true, ".vscode": true, ".vs": true,
	".next": true, ".nuxt": true, ".cache": true, ".parcel-cache": true,
	"coverage": true, ".nyc_output": true, "htmlcov": true,
	".venv": true, "venv": true,
}

// defaultNameSegments are path components that exclude a path outright.
var defaultNameSegments = []string{
	".git", ".svn", ".hg",
	"node_modules", "vendor", "bower_components",
	"__pycache__", ".venv", "venv",
	"dist", "build", "out", "target", "obj",
	".idea", ".vscode", ".vs",
	".cache", ".next", ".nuxt", "coverage",
}

// defaultExtensions are file extensions (lowercase, with dot) for content
// that is never indexable: binaries, archives, media, lock/minified files.
var defaultExtensions = map[string]bool{
	// compiled
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".o": true, ".a": true, ".lib": true, ".class": true, ".jar": true,
	// archives
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".rar": true, ".7z": true,
	// images / fonts / media
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".svg": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	// databases and logs
	".sqlite": true, ".sqlite3": true, ".db": true, ".log": true,
	// source maps
	".map": true,
}

// defaultBasenames are exact file names excluded regardless of location.
var defaultBasenames = map[string]bool{
	".ds_store": true, "thumbs.db": true, "desktop.ini": true,
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"gemfile.lock": true, "poetry.lock": true, "cargo.lock": true,
	"go.sum": true, "composer.lock": true,
}

// matchesDefaults checks a lowercased, slash-normalized relative path
// against the built-in exclusions.
func matchesDefaults(relLower string) bool {
	base := relLower
	if idx := strings.LastIndexByte(relLower, '/'); idx >= 0 {
		base = relLower[idx+1:]
	}

	if defaultBasenames[base] {
		return true
	}
	if strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css") {
		return true
	}
	if defaultExtensions[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	for _, part := range strings.Split(relLower, "/") {
		for _, seg := range defaultNameSegments {
			if part == seg {
				return true
			}
		}
	}
	return false
}
