// Package projectpath normalizes project file paths so that paths which differ
// only in form (relative vs absolute, separators, case on case-insensitive
// hosts) compare equal.
package projectpath

import (
	"path/filepath"
	"runtime"
	"strings"
)

// caseInsensitive reports whether the host filesystem ignores case by default.
var caseInsensitive = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// Normalize returns the canonical form of path. Empty input stays empty.
func Normalize(path string) string {
	return normalize(path, caseInsensitive)
}

func normalize(path string, foldCase bool) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}

	// Engine logs produced on Windows use backslashes regardless of the host.
	path = strings.ReplaceAll(path, `\`, "/")

	if abs, err := filepath.Abs(filepath.FromSlash(path)); err == nil {
		path = abs
	}
	path = filepath.ToSlash(filepath.Clean(path))

	if foldCase {
		path = strings.ToLower(path)
	}
	return path
}

// Equal reports whether a and b name the same project file.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Absolute resolves path against the working directory, keeping its case and
// separators. Paths rooted on a Windows drive or share are kept as logged,
// whatever the host.
func Absolute(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	if windowsRooted(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func windowsRooted(path string) bool {
	if strings.HasPrefix(path, `\\`) {
		return true
	}
	return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
}
