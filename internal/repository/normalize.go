package repository

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// caseInsensitiveFS is true on filesystems that fold case by default. Two
// spellings of the same directory must produce one cache key there.
var caseInsensitiveFS = runtime.GOOS == "windows" || runtime.GOOS == "darwin"

// NormalizePath is the single funnel for every cache key in the engine:
// absolute, symlinks resolved, trailing separator stripped, case-folded on
// case-insensitive filesystems. Paths that cannot be resolved (for example a
// repository deleted after caching) are cleaned without symlink resolution so
// the key stays stable.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = filepath.Clean(abs)
	}

	sep := string(os.PathSeparator)
	if resolved != sep {
		resolved = strings.TrimRight(resolved, sep)
		if resolved == "" {
			resolved = sep
		}
	}

	if caseInsensitiveFS {
		resolved = strings.ToLower(resolved)
	}

	return resolved
}

// ContainsPath reports whether path is root itself or lies beneath it. The
// test requires a path-separator boundary so /w/project1 never claims files
// under /w/project10.
func ContainsPath(root, path string) bool {
	if root == "" || path == "" {
		return false
	}

	normRoot := NormalizePath(root)
	normPath := NormalizePath(path)

	if normPath == normRoot {
		return true
	}

	prefix := normRoot
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(normPath, prefix)
}
