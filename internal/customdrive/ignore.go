package customdrive

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignored reports whether absPath, relative to root, matches any of
// patterns. Patterns are doublestar globs matched against the
// slash-separated relative path, so a pattern like "**/.DS_Store" or
// "node_modules/**" behaves the way a user expects regardless of OS
// path separators.
func ignored(root, absPath string, patterns []string) bool {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if strings.Contains(rel, "/") {
			if ok, _ := doublestar.Match(pattern, filepath.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}
