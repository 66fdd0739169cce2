// Package exclude centralizes the directory-basename exclusion rules
// shared by the Scanner and the Watcher, so a path pruned from the
// initial walk is also never re-admitted through a filesystem event.
package exclude

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultDirs are directory basenames pruned from every walk and
// watch subscription, exact-match plus the .Trash prefix rule.
var defaultDirs = map[string]struct{}{
	".git": {}, "node_modules": {}, "__pycache__": {}, ".cache": {}, ".npm": {},
	".cargo": {}, "target": {}, "build": {}, "dist": {}, ".next": {}, ".nuxt": {},
	".Trash": {}, "Trash": {},
}

// IsDir reports whether a directory basename matches the fixed
// exclusion set: the exact-match names or the .Trash* prefix rule.
func IsDir(basename string) bool {
	if _, ok := defaultDirs[basename]; ok {
		return true
	}
	return strings.HasPrefix(basename, ".Trash")
}

// MatchesGlob reports whether path matches any of the caller-supplied
// doublestar exclusion globs (config-driven, in addition to the fixed
// set IsDir covers).
func MatchesGlob(path string, globs []string) bool {
	for _, pattern := range globs {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
