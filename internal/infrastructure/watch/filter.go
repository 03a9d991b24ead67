package watch

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/autostack/autostack/pkg/textutil"
)

// Filter decides which paths below Root are reported.
type Filter struct {
	Root   string
	Ignore *textutil.IgnoreRules
	// Skip names directories that are never entered, such as node_modules.
	Skip []string
	// Keep lists paths relative to Root reported even when they sit in a
	// skipped directory.
	Keep []string
}

// Allows reports whether path should be watched or reported.
func (f Filter) Allows(path string, isDir bool) bool {
	rel, err := filepath.Rel(f.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return true
	}
	for _, k := range f.Keep {
		if rel == k || (isDir && isParent(rel, k)) {
			return true
		}
	}
	for _, part := range strings.Split(rel, "/") {
		if slices.Contains(f.Skip, part) {
			return false
		}
	}
	return !f.Ignore.Match(rel, isDir)
}

func isParent(dir, path string) bool {
	return strings.HasPrefix(path, dir+"/")
}
