package textutil

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreRules is a small subset of gitignore: blank lines and comments are
// skipped, a trailing slash restricts a pattern to directories, a leading
// slash anchors it to the root, and patterns without a slash match any
// path segment. Negation is not supported.
type IgnoreRules struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	glob     string
	dirOnly  bool
	anchored bool
}

// ParseIgnore reads rules from gitignore formatted text.
func ParseIgnore(text string) *IgnoreRules {
	rules := &IgnoreRules{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		p := ignorePattern{}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		} else if strings.Contains(line, "/") {
			p.anchored = true
		}
		p.glob = line
		rules.patterns = append(rules.patterns, p)
	}
	return rules
}

// LoadIgnoreFile reads a gitignore file. A missing file yields no rules.
func LoadIgnoreFile(file string) (*IgnoreRules, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return &IgnoreRules{}, nil
		}
		return nil, err
	}
	return ParseIgnore(string(data)), nil
}

// Match reports whether rel, a slash separated path relative to the root,
// is ignored.
func (r *IgnoreRules) Match(rel string, isDir bool) bool {
	if r == nil {
		return false
	}
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	base := path.Base(rel)
	for _, p := range r.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := base
		if p.anchored {
			target = rel
		}
		if ok, _ := path.Match(p.glob, target); ok {
			return true
		}
	}
	return false
}

// TreeOptions tunes Tree.
type TreeOptions struct {
	Ignore *IgnoreRules
	// Skip names are never listed, whatever the ignore rules say.
	Skip []string
}

// Tree renders the directory under root:
//
//	project
//	+-- src
//	|   +-- main.ts
//	+-- package.json
//
// Entries are listed in name order.
func Tree(root string, opts TreeOptions) (string, error) {
	var b strings.Builder
	b.WriteString(filepath.Base(filepath.Clean(root)))
	b.WriteByte('\n')
	if err := writeTree(&b, root, "", "", opts); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeTree(b *strings.Builder, dir, rel, prefix string, opts TreeOptions) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	visible := entries[:0]
	for _, e := range entries {
		if skipped(e.Name(), opts.Skip) {
			continue
		}
		if opts.Ignore.Match(path.Join(rel, e.Name()), e.IsDir()) {
			continue
		}
		visible = append(visible, e)
	}

	for i, e := range visible {
		b.WriteString(prefix)
		b.WriteString("+-- ")
		b.WriteString(e.Name())
		b.WriteByte('\n')
		if !e.IsDir() {
			continue
		}
		childPrefix := prefix + "|   "
		if i == len(visible)-1 {
			childPrefix = prefix + "    "
		}
		if err := writeTree(b, filepath.Join(dir, e.Name()), path.Join(rel, e.Name()), childPrefix, opts); err != nil {
			return err
		}
	}
	return nil
}

func skipped(name string, skip []string) bool {
	for _, s := range skip {
		if s == name {
			return true
		}
	}
	return false
}
