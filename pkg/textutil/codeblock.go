// Package textutil holds the string handling shared by planning and
// execution: fenced code blocks, artifact markup, identifier case
// conversion, container path mapping and directory trees.
package textutil

import (
	"regexp"
	"strings"
	"sync"
)

var (
	codeBlockMu    sync.Mutex
	codeBlockCache = map[string]*regexp.Regexp{}
)

func codeBlockPattern(language string) *regexp.Regexp {
	codeBlockMu.Lock()
	defer codeBlockMu.Unlock()
	if re, ok := codeBlockCache[language]; ok {
		return re
	}
	re := regexp.MustCompile("(?s)```" + regexp.QuoteMeta(language) + "(.*?)```")
	codeBlockCache[language] = re
	return re
}

// ExtractCodeBlocks returns the trimmed bodies of every fenced block
// opened with language, in order. It returns nil when there is none.
func ExtractCodeBlocks(content, language string) []string {
	matches := codeBlockPattern(language).FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// CodeBlockOrContent returns the first block for language, or the whole
// content trimmed when there is no fence.
func CodeBlockOrContent(content, language string) string {
	if blocks := ExtractCodeBlocks(content, language); len(blocks) > 0 {
		return blocks[0]
	}
	return strings.TrimSpace(content)
}
