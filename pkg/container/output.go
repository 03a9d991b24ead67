package container

import (
	"strings"
	"unicode"
)

// outputCollector keeps command output lines, dropping a line whose
// letters-only summary equals the previous line's. Progress bars and
// spinners repaint the same text and would otherwise flood the result.
type outputCollector struct {
	lines   []string
	last    string
	started bool
}

func (c *outputCollector) Add(line string) bool {
	summary := letters(line)
	if c.started && summary == c.last {
		return false
	}
	c.started = true
	c.last = summary
	c.lines = append(c.lines, line)
	return true
}

func (c *outputCollector) String() string {
	return strings.Join(c.lines, "\n")
}

func letters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
