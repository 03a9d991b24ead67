package textutil

import (
	"strings"
	"unicode"
)

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

// ToUnderline converts CamelCase to snake_case. An underscore goes before
// an upper case letter that follows a lower case one, or that starts a new
// word ahead of a lower case letter ("HTTPServer" -> "http_server").
func ToUnderline(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if isUpper(r) && i > 0 {
			prevLower := isLower(runes[i-1])
			nextLower := i+1 < len(runes) && isLower(runes[i+1])
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// UnderlineToUpperCamelCase converts snake_case to UpperCamelCase.
func UnderlineToUpperCamelCase(s string) string {
	runes := []rune(strings.ToLower(s))
	var b strings.Builder
	upperNext := true
	for i, r := range runes {
		if r == '_' && i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
			upperNext = true
			continue
		}
		if upperNext {
			r = unicode.ToUpper(r)
			upperNext = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UpperCamelCaseToLowerCamelCase lowers the first letter.
func UpperCamelCaseToLowerCamelCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// UnderlineToLowerCamelCase converts snake_case to lowerCamelCase.
func UnderlineToLowerCamelCase(s string) string {
	return UpperCamelCaseToLowerCamelCase(UnderlineToUpperCamelCase(s))
}
