package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseWhitespace replaces every whitespace run with a single space
// and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Trim(whitespaceRegex.ReplaceAllString(s, " "), " ")
}

// NormalizeName lowercases and collapses a free-text name so it can be
// compared against keyword tables.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// MatchName reports whether the normalized name contains any of the
// given matchers.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
