// Package template implements the {{variable}} placeholder engine and the
// persisted template collection.
package template

import (
	"regexp"
	"strings"
)

// placeholderRe matches a double-brace-delimited identifier made of
// letters, digits and underscore.
var placeholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// ExtractVariables returns each distinct placeholder identifier in order
// of first appearance, case preserved as written.
func ExtractVariables(text string) []string {
	var (
		vars []string
		seen = map[string]bool{}
	)
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		key := strings.ToLower(name)
		if !seen[key] {
			seen[key] = true
			vars = append(vars, name)
		}
	}
	return vars
}

// Substitute replaces every placeholder with the matching field value,
// looked up case-insensitively. Unresolved placeholders become empty text.
// Matches are resolved in reverse position order so the index ranges of
// earlier matches stay valid while the string is rewritten.
func Substitute(text string, fields map[string]string) string {
	matches := placeholderRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	result := text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		name := strings.ToLower(text[m[2]:m[3]])
		result = result[:m[0]] + fields[name] + result[m[1]:]
	}
	return result
}
