// Package sanitize cleans untrusted text (webhook sender names, agent notes)
// before it is stored and rendered by clients.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
)

// StripHTML removes HTML tags, including tags hidden behind common entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes free text such as notes: tags and control characters are
// removed, newlines and tabs are kept.
func Text(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, StripHTML(s)))
}

// DisplayName sanitizes a one-line name: tags removed, whitespace runs
// collapsed to one space, and the result cut to maxRunes.
func DisplayName(s string, maxRunes int) string {
	fields := strings.FieldsFunc(StripHTML(s), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	name := strings.Join(fields, " ")
	if maxRunes > 0 {
		if runes := []rune(name); len(runes) > maxRunes {
			name = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return name
}
