package mapper

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true, "that": true,
	"from": true, "are": true, "was": true, "were": true, "has": true, "have": true,
	"not": true, "but": true, "its": true, "his": true, "her": true, "their": true,
	"which": true, "should": true, "would": true, "could": true, "may": true,
	"report": true, "reported": true, "shows": true, "listed": true, "appears": true,
	"issue": true, "item": true, "page": true,
}

// normalizeWord lowercases and strips leading/trailing punctuation.
func normalizeWord(w string) string {
	return strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ExtractKeywords returns the distinct content words of s in order of first
// appearance. Words shorter than three characters are dropped unless they
// contain a digit.
func ExtractKeywords(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range strings.Fields(s) {
		w := normalizeWord(f)
		if w == "" || seen[w] || stopwords[w] {
			continue
		}
		if len([]rune(w)) < 3 && !strings.ContainsFunc(w, unicode.IsDigit) {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// compact lowercases s and removes all whitespace.
func compact(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
