package chunker

import "unicode/utf8"

// CharsPerToken is the ratio behind the token heuristic.
const CharsPerToken = 4

// EstimateTokens gives a rough token count using the ~4 chars/token heuristic.
// Exact tokenization is not required for budgeting.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}
