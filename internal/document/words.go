package document

import (
	"unicode"
	"unicode/utf8"
)

// SplitWords breaks a multi-word span into one token per word. Each word
// gets a share of the span's width proportional to its character count.
func SplitWords(t Token) []Token {
	n := utf8.RuneCountInString(t.Text)
	if n == 0 {
		return nil
	}
	perChar := t.Box.Width / float64(n)

	var out []Token
	start, pos := -1, 0
	var word []rune
	emit := func() {
		if start < 0 {
			return
		}
		out = append(out, Token{
			Text: string(word),
			Box:  BBox{X: t.Box.X + float64(start)*perChar, Y: t.Box.Y, Width: float64(len(word)) * perChar, Height: t.Box.Height},
		})
		start, word = -1, word[:0:0]
	}
	for _, r := range t.Text {
		if unicode.IsSpace(r) {
			emit()
		} else {
			if start < 0 {
				start = pos
			}
			word = append(word, r)
		}
		pos++
	}
	emit()
	return out
}

// SplitSpans applies SplitWords to every token that holds more than one
// word and returns tokens already split unchanged.
func SplitSpans(tokens []Token) []Token {
	split := false
	for _, t := range tokens {
		if hasInnerSpace(t.Text) {
			split = true
			break
		}
	}
	if !split {
		return tokens
	}
	out := make([]Token, 0, len(tokens)*2)
	for _, t := range tokens {
		if hasInnerSpace(t.Text) {
			out = append(out, SplitWords(t)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func hasInnerSpace(s string) bool {
	seenWord, gap := false, false
	for _, r := range s {
		if unicode.IsSpace(r) {
			gap = seenWord
			continue
		}
		if gap {
			return true
		}
		seenWord = true
	}
	return false
}
