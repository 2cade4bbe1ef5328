package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// Config controls chunking behavior. All sizes are in estimated tokens.
type Config struct {
	TargetTokens  int // Preferred chunk size.
	MaxTokens     int // Hard ceiling; only an oversized single page may exceed it.
	OverlapTokens int // Overlap carried between consecutive text chunks.
	ImageTokens   int // Cost charged for each attached page image.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TargetTokens:  8000,
		MaxTokens:     12000,
		OverlapTokens: 200,
		ImageTokens:   1200,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.TargetTokens <= 0 {
		c.TargetTokens = d.TargetTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.MaxTokens < c.TargetTokens {
		c.MaxTokens = c.TargetTokens
	}
	if c.OverlapTokens < 0 {
		c.OverlapTokens = 0
	}
	if c.OverlapTokens >= c.TargetTokens/2 {
		c.OverlapTokens = c.TargetTokens / 4
	}
	if c.ImageTokens < 0 {
		c.ImageTokens = 0
	}
	return c
}

// Chunk is a contiguous span [Start, End) of a document's full text.
type Chunk struct {
	Index           int       `json:"index"`
	Start           int       `json:"start"`
	End             int       `json:"end"`
	Pages           []int     `json:"pages"`
	EstimatedTokens int       `json:"estimated_tokens"`
	Overflow        bool      `json:"overflow,omitempty"`
	Vector          []float64 `json:"-"`
}

// Text returns the chunk's slice of the full text it was planned against.
func (c Chunk) Text(full string) string {
	return full[c.Start:c.End]
}

// Labels returns "Page N" labels for the chunk's pages.
func (c Chunk) Labels() []string {
	out := make([]string, len(c.Pages))
	for i, p := range c.Pages {
		out[i] = fmt.Sprintf("Page %d", p)
	}
	return out
}

// FirstPage and LastPage return the page range, or 0 when unknown.
func (c Chunk) FirstPage() int {
	if len(c.Pages) == 0 {
		return 0
	}
	return c.Pages[0]
}

func (c Chunk) LastPage() int {
	if len(c.Pages) == 0 {
		return 0
	}
	return c.Pages[len(c.Pages)-1]
}

// boundary is a candidate break pattern and the fraction of the window,
// measured back from its end, in which it is accepted.
type boundary struct {
	sep    string
	window float64
}

var boundaries = []boundary{
	{"\n\nPage ", 0.5}, // page marker
	{"\n\n", 0.5},
	{". ", 0.3},
	{"\n", 0.3},
	{" ", 0.2},
}

// PlanText splits text into ranges of at most TargetTokens, ending each range
// at the strongest natural boundary near the end of the window. Consecutive
// ranges overlap by at most OverlapTokens worth of characters. Output is a
// pure function of (text, cfg).
func PlanText(text string, cfg Config) []Chunk {
	cfg = cfg.normalized()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	targetChars := cfg.TargetTokens * CharsPerToken
	overlapChars := cfg.OverlapTokens * CharsPerToken
	idx := newMarkerIndex(text)

	var chunks []Chunk
	pos := 0
	for pos < len(text) {
		end := len(text)
		if len(text)-pos > targetChars {
			end = findBreak(text, pos, pos+targetChars)
		}
		chunks = append(chunks, Chunk{
			Index:           len(chunks),
			Start:           pos,
			End:             end,
			Pages:           idx.pages(pos, end),
			EstimatedTokens: EstimateTokens(text[pos:end]),
		})
		if end == len(text) {
			break
		}
		pos = nextStart(text, pos, end, overlapChars)
	}
	return chunks
}

// findBreak picks the end offset for a window [pos, limit).
func findBreak(text string, pos, limit int) int {
	size := limit - pos
	for _, b := range boundaries {
		lo := limit - int(float64(size)*b.window)
		if i := strings.LastIndex(text[lo:limit], b.sep); i >= 0 {
			end := lo + i
			if b.sep == ". " {
				end++ // keep the period
			} else if b.sep != "\n\nPage " {
				end += len(b.sep)
			} else {
				end += 2
			}
			if end > pos {
				return end
			}
		}
	}
	for limit > pos+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}

// nextStart backs up from end by at most overlapChars, snapping forward to
// the next word start so the overlap never begins mid-word.
func nextStart(text string, pos, end, overlapChars int) int {
	if overlapChars <= 0 {
		return end
	}
	start := end - overlapChars
	if start <= pos {
		return end
	}
	if i := strings.IndexAny(text[start:end], " \n"); i >= 0 {
		start += i + 1
	}
	if start >= end {
		return end
	}
	for start < end && !utf8.RuneStart(text[start]) {
		start++
	}
	return start
}

// PlanPages groups whole pages into chunks for multimodal calls. Each page
// costs its text tokens plus ImageTokens when it carries an image. A page
// that alone exceeds MaxTokens is emitted by itself with Overflow set.
func PlanPages(doc *document.Document, cfg Config) []Chunk {
	cfg = cfg.normalized()
	spans := doc.PageSpans()
	full := doc.FullText()

	var chunks []Chunk
	var cur *Chunk
	flush := func() {
		if cur != nil {
			cur.Index = len(chunks)
			chunks = append(chunks, *cur)
			cur = nil
		}
	}

	for i, s := range spans {
		cost := EstimateTokens(full[s.Start:s.End])
		if doc.Pages[i].Image != nil {
			cost += cfg.ImageTokens
		}

		if cost > cfg.MaxTokens {
			flush()
			cur = &Chunk{Start: s.Start, End: s.End, Pages: []int{s.Page}, EstimatedTokens: cost, Overflow: true}
			flush()
			continue
		}
		if cur != nil && cur.EstimatedTokens+cost > cfg.TargetTokens {
			flush()
		}
		if cur == nil {
			cur = &Chunk{Start: s.Start, End: s.Start}
		}
		cur.End = s.End
		cur.Pages = append(cur.Pages, s.Page)
		cur.EstimatedTokens += cost
	}
	flush()
	return chunks
}
