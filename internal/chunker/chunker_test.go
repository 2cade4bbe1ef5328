package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

func tenPageDoc(pageText func(n int) string) *document.Document {
	doc := &document.Document{}
	for n := 1; n <= 10; n++ {
		doc.Pages = append(doc.Pages, &document.Page{Number: n, Text: pageText(n)})
	}
	return doc
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%d chars): expected %d, got %d", len(tt.in), tt.want, got)
		}
	}
}

func TestPlanText_ShortTextOneChunk(t *testing.T) {
	text := "Page 1:\nCAPITAL ONE BANK\nAccount Number: XXXX1234\n\n"
	chunks := PlanText(text, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != len(text) {
		t.Errorf("expected range [0,%d), got [%d,%d)", len(text), chunks[0].Start, chunks[0].End)
	}
	if !reflect.DeepEqual(chunks[0].Pages, []int{1}) {
		t.Errorf("expected pages [1], got %v", chunks[0].Pages)
	}
}

func TestPlanText_EmptyText(t *testing.T) {
	if chunks := PlanText("  \n ", DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected no chunks for blank text, got %d", len(chunks))
	}
}

func TestPlanText_ReconstructsWithBoundedOverlap(t *testing.T) {
	doc := tenPageDoc(func(n int) string {
		return strings.Repeat(fmt.Sprintf("Account %d reported late. Balance due.\n", n), 40)
	})
	text := doc.FullText()
	cfg := Config{TargetTokens: 600, MaxTokens: 800, OverlapTokens: 40}
	chunks := PlanText(text, cfg)

	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 0 {
		t.Errorf("expected first chunk to start at 0, got %d", chunks[0].Start)
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Errorf("expected last chunk to end at %d, got %d", len(text), last.End)
	}

	overlapChars := cfg.OverlapTokens * CharsPerToken
	var rebuilt strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.EstimatedTokens > cfg.MaxTokens {
			t.Errorf("chunk %d: %d tokens exceeds max %d", i, c.EstimatedTokens, cfg.MaxTokens)
		}
		if c.Overflow {
			t.Errorf("chunk %d: unexpected overflow flag", i)
		}
		if c.Start > prevEnd {
			t.Fatalf("chunk %d: gap between %d and %d", i, prevEnd, c.Start)
		}
		if prevEnd-c.Start > overlapChars {
			t.Errorf("chunk %d: overlap %d exceeds %d", i, prevEnd-c.Start, overlapChars)
		}
		rebuilt.WriteString(text[prevEnd:c.End])
		prevEnd = c.End
	}
	if rebuilt.String() != text {
		t.Error("chunk ranges do not reconstruct the original text")
	}
}

func TestPlanText_Deterministic(t *testing.T) {
	doc := tenPageDoc(func(n int) string {
		return strings.Repeat("Charge-off reported by creditor. ", 30+n)
	})
	text := doc.FullText()
	cfg := Config{TargetTokens: 500, MaxTokens: 700, OverlapTokens: 25}
	a := PlanText(text, cfg)
	b := PlanText(text, cfg)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical chunk boundaries across runs")
	}
}

func TestPlanText_PrefersParagraphBoundary(t *testing.T) {
	p1 := strings.Repeat("word ", 60) // 300 chars
	p2 := strings.Repeat("word ", 60)
	text := p1 + "\n\n" + p2
	chunks := PlanText(text, Config{TargetTokens: 100, MaxTokens: 100})
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[0].End != 302 {
		t.Errorf("expected first chunk to end after the paragraph break at 302, got %d", chunks[0].End)
	}
}

func TestPlanText_SentenceBoundary(t *testing.T) {
	text := strings.Repeat("abcdefghi ", 35) + "End. " + strings.Repeat("abcdefghi ", 30)
	chunks := PlanText(text, Config{TargetTokens: 100, MaxTokens: 100})
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if got := text[:chunks[0].End]; !strings.HasSuffix(got, "End.") {
		t.Errorf("expected first chunk to end at the sentence, got suffix %q", got[len(got)-10:])
	}
}

func TestPlanText_PagesCoverDocument(t *testing.T) {
	doc := tenPageDoc(func(n int) string { return strings.Repeat("Payment history OK. ", 50) })
	chunks := PlanText(doc.FullText(), Config{TargetTokens: 900, MaxTokens: 1000, OverlapTokens: 20})

	seen := map[int]bool{}
	for _, c := range chunks {
		if len(c.Pages) == 0 {
			t.Fatalf("chunk %d has no pages", c.Index)
		}
		for i := 1; i < len(c.Pages); i++ {
			if c.Pages[i] != c.Pages[i-1]+1 {
				t.Errorf("chunk %d: non-contiguous pages %v", c.Index, c.Pages)
			}
		}
		for _, p := range c.Pages {
			seen[p] = true
		}
	}
	for n := 1; n <= 10; n++ {
		if !seen[n] {
			t.Errorf("page %d not covered by any chunk", n)
		}
	}
}

func TestPlanPages_TenPagesThreeChunks(t *testing.T) {
	// Each page span is 1000 chars (250 tokens); page 10 has a wider marker.
	doc := tenPageDoc(func(n int) string { return strings.Repeat("x", 990) })
	chunks := PlanPages(doc, Config{TargetTokens: 1000, MaxTokens: 1200})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := [][]int{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10}}
	for i, c := range chunks {
		if !reflect.DeepEqual(c.Pages, want[i]) {
			t.Errorf("chunk %d: expected pages %v, got %v", i, want[i], c.Pages)
		}
	}
	full := doc.FullText()
	if chunks[0].Start != 0 || chunks[2].End != len(full) {
		t.Errorf("expected chunks to span the full text, got [%d,%d)", chunks[0].Start, chunks[2].End)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start != chunks[i-1].End {
			t.Errorf("chunk %d: expected start %d, got %d", i, chunks[i-1].End, chunks[i].Start)
		}
	}
}

func TestPlanPages_OversizedPageFlagged(t *testing.T) {
	doc := tenPageDoc(func(n int) string {
		if n == 2 {
			return strings.Repeat("y", 60000) // ~15000 tokens
		}
		return "short page"
	})
	chunks := PlanPages(doc, DefaultConfig())

	var overflow []Chunk
	for _, c := range chunks {
		if c.Overflow {
			overflow = append(overflow, c)
			continue
		}
		if c.EstimatedTokens > DefaultConfig().MaxTokens {
			t.Errorf("chunk %d: %d tokens without overflow flag", c.Index, c.EstimatedTokens)
		}
	}
	if len(overflow) != 1 {
		t.Fatalf("expected 1 overflow chunk, got %d", len(overflow))
	}
	if !reflect.DeepEqual(overflow[0].Pages, []int{2}) {
		t.Errorf("expected overflow chunk to hold page 2 alone, got %v", overflow[0].Pages)
	}
	full := doc.FullText()
	if got := overflow[0].Text(full); !strings.Contains(got, strings.Repeat("y", 60000)) {
		t.Error("expected oversized page text to be kept whole")
	}
}

func TestPlanPages_ImageCost(t *testing.T) {
	doc := tenPageDoc(func(n int) string { return "hi" })
	for _, p := range doc.Pages {
		p.Image = &document.PageImage{PageNumber: p.Number, DPI: 150}
	}
	chunks := PlanPages(doc, DefaultConfig())
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Pages) != 6 {
		t.Errorf("expected 6 pages in first chunk, got %v", chunks[0].Pages)
	}
	if got := chunks[0].Labels(); got[0] != "Page 1" || got[5] != "Page 6" {
		t.Errorf("unexpected labels %v", got)
	}
}

func TestResolvePages(t *testing.T) {
	doc := tenPageDoc(func(n int) string { return strings.Repeat("z", 100) })
	text := doc.FullText()
	spans := doc.PageSpans()

	got := ResolvePages(text, spans[2].Start+10, spans[4].Start+5, 10)
	if !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Errorf("expected pages [3 4 5], got %v", got)
	}

	plain := strings.Repeat("q", 1000)
	if got := ResolvePages(plain, 0, 100, 10); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("expected estimated page [1], got %v", got)
	}
	if got := ResolvePages(plain, 450, 650, 10); !reflect.DeepEqual(got, []int{5, 6, 7}) {
		t.Errorf("expected estimated pages [5 6 7], got %v", got)
	}
}
