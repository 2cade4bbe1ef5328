package mapper

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// ErrInvalidBox is raised by the final validation pass when a highlight
// carries a non-finite coordinate.
var ErrInvalidBox = errors.New("highlight has non-finite coordinates")

// Config tunes matching.
type Config struct {
	MinOverlap       float64 // minimum keyword overlap ratio for a fuzzy match
	MaxWindow        int     // longest token window scored by fuzzy matching
	FuzzyScale       float64 // fuzzy confidence = overlap * FuzzyScale
	VisionConfidence float64 // confidence for model-reported coordinates
}

func DefaultConfig() Config {
	return Config{
		MinOverlap:       0.5,
		MaxWindow:        12,
		FuzzyScale:       0.9,
		VisionConfidence: 0.85,
	}
}

// Mapper resolves issues to boxes on their hinted page.
type Mapper struct {
	cfg Config
}

func New(cfg Config) *Mapper {
	d := DefaultConfig()
	if cfg.MinOverlap <= 0 || cfg.MinOverlap > 1 {
		cfg.MinOverlap = d.MinOverlap
	}
	if cfg.MaxWindow <= 0 {
		cfg.MaxWindow = d.MaxWindow
	}
	if cfg.FuzzyScale <= 0 || cfg.FuzzyScale > 1 {
		cfg.FuzzyScale = d.FuzzyScale
	}
	if cfg.VisionConfidence <= 0 || cfg.VisionConfidence > 1 {
		cfg.VisionConfidence = d.VisionConfidence
	}
	return &Mapper{cfg: cfg}
}

// Match is a resolved location.
type Match struct {
	Box        document.BBox
	Confidence float64
	Method     string
	Tokens     []int // indices of the matched tokens, empty for vision
}

// Locate tries exact, then fuzzy, then vision coordinates. It never returns
// a guessed box: when nothing validates, ok is false. Line spans are split
// into words first; Match.Tokens indexes the split sequence.
func (m *Mapper) Locate(is report.Issue, page *document.Page) (Match, bool) {
	if page == nil {
		return Match{}, false
	}
	tokens := document.SplitSpans(page.Tokens)
	if match, ok := ExactMatch(tokens, is.AnchorText); ok {
		return match, true
	}
	if match, ok := m.fuzzyMatch(is, tokens); ok {
		return match, true
	}
	if match, ok := m.visionMatch(is, page); ok {
		return match, true
	}
	return Match{}, false
}

// ExactMatch finds a contiguous token run whose concatenated text equals
// target, ignoring case and whitespace. The box is the union of exactly the
// matched tokens.
func ExactMatch(tokens []document.Token, target string) (Match, bool) {
	want := compact(target)
	if want == "" {
		return Match{}, false
	}
	norm := make([]string, len(tokens))
	for i, t := range tokens {
		norm[i] = compact(t.Text)
	}

	for i := range tokens {
		if norm[i] == "" || !strings.HasPrefix(want, norm[i]) {
			continue
		}
		got := norm[i]
		j := i
		for len(got) < len(want) && j+1 < len(tokens) {
			j++
			next := got + norm[j]
			if !strings.HasPrefix(want, next) {
				break
			}
			got = next
		}
		if got != want {
			continue
		}
		box, _ := document.UnionAll(tokens[i : j+1])
		if !box.Valid() {
			continue
		}
		return Match{Box: box, Confidence: 1.0, Method: report.MethodExact, Tokens: span(i, j)}, true
	}
	return Match{}, false
}

func span(i, j int) []int {
	out := make([]int, 0, j-i+1)
	for k := i; k <= j; k++ {
		out = append(out, k)
	}
	return out
}

// fuzzyMatch scores token windows by overlap with the anchor's keywords and,
// separately, the description's keywords, keeping the best window above
// MinOverlap.
func (m *Mapper) fuzzyMatch(is report.Issue, tokens []document.Token) (Match, bool) {
	if len(tokens) == 0 {
		return Match{}, false
	}
	var best Match
	found := false
	for _, kw := range [][]string{ExtractKeywords(is.AnchorText), ExtractKeywords(is.Description)} {
		if len(kw) == 0 {
			continue
		}
		if match, ok := m.bestWindow(tokens, kw); ok && (!found || match.Confidence > best.Confidence) {
			best, found = match, true
		}
	}
	return best, found
}

func (m *Mapper) bestWindow(tokens []document.Token, keywords []string) (Match, bool) {
	want := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		want[k] = true
	}
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = normalizeWord(t.Text)
	}

	bestScore, bestLo, bestHi := 0.0, -1, -1
	for i := range tokens {
		if !want[words[i]] {
			continue // windows start on a keyword
		}
		hit := map[string]bool{}
		last := i
		for j := i; j < len(tokens) && j-i < m.cfg.MaxWindow; j++ {
			if j > i && lineBreak(tokens[j-1].Box, tokens[j].Box) {
				break
			}
			if want[words[j]] && !hit[words[j]] {
				hit[words[j]] = true
				last = j
			}
			score := float64(len(hit)) / float64(len(want))
			// Prefer higher overlap, then the tighter window.
			if score > bestScore || (score == bestScore && bestLo >= 0 && last-i < bestHi-bestLo) {
				bestScore, bestLo, bestHi = score, i, last
			}
		}
	}
	if bestLo < 0 || bestScore < m.cfg.MinOverlap {
		return Match{}, false
	}

	var matched []document.Token
	var idx []int
	for k := bestLo; k <= bestHi; k++ {
		if want[words[k]] {
			matched = append(matched, tokens[k])
			idx = append(idx, k)
		}
	}
	box, _ := document.UnionAll(matched)
	if !box.Valid() {
		return Match{}, false
	}
	return Match{
		Box:        box,
		Confidence: bestScore * m.cfg.FuzzyScale,
		Method:     report.MethodFuzzy,
		Tokens:     idx,
	}, true
}

// lineBreak reports a jump of more than two line heights between tokens.
func lineBreak(prev, next document.BBox) bool {
	h := math.Max(prev.Height, next.Height)
	if h <= 0 {
		h = 12
	}
	return math.Abs(next.Y-prev.Y) > 2*h
}

// visionMatch converts model pixel coordinates to points and applies the
// validation gates: finite, inside the page, and overlapping page text
// unless the issue is critical or the page has no text layer.
func (m *Mapper) visionMatch(is report.Issue, page *document.Page) (Match, bool) {
	if is.VisionBox == nil || is.VisionDPI <= 0 {
		return Match{}, false
	}
	box := PixelsToPoints(*is.VisionBox, is.VisionDPI)
	if !box.Valid() || box.Width == 0 || box.Height == 0 {
		return Match{}, false
	}
	w, h := pageSize(page)
	if !box.Within(w, h) {
		return Match{}, false
	}
	if is.Type != report.TypeCritical && len(page.Tokens) > 0 && !touchesText(box, page.Tokens) {
		return Match{}, false
	}
	conf := m.cfg.VisionConfidence
	if is.Confidence > 0 && is.Confidence < conf {
		conf = is.Confidence
	}
	return Match{Box: box, Confidence: conf, Method: report.MethodVision}, true
}

// PixelsToPoints scales a pixel box rendered at dpi to PDF points.
func PixelsToPoints(px document.BBox, dpi int) document.BBox {
	f := 72.0 / float64(dpi)
	return document.BBox{X: px.X * f, Y: px.Y * f, Width: px.Width * f, Height: px.Height * f}
}

func touchesText(box document.BBox, tokens []document.Token) bool {
	for _, t := range tokens {
		if box.Intersects(t.Box) {
			return true
		}
	}
	return false
}

func pageSize(p *document.Page) (float64, float64) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = document.DefaultPageWidth
	}
	if h <= 0 {
		h = document.DefaultPageHeight
	}
	return w, h
}

// MapIssues resolves every issue against its hinted page. Issues that cannot
// be located are returned in unmapped with no box; mapped issues carry a box,
// confidence, and method. The mapped set is validated before it is returned.
func (m *Mapper) MapIssues(doc *document.Document, issues []report.Issue) (mapped, unmapped []report.Issue, err error) {
	mapped = make([]report.Issue, 0, len(issues))
	for _, is := range issues {
		match, ok := m.Locate(is, doc.Page(is.PageNumber))
		if !ok {
			is.Box = nil
			is.Method = ""
			unmapped = append(unmapped, is)
			continue
		}
		box := match.Box
		is.Box = &box
		is.Confidence = match.Confidence
		is.Method = match.Method
		mapped = append(mapped, is)
	}
	if err := ValidateHighlights(mapped); err != nil {
		return nil, unmapped, err
	}
	return mapped, unmapped, nil
}

// ValidateHighlights fails if any issue lacks a box or has a non-finite one.
func ValidateHighlights(issues []report.Issue) error {
	for _, is := range issues {
		if is.Box == nil || !is.Box.Finite() {
			return fmt.Errorf("issue %s on page %d: %w", is.ID, is.PageNumber, ErrInvalidBox)
		}
	}
	return nil
}
