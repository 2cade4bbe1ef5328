package parser

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// PDFParser extracts positioned words from each page. Page sizes come from
// pdfcpu; text and glyph positions from ledongthuc/pdf. When the Go reader
// yields no text and FallbackPdftotext is set, pdftotext supplies text-only
// pages.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, fmt.Errorf("parse pdf: missing %%PDF header")
	}

	doc := &document.Document{Title: baseTitle(filename), Source: data}
	dims, err := pageDims(data)
	if err != nil {
		return nil, fmt.Errorf("invalid pdf: %w", err)
	}

	pages, err := extractPages(data, dims)
	if err != nil || !hasText(pages) {
		if !p.FallbackPdftotext {
			if err == nil {
				err = document.ErrEmptyDocument
			}
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		text, ferr := extractPdftotext(data)
		if ferr != nil {
			if err == nil {
				err = ferr
			}
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		pages = textPages(text, dims)
	}
	doc.Pages = pages
	return doc, nil
}

type dim struct{ w, h float64 }

// pageDims validates the file in relaxed mode and reads every page's media
// box.
func pageDims(data []byte) ([]dim, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ds, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	out := make([]dim, len(ds))
	for i, d := range ds {
		out[i] = dim{d.Width, d.Height}
	}
	return out, nil
}

func dimFor(dims []dim, n int) dim {
	if n >= 1 && n <= len(dims) && dims[n-1].w > 0 && dims[n-1].h > 0 {
		return dims[n-1]
	}
	return dim{document.DefaultPageWidth, document.DefaultPageHeight}
}

func extractPages(data []byte, dims []dim) (pages []*document.Page, err error) {
	// The reader panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("pdf reader: %v", rec)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := reader.NumPage()
	for i := 1; i <= n; i++ {
		d := dimFor(dims, i)
		page := &document.Page{Number: i, Width: d.w, Height: d.h}
		pg := reader.Page(i)
		if !pg.V.IsNull() {
			page.Tokens = wordsFromGlyphs(pg.Content().Text, d.h)
			page.Text = textFromTokens(page.Tokens)
			if page.Text == "" {
				if plain, perr := pg.GetPlainText(nil); perr == nil {
					page.Text = strings.TrimSpace(plain)
				}
			}
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// wordsFromGlyphs groups glyph runs into words and converts them to a
// top-left origin. Glyph Y is the baseline; the box top sits at roughly
// 0.8 of the font size above it.
func wordsFromGlyphs(glyphs []pdflib.Text, pageHeight float64) []document.Token {
	var tokens []document.Token
	var word strings.Builder
	var x0, x1, base, size float64

	flush := func() {
		text := strings.TrimSpace(word.String())
		word.Reset()
		if text == "" {
			return
		}
		h := size
		if h <= 0 {
			h = 10
		}
		box := document.BBox{X: x0, Y: pageHeight - (base + 0.8*h), Width: x1 - x0, Height: h}
		if !box.Valid() {
			return
		}
		tokens = append(tokens, document.Token{Text: text, Box: box})
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		fs := g.FontSize
		if fs <= 0 {
			fs = 10
		}
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			flush()
			continue
		}
		if word.Len() > 0 {
			newLine := math.Abs(g.Y-base) > fs*0.5
			gap := g.X - x1
			if newLine || gap > fs*0.3 || gap < -fs {
				flush()
			}
		}
		if word.Len() == 0 {
			x0, base, size = g.X, g.Y, fs
		}
		// Multi-character runs may carry their own spaces.
		for _, r := range g.S {
			if unicode.IsSpace(r) {
				x1 = g.X
				flush()
				x0 = g.X + g.W
				continue
			}
			word.WriteRune(r)
		}
		x1 = g.X + g.W
		if fs > size {
			size = fs
		}
	}
	flush()

	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i].Box, tokens[j].Box
		if math.Abs(a.Y-b.Y) > math.Min(a.Height, b.Height)/2 {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return tokens
}

// textFromTokens lays words out in reading order, one line per row.
func textFromTokens(tokens []document.Token) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 {
			prev := tokens[i-1].Box
			if math.Abs(t.Box.Y-prev.Y) > math.Min(t.Box.Height, prev.Height)/2 {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func hasText(pages []*document.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

func textPages(text string, dims []dim) []*document.Page {
	var pages []*document.Page
	text = strings.TrimRight(text, "\f\n ")
	for i, raw := range strings.Split(text, "\f") {
		t := strings.TrimSpace(raw)
		d := dimFor(dims, i+1)
		pages = append(pages, &document.Page{Number: i + 1, Text: t, Width: d.w, Height: d.h})
	}
	return pages
}

func extractPdftotext(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "crh-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
