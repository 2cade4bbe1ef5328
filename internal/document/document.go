package document

import (
	"errors"
	"fmt"
	"strings"
)

// Letter-size page in PDF points, used when a parser cannot read the media box.
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

// ErrEmptyDocument is returned when no page carries extractable text.
var ErrEmptyDocument = errors.New("document has no extractable text")

// Document is a parsed report: an ordered list of pages plus the raw source
// bytes when the input was a PDF (needed for page rendering).
type Document struct {
	Title  string
	Source []byte // raw PDF bytes; nil for text-only formats
	Pages  []*Page
}

// Page is one 1-based page of a document.
type Page struct {
	Number int
	Text   string
	Width  float64 // points
	Height float64 // points
	Tokens []Token
	Image  *PageImage
}

// Token is a positioned word on a page.
type Token struct {
	Text string `json:"text"`
	Box  BBox   `json:"box"`
}

// PageImage is a rasterized page returned by the render server.
type PageImage struct {
	PageNumber int    `json:"pageNumber"`
	Data       string `json:"imageData"` // base64, no data: prefix
	MimeType   string `json:"mimeType"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	DPI        int    `json:"dpi"`
}

// Section is a heading-scoped block produced by structured-text parsers
// before it is flattened into pages.
type Section struct {
	Title    string
	Text     string
	Children []*Section
}

// Page returns the page with number n, or nil.
func (d *Document) Page(n int) *Page {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	p := d.Pages[n-1]
	if p.Number == n {
		return p
	}
	for _, p := range d.Pages {
		if p.Number == n {
			return p
		}
	}
	return nil
}

// HasPositions reports whether any page carries positioned tokens.
func (d *Document) HasPositions() bool {
	for _, p := range d.Pages {
		if len(p.Tokens) > 0 {
			return true
		}
	}
	return false
}

// Validate rejects documents that cannot be analyzed.
func (d *Document) Validate() error {
	if d == nil || len(d.Pages) == 0 {
		return ErrEmptyDocument
	}
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return nil
		}
	}
	return ErrEmptyDocument
}

// PageMarker is the header written before each page in the full text.
func PageMarker(n int) string {
	return fmt.Sprintf("Page %d:\n", n)
}

// FullText concatenates every page behind a "Page N:" marker. Chunk offsets
// are expressed against this string.
func (d *Document) FullText() string {
	var sb strings.Builder
	for _, p := range d.Pages {
		sb.WriteString(PageMarker(p.Number))
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// Span is a half-open character range [Start, End) in the full text.
type Span struct {
	Page  int
	Start int
	End   int
}

// PageSpans returns the range each page occupies in FullText, marker included.
func (d *Document) PageSpans() []Span {
	spans := make([]Span, 0, len(d.Pages))
	off := 0
	for _, p := range d.Pages {
		n := len(PageMarker(p.Number)) + len(p.Text) + 2
		spans = append(spans, Span{Page: p.Number, Start: off, End: off + n})
		off += n
	}
	return spans
}

// FromSections flattens a section tree into pages. Each top-level section
// becomes one page; nested headings are kept inline as text.
func FromSections(title string, sections []*Section) *Document {
	doc := &Document{Title: title}
	for _, s := range sections {
		var sb strings.Builder
		writeSection(&sb, s)
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		doc.Pages = append(doc.Pages, &Page{
			Number: len(doc.Pages) + 1,
			Text:   text,
			Width:  DefaultPageWidth,
			Height: DefaultPageHeight,
		})
	}
	return doc
}

func writeSection(sb *strings.Builder, s *Section) {
	if s.Title != "" {
		sb.WriteString(s.Title)
		sb.WriteString("\n\n")
	}
	if s.Text != "" {
		sb.WriteString(s.Text)
		sb.WriteString("\n\n")
	}
	for _, c := range s.Children {
		writeSection(sb, c)
	}
}
