package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// DOCXParser handles .docx files. Heading styles split the text into pages.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newSectionBuilder()
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			text := docxParagraphText(it)
			if level := docxHeadingLevel(it); level > 0 && text != "" {
				b.heading(level, text)
			} else {
				b.paragraph(text)
			}
		case *docx.Table:
			for _, row := range it.TableRows {
				b.paragraph(docxRowText(row))
			}
		}
	}
	return document.FromSections(baseTitle(filename), b.sections()), nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if len(style) == len("heading1") && strings.HasPrefix(style, "heading") {
		if d := style[len(style)-1]; d >= '1' && d <= '6' {
			return int(d - '0')
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func docxRowText(row *docx.WTableRow) string {
	var cells []string
	for _, cell := range row.TableCells {
		var parts []string
		for _, para := range cell.Paragraphs {
			if t := docxParagraphText(para); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			cells = append(cells, strings.Join(parts, " "))
		}
	}
	return strings.Join(cells, "  ")
}
