package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// TextParser handles plain text reports. Form feeds separate pages; runs of
// blank lines collapse to a single paragraph break.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &document.Document{Title: baseTitle(filename)}
	var page, para strings.Builder

	flushPara := func() {
		if para.Len() == 0 {
			return
		}
		if page.Len() > 0 {
			page.WriteString("\n\n")
		}
		page.WriteString(para.String())
		para.Reset()
	}
	flushPage := func() {
		flushPara()
		if page.Len() == 0 {
			return
		}
		doc.Pages = append(doc.Pages, &document.Page{
			Number: len(doc.Pages) + 1,
			Text:   page.String(),
			Width:  document.DefaultPageWidth,
			Height: document.DefaultPageHeight,
		})
		page.Reset()
	}

	for scanner.Scan() {
		segments := strings.Split(scanner.Text(), "\f")
		for i, line := range segments {
			if i > 0 {
				flushPage()
			}
			if strings.TrimSpace(line) == "" {
				flushPara()
				continue
			}
			if para.Len() > 0 {
				para.WriteString("\n")
			}
			para.WriteString(strings.TrimRight(line, " \t\r"))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flushPage()
	return doc, nil
}
