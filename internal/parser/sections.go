package parser

import (
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// sectionBuilder nests text under the most recent heading of a lower level.
type sectionBuilder struct {
	root  *document.Section
	stack []stackEntry
	text  strings.Builder
}

type stackEntry struct {
	node  *document.Section
	level int
}

func newSectionBuilder() *sectionBuilder {
	root := &document.Section{}
	return &sectionBuilder{root: root, stack: []stackEntry{{node: root, level: 0}}}
}

func (b *sectionBuilder) heading(level int, title string) {
	b.flush()
	node := &document.Section{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, stackEntry{node: node, level: level})
}

func (b *sectionBuilder) paragraph(t string) {
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *sectionBuilder) flush() {
	t := strings.TrimSpace(b.text.String())
	if t != "" {
		top := b.stack[len(b.stack)-1].node
		if top.Text != "" {
			top.Text += "\n\n" + t
		} else {
			top.Text = t
		}
	}
	b.text.Reset()
}

// sections returns the top-level sections. Text before the first heading
// becomes an untitled leading section.
func (b *sectionBuilder) sections() []*document.Section {
	b.flush()
	out := b.root.Children
	if b.root.Text != "" {
		out = append([]*document.Section{{Text: b.root.Text}}, out...)
	}
	return out
}
