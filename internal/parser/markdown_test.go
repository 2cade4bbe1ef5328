package parser

import (
	"strings"
	"testing"
)

const sampleMarkdown = `# Experian Report

Prepared for Jane Doe.

## Accounts

CAPITAL ONE  Account Number: XXXX1234

### Payment History

30 days late in March 2023.

## Collections

MIDLAND CREDIT MGMT  $1,240
`

func TestMarkdownSections_HeadingHierarchy(t *testing.T) {
	secs := markdownSections([]byte(sampleMarkdown))
	if len(secs) != 1 {
		t.Fatalf("expected 1 top-level section, got %d", len(secs))
	}
	h1 := secs[0]
	if h1.Title != "Experian Report" {
		t.Errorf("expected h1 title, got %q", h1.Title)
	}
	if h1.Text != "Prepared for Jane Doe." {
		t.Errorf("expected intro text once, got %q", h1.Text)
	}
	if len(h1.Children) != 2 {
		t.Fatalf("expected 2 h2 children, got %d", len(h1.Children))
	}
	accounts := h1.Children[0]
	if accounts.Title != "Accounts" || len(accounts.Children) != 1 {
		t.Fatalf("unexpected accounts section %+v", accounts)
	}
	if accounts.Children[0].Title != "Payment History" {
		t.Errorf("expected h3 under Accounts, got %q", accounts.Children[0].Title)
	}
	if h1.Children[1].Title != "Collections" {
		t.Errorf("expected Collections, got %q", h1.Children[1].Title)
	}
}

func TestMarkdownParser_PagePerTopLevelSection(t *testing.T) {
	input := "Preamble line.\n\n# Summary\n\nScore 640\n\n# Accounts\n\nCAPITAL ONE\n\n```\nBAL $512\n```\n"
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "notes.markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Text != "Preamble line." {
		t.Errorf("expected preamble page, got %q", doc.Pages[0].Text)
	}
	if !strings.Contains(doc.Pages[1].Text, "Summary") || !strings.Contains(doc.Pages[1].Text, "Score 640") {
		t.Errorf("unexpected page 2 %q", doc.Pages[1].Text)
	}
	if !strings.Contains(doc.Pages[2].Text, "BAL $512") {
		t.Errorf("expected code block content on page 3, got %q", doc.Pages[2].Text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
}
