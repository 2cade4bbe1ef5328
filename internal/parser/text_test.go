package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

func TestTextParser_ParagraphsOnOnePage(t *testing.T) {
	input := "ACCOUNT SUMMARY\nOpen accounts: 4\n\n\n\nCOLLECTIONS\n   \nMIDLAND CREDIT MGMT  $1,240"
	doc, err := (&TextParser{}).Parse(strings.NewReader(input), "reports/equifax.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "equifax" {
		t.Errorf("expected title %q, got %q", "equifax", doc.Title)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	want := "ACCOUNT SUMMARY\nOpen accounts: 4\n\nCOLLECTIONS\n\nMIDLAND CREDIT MGMT  $1,240"
	if doc.Pages[0].Text != want {
		t.Errorf("expected %q, got %q", want, doc.Pages[0].Text)
	}
	if doc.Source != nil || doc.HasPositions() {
		t.Error("expected a text-only document")
	}
}

func TestTextParser_FormFeedSplitsPages(t *testing.T) {
	input := "Page one text.\fPage two text.\n\f\fPage four text."
	doc, err := (&TextParser{}).Parse(strings.NewReader(input), "r.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Page one text.", "Page two text.", "Page four text."}
	if len(doc.Pages) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(doc.Pages))
	}
	for i, w := range want {
		if doc.Pages[i].Text != w || doc.Pages[i].Number != i+1 {
			t.Errorf("page %d: expected %q, got %d %q", i+1, w, doc.Pages[i].Number, doc.Pages[i].Text)
		}
	}
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader("  \n\n"), "empty.txt", Options{})
	if !errors.Is(err, document.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestParse_Unsupported(t *testing.T) {
	_, err := Parse(strings.NewReader("a,b"), "accounts.csv", Options{})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if IsSupportedExtension("accounts.csv") || !IsSupportedExtension("REPORT.PDF") {
		t.Error("unexpected extension support")
	}
}
