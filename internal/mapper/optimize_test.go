package mapper

import (
	"slices"
	"testing"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

func boxed(id string, page int, typ report.Type, anchor, desc string, b document.BBox) report.Issue {
	return report.Issue{ID: id, PageNumber: page, Type: typ, AnchorText: anchor, Description: desc, Box: &b}
}

func TestOptimize_RegionsAndLinks(t *testing.T) {
	doc := testDoc()
	issues := []report.Issue{
		boxed("a", 1, report.TypeWarning, "Account Number: XXXX1234", "Truncated account number", document.BBox{X: 72, Y: 100, Width: 100, Height: 10}),
		boxed("b", 1, report.TypeCritical, "", "Collection", document.BBox{X: 150, Y: 105, Width: 50, Height: 10}),
		boxed("c", 1, report.TypeInfo, "Balance: $1,200.00", "Balance", document.BBox{X: 72, Y: 400, Width: 50, Height: 10}),
		boxed("d", 2, report.TypeWarning, "Account ending in 1234", "Duplicate of the tradeline on page 1", document.BBox{X: 72, Y: 100, Width: 80, Height: 10}),
		boxed("e", 2, report.TypeAttention, "Past due $1,200", "Past due amount", document.BBox{X: 72, Y: 300, Width: 80, Height: 10}),
		{ID: "f", PageNumber: 2, Description: "no box"},
	}

	regions, links := Optimize(doc, issues)
	if len(regions) != 4 {
		t.Fatalf("expected 4 regions, got %d: %+v", len(regions), regions)
	}
	first := regions[0]
	if first.PageNumber != 1 || !slices.Equal(first.IssueIDs, []string{"a", "b"}) {
		t.Errorf("expected a and b merged on page 1, got %+v", first)
	}
	if first.Type != report.TypeCritical {
		t.Errorf("expected merged region to take the critical type, got %q", first.Type)
	}
	if first.Box.Right() != 200 || first.Box.Bottom() != 115 {
		t.Errorf("expected union box, got %+v", first.Box)
	}

	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d: %+v", len(links), links)
	}
	if links[0].SourceIssueID != "a" || links[0].TargetIssueID != "d" || links[0].Relationship != RelDuplicateAccount {
		t.Errorf("unexpected first link %+v", links[0])
	}
	if links[1].SourceIssueID != "c" || links[1].TargetIssueID != "e" || links[1].Relationship != RelMatchingAmount {
		t.Errorf("unexpected second link %+v", links[1])
	}
	if links[0].SourcePage != 1 || links[0].TargetPage != 2 {
		t.Errorf("expected link from page 1 to page 2, got %d -> %d", links[0].SourcePage, links[0].TargetPage)
	}
}

func TestOptimize_ClipsToPage(t *testing.T) {
	doc := testDoc()
	issues := []report.Issue{boxed("a", 1, report.TypeInfo, "", "", document.BBox{X: 600, Y: 780, Width: 50, Height: 50})}
	regions, _ := Optimize(doc, issues)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if !regions[0].Box.Within(612, 792) {
		t.Errorf("expected region clipped to the page, got %+v", regions[0].Box)
	}
}

func TestDedupeVision(t *testing.T) {
	v := func(cat report.Category, x, y float64) report.Issue {
		return report.Issue{PageNumber: 1, Category: cat, VisionBox: &document.BBox{X: x, Y: y, Width: 10, Height: 10}}
	}
	in := []report.Issue{
		v(report.CategoryCollection, 103, 207),
		v(report.CategoryCollection, 105, 201),
		v(report.CategoryAccuracy, 105, 201),
		{PageNumber: 1, Category: report.CategoryCollection},
	}
	if got := DedupeVision(in); len(got) != 3 {
		t.Errorf("expected 3 issues after grid dedupe, got %d", len(got))
	}
}
