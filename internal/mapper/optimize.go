package mapper

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// Relationship labels for cross-page links.
const (
	RelDuplicateAccount = "duplicate-account"
	RelSameAccount      = "same-account"
	RelMatchingAmount   = "matching-amount"
)

// mergeGap is how close two boxes may be, in points, before they merge.
const mergeGap = 2.0

var (
	last4Re  = regexp.MustCompile(`(?i)(?:[x*#]{2,}|\.{3,}|ending in\s*|acct\.?\s*#?\s*)-?\s*(\d{4})\b`)
	amountRe = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{2}))?`)
)

// Optimize clips each mapped box to its page, merges overlapping boxes into
// regions, and links issues on different pages that refer to the same
// account or amount. Issues without a box are ignored.
func Optimize(doc *document.Document, issues []report.Issue) ([]report.Region, []report.CrossPageLink) {
	byPage := map[int][]report.Issue{}
	var pages []int
	for _, is := range issues {
		if !is.HighlightReady() {
			continue
		}
		if _, ok := byPage[is.PageNumber]; !ok {
			pages = append(pages, is.PageNumber)
		}
		byPage[is.PageNumber] = append(byPage[is.PageNumber], is)
	}
	slices.Sort(pages)

	var regions []report.Region
	for _, n := range pages {
		w, h := document.DefaultPageWidth, document.DefaultPageHeight
		if p := doc.Page(n); p != nil {
			w, h = pageSize(p)
		}
		regions = append(regions, mergeRegions(n, byPage[n], w, h)...)
	}
	return regions, crossPageLinks(issues)
}

func mergeRegions(page int, issues []report.Issue, w, h float64) []report.Region {
	var regions []report.Region
	for _, is := range issues {
		box := is.Box.Clip(w, h)
		if box.Area() == 0 {
			continue
		}
		regions = append(regions, report.Region{PageNumber: page, Box: box, IssueIDs: []string{is.ID}, Type: is.Type})
	}

	// Merge until stable: a union can bring a third box into range.
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(regions) && !merged; i++ {
			for j := i + 1; j < len(regions); j++ {
				if !near(regions[i].Box, regions[j].Box) {
					continue
				}
				regions[i].Box = regions[i].Box.Union(regions[j].Box)
				regions[i].IssueIDs = append(regions[i].IssueIDs, regions[j].IssueIDs...)
				if regions[j].Type.Outranks(regions[i].Type) {
					regions[i].Type = regions[j].Type
				}
				regions = slices.Delete(regions, j, j+1)
				merged = true
				break
			}
		}
	}

	slices.SortFunc(regions, func(a, b report.Region) int {
		if c := cmp.Compare(a.Box.Y, b.Box.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Box.X, b.Box.X)
	})
	return regions
}

func near(a, b document.BBox) bool {
	grown := document.BBox{X: a.X - mergeGap, Y: a.Y - mergeGap, Width: a.Width + 2*mergeGap, Height: a.Height + 2*mergeGap}
	return grown.Intersects(b)
}

type linkKeys struct {
	accounts  []string
	amounts   []string
	duplicate bool
}

func keysFor(is report.Issue) linkKeys {
	text := is.AnchorText + " " + is.Description
	var k linkKeys
	for _, m := range last4Re.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(k.accounts, m[1]) {
			k.accounts = append(k.accounts, m[1])
		}
	}
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		amt := strings.ReplaceAll(m[1], ",", "")
		if m[2] != "" && m[2] != "00" {
			amt += "." + m[2]
		}
		if !slices.Contains(k.amounts, amt) {
			k.amounts = append(k.amounts, amt)
		}
	}
	k.duplicate = strings.Contains(strings.ToLower(text), "duplicate")
	return k
}

func shares(a, b []string) bool {
	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}
	return false
}

func crossPageLinks(issues []report.Issue) []report.CrossPageLink {
	var ready []report.Issue
	for _, is := range issues {
		if is.HighlightReady() {
			ready = append(ready, is)
		}
	}
	slices.SortStableFunc(ready, func(a, b report.Issue) int { return cmp.Compare(a.PageNumber, b.PageNumber) })

	keys := make([]linkKeys, len(ready))
	for i, is := range ready {
		keys[i] = keysFor(is)
	}

	var links []report.CrossPageLink
	for i := range ready {
		for j := i + 1; j < len(ready); j++ {
			if ready[i].PageNumber == ready[j].PageNumber {
				continue
			}
			rel := ""
			switch {
			case shares(keys[i].accounts, keys[j].accounts) && (keys[i].duplicate || keys[j].duplicate):
				rel = RelDuplicateAccount
			case shares(keys[i].accounts, keys[j].accounts):
				rel = RelSameAccount
			case shares(keys[i].amounts, keys[j].amounts):
				rel = RelMatchingAmount
			default:
				continue
			}
			links = append(links, report.CrossPageLink{
				SourceIssueID: ready[i].ID,
				TargetIssueID: ready[j].ID,
				SourcePage:    ready[i].PageNumber,
				TargetPage:    ready[j].PageNumber,
				SourceBox:     *ready[i].Box,
				TargetBox:     *ready[j].Box,
				Relationship:  rel,
			})
		}
	}
	return links
}

// DedupeVision drops vision issues that land in the same coarse grid cell
// as an earlier issue of the same category on the same page. The grid is
// ten pixels square in model coordinates.
func DedupeVision(issues []report.Issue) []report.Issue {
	type cell struct {
		page     int
		category report.Category
		x, y     int
	}
	seen := map[cell]bool{}
	out := make([]report.Issue, 0, len(issues))
	for _, is := range issues {
		if is.VisionBox != nil && is.VisionBox.Finite() {
			c := cell{is.PageNumber, is.Category, int(is.VisionBox.X / 10), int(is.VisionBox.Y / 10)}
			if seen[c] {
				continue
			}
			seen[c] = true
		}
		out = append(out, is)
	}
	return out
}
