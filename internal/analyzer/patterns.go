package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// PatternConfidence is the confidence of a regex finding.
const PatternConfidence = 0.95

// patternFamily is a group of regexes for one kind of finding. Level is a
// 1..5 severity mapped through report.TypeForLevel.
type patternFamily struct {
	name        string
	level       int
	category    report.Category
	description string
	patterns    []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

var patternFamilies = []patternFamily{
	{
		name: "collection", level: 5, category: report.CategoryCollection,
		description: "Collection account reported",
		patterns:    compile(`\bCOLLECTION\b`, `Collection Agency`, `PORTFOLIO RECOVERY`, `CAVALRY PORTFOLIO`, `Debt Buyer`),
	},
	{
		name: "charge-off", level: 5, category: report.CategoryCollection,
		description: "Charged-off account reported",
		patterns:    compile(`CHARGE[\s\-_]?OFF`, `Charged Off`, `Written Off`),
	},
	{
		name: "late-payment", level: 3, category: report.CategoryAccuracy,
		description: "Late payment reported",
		patterns:    compile(`\b(30|60|90|120|150|180)\s*Days?\s*Past\s*Due`, `\b(30|60|90|120|150|180)\s*Days?\s*Late`, `PAST[\s\-_]?DUE`),
	},
	{
		name: "truncated-account", level: 5, category: report.CategoryCompliance,
		description: "Truncated account number",
		patterns:    compile(`[X*]{4,}[\s\-]?\d{4}`, `\.{3,}\d{4}`),
	},
	{
		name: "high-utilization", level: 2, category: report.CategoryOther,
		description: "High credit utilization",
		patterns:    compile(`\b(8[0-9]|9[0-9]|100)%?\s*Utilization`, `Over[\s\-]?Limit`, `Maxed[\s\-]?Out`),
	},
	{
		name: "derogatory", level: 4, category: report.CategoryAccuracy,
		description: "Derogatory mark reported",
		patterns:    compile(`\bDEROGATORY\b`, `\bDELINQUENT\b`, `\bDEFAULT\b`, `\bREPOSSESSION\b`, `\bFORECLOSURE\b`, `\bBANKRUPTCY\b`),
	},
}

// DetectPatterns scans every page for known problem phrases. Each match
// becomes an issue anchored on the matched text. Within a family,
// overlapping matches on a page are reported once.
func DetectPatterns(doc *document.Document) []report.Issue {
	var out []report.Issue
	for _, page := range doc.Pages {
		for _, fam := range patternFamilies {
			var spans [][2]int
			for _, re := range fam.patterns {
				for _, loc := range re.FindAllStringIndex(page.Text, -1) {
					if overlapsAny(spans, loc[0], loc[1]) {
						continue
					}
					spans = append(spans, [2]int{loc[0], loc[1]})
					match := strings.Join(strings.Fields(page.Text[loc[0]:loc[1]]), " ")
					out = append(out, report.Normalize(report.Issue{
						Type:        report.TypeForLevel(fam.level),
						Category:    fam.category,
						Description: fmt.Sprintf("%s: %s", fam.description, match),
						PageNumber:  page.Number,
						AnchorText:  match,
						Confidence:  PatternConfidence,
						Source:      "pattern",
					}))
				}
			}
		}
	}
	return out
}

func overlapsAny(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}
