package report

import (
	"math"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// ModelIssue is one issue as returned by a model, before normalization.
type ModelIssue struct {
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	Category          string         `json:"category"`
	Description       string         `json:"description"`
	Severity          string         `json:"severity"`
	PageNumber        float64        `json:"pageNumber"`
	AnchorText        string         `json:"anchorText"`
	RecommendedAction string         `json:"recommendedAction"`
	Confidence        float64        `json:"confidence"`
	Coordinates       *document.BBox `json:"coordinates"`
}

// Payload is the JSON object a model returns for one chunk. Totals are not
// trusted and are recomputed during aggregation.
type Payload struct {
	Issues         []ModelIssue `json:"issues"`
	Summary        string       `json:"summary"`
	Confidence     float64      `json:"confidence"`
	ContextSummary string       `json:"contextSummary"`
}

// ToIssues normalizes the payload's issues. dpiForPage supplies the render
// DPI for pages whose coordinates are image pixels; it may be nil for
// text-only calls, in which case coordinates are ignored.
func (p Payload) ToIssues(source string, dpiForPage func(page int) int) []Issue {
	out := make([]Issue, 0, len(p.Issues))
	for _, m := range p.Issues {
		if m.Description == "" && m.AnchorText == "" {
			continue
		}
		page := 1
		if !math.IsNaN(m.PageNumber) && m.PageNumber >= 1 && m.PageNumber < math.MaxInt32 {
			page = int(m.PageNumber)
		}
		is := Issue{
			Type:              Type(m.Type),
			Category:          Category(m.Category),
			Description:       m.Description,
			Severity:          Severity(m.Severity),
			PageNumber:        page,
			AnchorText:        m.AnchorText,
			RecommendedAction: m.RecommendedAction,
			Confidence:        m.Confidence,
			Source:            source,
		}
		if is.Description == "" {
			is.Description = m.AnchorText
		}
		if m.Coordinates != nil && dpiForPage != nil {
			if dpi := dpiForPage(page); dpi > 0 {
				box := *m.Coordinates
				is.VisionBox = &box
				is.VisionDPI = dpi
			}
		}
		out = append(out, Normalize(is))
	}
	return out
}
