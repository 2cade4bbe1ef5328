package llm

import (
	"fmt"
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// SystemPrompt is sent with every analysis call.
const SystemPrompt = "You are a credit report compliance analyst reviewing consumer credit reports under the FCRA. Always return valid JSON only."

// AnalysisPrompt describes the task and the response schema.
const AnalysisPrompt = `Review the credit report content below and identify compliance and accuracy issues:
- collection accounts, charge-offs, and debt-buyer tradelines
- late payments and past-due balances
- truncated or masked account numbers, missing or inconsistent balances
- duplicate accounts, outdated negative items, disputed items, high utilization

Rules:
- anchorText must be a verbatim quote of at most 120 characters copied from the page text, covering the exact words to highlight.
- pageNumber must be the page where the anchor text appears, taken from the "Page N:" headers.
- type is one of critical, warning, attention, info.
- category is one of compliance-violation, collection, dispute, accuracy, other.
- severity is one of high, medium, low.
- Do not invent issues that the text does not support.

Return a single JSON object:
{"totalIssues": 0, "critical": 0, "warning": 0, "attention": 0, "info": 0,
 "issues": [{"id": "", "type": "", "category": "", "description": "", "severity": "",
   "pageNumber": 1, "anchorText": "", "recommendedAction": ""}],
 "summary": "", "confidence": 0.0, "contextSummary": ""}

contextSummary is a short note (at most 80 words) of accounts and balances seen so far, used to keep context across sections.`

// VisionAddendum extends AnalysisPrompt when page images are attached.
const VisionAddendum = `Page images are attached. For each issue also return "coordinates": {"x": 0, "y": 0, "width": 0, "height": 0}
measured in pixels of that page's image, origin at the top-left corner. Use the pixel dimensions stated before each image.`

// ChunkContext is everything a prompt needs about one chunk.
type ChunkContext struct {
	Text           string
	Labels         []string // "Page N" labels covered by the chunk
	Index          int
	Total          int
	ContextSummary string // carried from the previous chunk in sequential runs
	Related        string // hint about a semantically close chunk
}

// BuildChunkPrompt renders the user text for a text-only call.
func BuildChunkPrompt(c ChunkContext) string {
	var sb strings.Builder
	sb.WriteString(AnalysisPrompt)
	writeChunkHeader(&sb, c)
	sb.WriteString("\n--- REPORT CONTENT ---\n")
	sb.WriteString(c.Text)
	sb.WriteString("\n--- END CONTENT ---\n")
	return sb.String()
}

func writeChunkHeader(sb *strings.Builder, c ChunkContext) {
	if c.Total > 1 {
		fmt.Fprintf(sb, "\n\nThis is section %d of %d", c.Index+1, c.Total)
		if len(c.Labels) > 0 {
			fmt.Fprintf(sb, " (%s)", strings.Join(c.Labels, ", "))
		}
		sb.WriteString(".")
	}
	if c.ContextSummary != "" {
		fmt.Fprintf(sb, "\nContext from earlier sections: %s", c.ContextSummary)
	}
	if c.Related != "" {
		fmt.Fprintf(sb, "\nRelated section: %s", c.Related)
	}
}

// ImageAnnotation states the page, pixel size, and DPI of an image so the
// model can attribute coordinates to the right page.
func ImageAnnotation(img *document.PageImage) string {
	return fmt.Sprintf("Image page %d, %dx%d pixels at %d DPI", img.PageNumber, img.Width, img.Height, img.DPI)
}

// BuildVisionParts renders a multimodal request body: the prompt and chunk
// text, then each page image preceded by its annotation.
func BuildVisionParts(c ChunkContext, pages []*document.Page) []Part {
	var sb strings.Builder
	sb.WriteString(AnalysisPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(VisionAddendum)
	writeChunkHeader(&sb, c)
	if strings.TrimSpace(c.Text) != "" {
		sb.WriteString("\n--- EXTRACTED TEXT ---\n")
		sb.WriteString(c.Text)
		sb.WriteString("\n--- END TEXT ---\n")
	}

	parts := []Part{TextPart(sb.String())}
	for _, p := range pages {
		if p.Image == nil {
			continue
		}
		parts = append(parts, TextPart(ImageAnnotation(p.Image)), ImagePart(p.Image))
	}
	return parts
}
