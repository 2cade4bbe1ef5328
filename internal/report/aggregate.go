package report

import (
	"fmt"
	"strings"
)

// NoIssuesSummary is the summary of a result with no findings.
const NoIssuesSummary = "No issues identified."

const descriptionKeyLen = 60

// DedupeKey identifies duplicates: page plus the normalized anchor text when
// present, otherwise page plus the normalized description prefix.
func DedupeKey(i Issue) string {
	if a := normalizeText(i.AnchorText); a != "" {
		return fmt.Sprintf("%d|a|%s", i.PageNumber, a)
	}
	d := []rune(normalizeText(i.Description))
	if len(d) > descriptionKeyLen {
		d = d[:descriptionKeyLen]
	}
	return fmt.Sprintf("%d|d|%s", i.PageNumber, string(d))
}

// outranks reports whether a should replace b as the kept duplicate.
func outranks(a, b Issue) bool {
	if ra, rb := typeRank(a.Type), typeRank(b.Type); ra != rb {
		return ra > rb
	}
	if ra, rb := severityRank(a.Severity), severityRank(b.Severity); ra != rb {
		return ra > rb
	}
	if a.HighlightReady() != b.HighlightReady() {
		return a.HighlightReady()
	}
	return a.Confidence > b.Confidence
}

// Dedupe collapses issues sharing a DedupeKey, keeping the higher-severity
// one at the position of the first occurrence. Running it on its own output
// returns the same list.
func Dedupe(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	pos := make(map[string]int, len(issues))
	for _, is := range issues {
		k := DedupeKey(is)
		if i, ok := pos[k]; ok {
			if outranks(is, out[i]) {
				out[i] = is
			}
			continue
		}
		pos[k] = len(out)
		out = append(out, is)
	}
	return out
}

// Empty returns the zero-finding result.
func Empty() AnalysisResult {
	return AnalysisResult{Issues: []Issue{}, Summary: NoIssuesSummary}
}

// Aggregate dedupes issues, recounts them by type, and writes one summary.
// confidences are per-chunk model confidences; their mean becomes the result
// confidence.
func Aggregate(issues []Issue, summaries []string, confidences []float64) AnalysisResult {
	deduped := Dedupe(issues)
	if len(deduped) == 0 {
		r := Empty()
		return r
	}

	r := AnalysisResult{Issues: deduped}
	for _, is := range deduped {
		switch is.Type {
		case TypeCritical:
			r.Critical++
		case TypeWarning:
			r.Warning++
		case TypeAttention:
			r.Attention++
		default:
			r.Info++
		}
	}
	r.TotalIssues = len(deduped)
	r.Confidence = meanConfidence(confidences)
	r.Summary = summarize(r, summaries)
	return r
}

// Merge combines results from several chunks or analyzers into a new result.
// Unmapped diagnostics are carried over and re-deduplicated.
func Merge(results ...AnalysisResult) AnalysisResult {
	var (
		issues      []Issue
		unmapped    []Issue
		summaries   []string
		confidences []float64
		regions     []Region
		links       []CrossPageLink
	)
	for _, r := range results {
		issues = append(issues, r.Issues...)
		unmapped = append(unmapped, r.UnmappedIssues...)
		regions = append(regions, r.Regions...)
		links = append(links, r.Links...)
		if r.Summary != "" && r.Summary != NoIssuesSummary {
			summaries = append(summaries, r.Summary)
		}
		if r.TotalIssues > 0 {
			confidences = append(confidences, r.Confidence)
		}
	}
	out := Aggregate(issues, summaries, confidences)
	out.UnmappedIssues = Dedupe(unmapped)
	out.Unmapped = len(out.UnmappedIssues)
	out.Regions = regions
	out.Links = links
	return out
}

func meanConfidence(cs []float64) float64 {
	if len(cs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cs {
		sum += min(max(c, 0), 1)
	}
	return sum / float64(len(cs))
}

func summarize(r AnalysisResult, modelSummaries []string) string {
	head := fmt.Sprintf("Found %d issue(s): %d critical, %d warning, %d attention, %d info.",
		r.TotalIssues, r.Critical, r.Warning, r.Attention, r.Info)

	seen := map[string]bool{}
	var extra []string
	for _, s := range modelSummaries {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || strings.HasPrefix(s, "Found ") {
			continue
		}
		seen[s] = true
		extra = append(extra, s)
		if len(extra) == 3 {
			break
		}
	}
	if len(extra) == 0 {
		return head
	}
	return head + " " + strings.Join(extra, " ")
}
