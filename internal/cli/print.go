package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

var typeColors = map[report.Type]*color.Color{
	report.TypeCritical:  color.New(color.FgRed, color.Bold),
	report.TypeWarning:   color.New(color.FgYellow),
	report.TypeAttention: color.New(color.FgMagenta),
	report.TypeInfo:      color.New(color.FgCyan),
}

func label(t report.Type, colored bool) string {
	tag := fmt.Sprintf("[%s]", strings.ToUpper(string(t)))
	c, ok := typeColors[t]
	if !colored || !ok {
		return tag
	}
	c.EnableColor()
	return c.Sprint(tag)
}

func printProgress(w io.Writer, ev analyzer.Event) {
	if ev.Total > 0 {
		fmt.Fprintf(w, "%s: %s %d/%d\n", ev.Analyzer, ev.Phase, ev.Done, ev.Total)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", ev.Analyzer, ev.Phase)
}

// printReport writes a human-readable listing of res.
func printReport(w io.Writer, res report.AnalysisResult, colored bool) {
	fmt.Fprintf(w, "Analyzer: %s  Confidence: %.2f\n", res.Analyzer, res.Confidence)
	fmt.Fprintf(w, "%d issue(s): %d critical, %d warning, %d attention, %d info\n\n",
		res.TotalIssues, res.Critical, res.Warning, res.Attention, res.Info)

	for _, is := range res.Issues {
		fmt.Fprintf(w, "%s p.%d %s\n", label(is.Type, colored), is.PageNumber, is.Description)
		if is.Box != nil {
			fmt.Fprintf(w, "    at (%.0f, %.0f) %.0fx%.0f via %s, confidence %.2f\n",
				is.Box.X, is.Box.Y, is.Box.Width, is.Box.Height, is.Method, is.Confidence)
		}
		if is.RecommendedAction != "" {
			fmt.Fprintf(w, "    action: %s\n", is.RecommendedAction)
		}
	}

	if res.Unmapped > 0 {
		fmt.Fprintf(w, "\n%d finding(s) could not be located on the page:\n", res.Unmapped)
		for _, is := range res.UnmappedIssues {
			fmt.Fprintf(w, "  %s p.%d %s\n", label(is.Type, colored), is.PageNumber, is.Description)
		}
	}
	if len(res.Regions) > 0 {
		fmt.Fprintf(w, "\n%d highlight region(s)\n", len(res.Regions))
	}
	if len(res.Links) > 0 {
		fmt.Fprintf(w, "\nCross-page links:\n")
		for _, l := range res.Links {
			fmt.Fprintf(w, "  p.%d -> p.%d %s\n", l.SourcePage, l.TargetPage, l.Relationship)
		}
	}
	fmt.Fprintf(w, "\n%s\n", res.Summary)
}
