package analyzer

import (
	"context"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/mapper"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// Hybrid merges regex findings with a model strategy (vision when pages can
// be rendered, plain otherwise).
type Hybrid struct {
	d     *Deps
	inner Analyzer
}

func (a *Hybrid) Name() string { return string(ModeHybrid) }

func (a *Hybrid) Analyze(ctx context.Context, doc *document.Document, opts Options) (report.AnalysisResult, error) {
	if err := doc.Validate(); err != nil {
		return report.Empty(), err
	}
	key := a.d.resultKey(a.Name()+"+"+a.inner.Name(), doc, opts.Strict)
	if res, ok := a.d.Results.Get(key); ok {
		return res, nil
	}

	log := a.d.Log.With("analyzer", a.Name(), "inner", a.inner.Name())
	patterns := DetectPatterns(doc)
	var confidences []float64
	if len(patterns) > 0 {
		confidences = []float64{PatternConfidence}
	}
	pat, err := a.d.mapResult(doc, patterns, nil, confidences)
	if err != nil {
		return report.Empty(), err
	}
	log.Info("pattern scan complete", "matches", len(patterns), "mapped", pat.TotalIssues)

	model, err := a.inner.Analyze(ctx, doc, opts)
	if err != nil && ctx.Err() == nil {
		return report.Empty(), err
	}

	merged := report.Merge(model, pat)
	merged.Regions, merged.Links = mapper.Optimize(doc, merged.Issues)
	merged.Analyzer = a.Name()
	if err != nil {
		return merged, err
	}
	a.d.Results.Set(key, merged)
	emit(opts.Progress, Event{Analyzer: a.Name(), Phase: PhaseDone})
	return merged, nil
}
