package analyzer

import (
	"context"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/chunker"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// Plain sends text chunks one after another, carrying a rolling context
// summary from each chunk to the next.
type Plain struct {
	d *Deps
}

func (a *Plain) Name() string { return string(ModePlain) }

func (a *Plain) Analyze(ctx context.Context, doc *document.Document, opts Options) (report.AnalysisResult, error) {
	if err := doc.Validate(); err != nil {
		return report.Empty(), err
	}
	key := a.d.resultKey(a.Name(), doc, opts.Strict)
	if res, ok := a.d.Results.Get(key); ok {
		return res, nil
	}

	full := doc.FullText()
	chunks := chunker.PlanText(full, a.d.Chunking)
	r := newRun(a.Name(), a.d, opts, len(chunks))
	r.progress(PhasePlanning)

	err := r.sequential(ctx, len(chunks), func(ctx context.Context, i int, summary string) chunkOutcome {
		c := chunks[i]
		prompt := llm.BuildChunkPrompt(llm.ChunkContext{
			Text:           c.Text(full),
			Labels:         c.Labels(),
			Index:          i,
			Total:          len(chunks),
			ContextSummary: summary,
		})
		p, err := a.d.callChunk(ctx, r.log, []llm.Part{llm.TextPart(prompt)}, opts.Strict)
		if err != nil {
			return chunkOutcome{err: err}
		}
		return outcome(p, pinPages(doc, p.ToIssues(a.Name(), nil), c.Pages))
	})
	return r.complete(ctx, doc, err, key)
}
