package analyzer

import (
	"context"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/chunker"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/mapper"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

const imageFormat = "PNG"

// Vision renders every page, groups whole pages under the token budget, and
// sends each group's text and images in order with a rolling context
// summary. Model-reported pixel boxes are a fallback after text matching.
type Vision struct {
	d *Deps
}

func (a *Vision) Name() string { return string(ModeVision) }

func (a *Vision) Analyze(ctx context.Context, doc *document.Document, opts Options) (report.AnalysisResult, error) {
	if err := doc.Validate(); err != nil {
		return report.Empty(), err
	}
	if a.d.Renderer == nil || doc.Source == nil || !a.d.Renderer.Health(ctx) {
		return report.Empty(), ErrRendererUnavailable
	}
	key := a.d.resultKey(a.Name(), doc, opts.Strict)
	if res, ok := a.d.Results.Get(key); ok {
		return res, nil
	}

	r := newRun(a.Name(), a.d, opts, 0)
	r.progress(PhaseRendering)
	imgs, err := a.d.Renderer.Convert(ctx, doc.Source, a.d.DPI, imageFormat)
	if err != nil {
		return report.Empty(), &AnalysisError{Analyzer: a.Name(), Cause: err}
	}
	vdoc := withImages(doc, imgs)
	dpi := make(map[int]int, len(imgs))
	for _, img := range imgs {
		dpi[img.PageNumber] = img.DPI
	}
	dpiFor := func(page int) int { return dpi[page] }

	full := vdoc.FullText()
	chunks := chunker.PlanPages(vdoc, a.d.Chunking)
	r.total = len(chunks)
	r.log = r.log.With("chunks", len(chunks))
	r.progress(PhasePlanning)

	err = r.sequential(ctx, len(chunks), func(ctx context.Context, i int, summary string) chunkOutcome {
		c := chunks[i]
		if c.Overflow {
			r.log.Warn("page exceeds the token budget on its own", "page", c.FirstPage(), "tokens", c.EstimatedTokens)
		}
		pages := make([]*document.Page, 0, len(c.Pages))
		for _, n := range c.Pages {
			if p := vdoc.Page(n); p != nil {
				pages = append(pages, p)
			}
		}
		parts := llm.BuildVisionParts(llm.ChunkContext{
			Text:           c.Text(full),
			Labels:         c.Labels(),
			Index:          i,
			Total:          len(chunks),
			ContextSummary: summary,
		}, pages)
		p, err := a.d.callChunk(ctx, r.log, parts, opts.Strict)
		if err != nil {
			return chunkOutcome{err: err}
		}
		return outcome(p, pinPages(vdoc, p.ToIssues(a.Name(), dpiFor), c.Pages))
	})
	r.issues = mapper.DedupeVision(r.issues)
	return r.complete(ctx, vdoc, err, key)
}

// withImages returns a copy of doc whose pages carry the rendered images.
// The input document is left untouched.
func withImages(doc *document.Document, imgs []document.PageImage) *document.Document {
	byPage := make(map[int]*document.PageImage, len(imgs))
	for i := range imgs {
		byPage[imgs[i].PageNumber] = &imgs[i]
	}
	out := &document.Document{Title: doc.Title, Source: doc.Source, Pages: make([]*document.Page, len(doc.Pages))}
	for i, p := range doc.Pages {
		cp := *p
		if img, ok := byPage[p.Number]; ok {
			cp.Image = img
		}
		out.Pages[i] = &cp
	}
	return out
}
