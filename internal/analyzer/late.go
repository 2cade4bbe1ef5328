package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/cache"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/chunker"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// LateChunk embeds the whole document once, pools a vector for every chunk
// from that embedding, and analyzes the chunks concurrently. Each prompt
// names the most similar other chunk so the model keeps document-wide
// context without a rolling summary.
type LateChunk struct {
	d *Deps
}

func (a *LateChunk) Name() string { return string(ModeLate) }

func (a *LateChunk) Analyze(ctx context.Context, doc *document.Document, opts Options) (report.AnalysisResult, error) {
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

	var related []int
	if len(chunks) > 1 {
		r.progress(PhaseEmbedding)
		if vec := a.embed(ctx, full, r.log); vec != nil {
			chunks = chunker.Pool(vec, len(full), chunks)
			related = chunker.Related(chunks)
		}
	}

	err := r.concurrent(ctx, len(chunks), func(ctx context.Context, i int) chunkOutcome {
		c := chunks[i]
		cc := llm.ChunkContext{Text: c.Text(full), Labels: c.Labels(), Index: i, Total: len(chunks)}
		if related != nil && related[i] >= 0 {
			j := related[i]
			cc.Related = fmt.Sprintf("section %d (%s) covers closely related content", j+1, strings.Join(chunks[j].Labels(), ", "))
		}
		p, err := a.d.callChunk(ctx, r.log, []llm.Part{llm.TextPart(llm.BuildChunkPrompt(cc))}, opts.Strict)
		if err != nil {
			return chunkOutcome{err: err}
		}
		return outcome(p, pinPages(doc, p.ToIssues(a.Name(), nil), c.Pages))
	})
	return r.complete(ctx, doc, err, key)
}

// embed returns the cached document embedding or computes it. A failed
// embedding only costs the related-section hints.
func (a *LateChunk) embed(ctx context.Context, full string, log *slog.Logger) []float64 {
	key := cache.Key(cache.Fingerprint(full, cache.FingerprintChars), "embedding")
	if v, ok := a.d.Embeddings.Get(key); ok {
		return v
	}
	v, err := a.d.Embedder.Embed(ctx, full)
	if err != nil {
		log.Warn("document embedding failed, continuing without related sections", "error", err)
		return nil
	}
	a.d.Embeddings.Set(key, v)
	return v
}
