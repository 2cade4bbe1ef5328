package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/cache"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/mapper"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// chunkOutcome is what one model call contributed.
type chunkOutcome struct {
	issues     []report.Issue
	summary    string
	context    string
	confidence float64
	err        error
}

func outcome(p report.Payload, issues []report.Issue) chunkOutcome {
	return chunkOutcome{issues: issues, summary: p.Summary, context: p.ContextSummary, confidence: p.Confidence}
}

// complete sends one completion, retrying retryable transport errors only
// when the caller configured Retries.
func (d *Deps) complete(ctx context.Context, log *slog.Logger, parts []llm.Part) (string, error) {
	temp := d.Call.Temperature
	req := llm.Request{
		System:              llm.SystemPrompt,
		Parts:               parts,
		MaxCompletionTokens: d.Call.MaxCompletionTokens,
		ReasoningEffort:     d.Call.ReasoningEffort,
		Temperature:         &temp,
		JSON:                true,
	}
	var lastErr error
	for attempt := 0; attempt <= d.Call.Retries; attempt++ {
		out, err := d.Backend.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !llm.IsRetryable(err) || attempt == d.Call.Retries {
			break
		}
		log.Warn("retryable completion error", "attempt", attempt, "error", err)
		select {
		case <-time.After(d.backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// callChunk sends one request and parses the reply. Unparseable output
// degrades to an empty payload unless strict is set.
func (d *Deps) callChunk(ctx context.Context, log *slog.Logger, parts []llm.Part, strict bool) (report.Payload, error) {
	raw, err := d.complete(ctx, log, parts)
	if err != nil {
		return report.Payload{}, err
	}
	p, err := llm.ParsePayload(raw)
	if err != nil {
		if strict {
			return report.Payload{}, err
		}
		reason := err.Error()
		var pe *llm.ParseError
		if errors.As(err, &pe) {
			reason = pe.Reason
		}
		log.Warn("unparseable model output, chunk treated as empty", "reason", reason, "raw", clip(raw, 200))
		return report.Payload{Issues: []report.ModelIssue{}}, nil
	}
	return p, nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (d *Deps) resultKey(name string, doc *document.Document, strict bool) string {
	fp := cache.Fingerprint(doc.FullText(), cache.FingerprintChars)
	return cache.Key(fp, name, d.Backend.Name(), d.Backend.Model(), strconv.FormatBool(strict))
}

// mapResult locates every issue, aggregates the mapped ones, and records
// the rest as unmapped.
func (d *Deps) mapResult(doc *document.Document, issues []report.Issue, summaries []string, confidences []float64) (report.AnalysisResult, error) {
	mapped, unmapped, err := d.Mapper.MapIssues(doc, report.Dedupe(issues))
	if err != nil {
		return report.Empty(), err
	}
	res := report.Aggregate(mapped, summaries, confidences)
	res.UnmappedIssues = unmapped
	res.Unmapped = len(unmapped)
	res.Regions, res.Links = mapper.Optimize(doc, res.Issues)
	return res, nil
}

// pinPages moves issues whose page lies outside the chunk onto the chunk
// page whose text contains the anchor, or onto the chunk's first page.
func pinPages(doc *document.Document, issues []report.Issue, pages []int) []report.Issue {
	if len(pages) == 0 {
		return issues
	}
	for i := range issues {
		if slices.Contains(pages, issues[i].PageNumber) {
			continue
		}
		target := pages[0]
		if anchor := strings.ToLower(issues[i].AnchorText); anchor != "" {
			for _, n := range pages {
				if p := doc.Page(n); p != nil && strings.Contains(strings.ToLower(p.Text), anchor) {
					target = n
					break
				}
			}
		}
		issues[i].PageNumber = target
		issues[i].ID = report.StableID(issues[i])
	}
	return issues
}

// run accumulates chunk outcomes for one analysis.
type run struct {
	name  string
	d     *Deps
	opts  Options
	log   *slog.Logger
	total int

	mu          sync.Mutex
	attempted   int
	failed      int
	finished    int // chunks returned so far in a concurrent run
	finishFail  int
	lastErr     error
	issues      []report.Issue
	summaries   []string
	confidences []float64
}

func newRun(name string, d *Deps, opts Options, total int) *run {
	return &run{
		name:  name,
		d:     d,
		opts:  opts,
		total: total,
		log:   d.Log.With("analyzer", name, "chunks", total),
	}
}

func (r *run) add(out chunkOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempted++
	if out.err != nil {
		r.failed++
		r.lastErr = out.err
		return
	}
	r.issues = append(r.issues, out.issues...)
	if out.summary != "" {
		r.summaries = append(r.summaries, out.summary)
	}
	if out.confidence > 0 {
		r.confidences = append(r.confidences, out.confidence)
	}
}

func (r *run) progress(phase string) {
	r.mu.Lock()
	ev := Event{Analyzer: r.name, Phase: phase, Done: r.attempted, Total: r.total, Failed: r.failed}
	r.mu.Unlock()
	emit(r.opts.Progress, ev)
}

// chunkDone counts one returned chunk of a concurrent run and reports the
// running totals. Emitting under the lock keeps the counts monotonic.
func (r *run) chunkDone(failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
	if failed {
		r.finishFail++
	}
	emit(r.opts.Progress, Event{Analyzer: r.name, Phase: PhaseAnalyzing, Done: r.finished, Total: r.total, Failed: r.finishFail})
}

// emit delivers an event without blocking. A closed or full channel never
// disturbs the run.
func emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	defer func() { _ = recover() }()
	select {
	case ch <- ev:
	default:
	}
}

// fatal reports errors that stop the whole run rather than one chunk.
func (r *run) fatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return true
	}
	var pe *llm.ParseError
	return r.opts.Strict && errors.As(err, &pe)
}

// sequential runs step over n chunks in order, passing each call the context
// summary produced by the one before. Cancellation is checked between
// chunks; an in-flight call is allowed to finish.
func (r *run) sequential(ctx context.Context, n int, step func(ctx context.Context, i int, summary string) chunkOutcome) error {
	summary := ""
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := step(ctx, i, summary)
		if r.fatal(ctx, out.err) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return out.err
		}
		if out.err != nil {
			r.log.Warn("chunk failed", "chunk", i, "error", out.err)
		}
		r.add(out)
		if out.context != "" {
			summary = out.context
		}
		r.progress(PhaseAnalyzing)
	}
	return nil
}

// concurrent runs step over n independent chunks with at most MaxConcurrent
// calls in flight. Outcomes are folded in chunk order.
func (r *run) concurrent(ctx context.Context, n int, step func(ctx context.Context, i int) chunkOutcome) error {
	outs := make([]chunkOutcome, n)
	ran := make([]bool, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.d.MaxConcurrent)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			out := step(gctx, i)
			if r.fatal(gctx, out.err) {
				return out.err
			}
			if out.err != nil {
				r.log.Warn("chunk failed", "chunk", i, "error", out.err)
			}
			outs[i], ran[i] = out, true
			r.chunkDone(out.err != nil)
			return nil
		})
	}
	err := g.Wait()
	for i := range outs {
		if ran[i] {
			r.add(outs[i])
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// finish maps and aggregates what the run collected. When every attempted
// chunk failed the run is an *AnalysisError.
func (r *run) finish(doc *document.Document) (report.AnalysisResult, error) {
	if r.attempted > 0 && r.failed == r.attempted {
		return report.Empty(), &AnalysisError{Analyzer: r.name, Chunks: r.total, Failed: r.failed, Cause: r.lastErr}
	}
	r.progress(PhaseMapping)
	res, err := r.d.mapResult(doc, r.issues, r.summaries, r.confidences)
	if err != nil {
		return res, err
	}
	res.Analyzer = r.name
	if res.Unmapped > 0 {
		r.log.Info("issues without a validated location", "unmapped", res.Unmapped)
	}
	return res, nil
}

// complete turns a run's outcome into the strategy's return values. A
// cancelled run returns what it gathered along with the context error; only
// complete runs are cached.
func (r *run) complete(ctx context.Context, doc *document.Document, runErr error, key string) (report.AnalysisResult, error) {
	if runErr != nil && ctx.Err() == nil {
		return report.Empty(), runErr
	}
	res, err := r.finish(doc)
	if runErr != nil {
		return res, runErr
	}
	if err != nil {
		return res, err
	}
	r.d.Results.Set(key, res)
	r.progress(PhaseDone)
	r.log.Info("analysis complete", "issues", res.TotalIssues, "failed_chunks", r.failed)
	return res, nil
}
