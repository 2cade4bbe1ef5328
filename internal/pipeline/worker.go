package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// progressBuffer bounds the events held between the analyzer and the job.
const progressBuffer = 64

// tokenSource is implemented by renderers that can also locate words on
// pages without an embedded text layer.
type tokenSource interface {
	Tokens(ctx context.Context, pdf []byte) (map[int][]document.Token, error)
}

// Worker processes a single analysis job.
type Worker struct {
	deps *analyzer.Deps
	log  *slog.Logger
}

func NewWorker(deps *analyzer.Deps, log *slog.Logger) *Worker {
	return &Worker{deps: deps, log: log}
}

// Process runs the job and records the outcome on it. A cancelled run keeps
// its partial result.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !job.start(cancel) {
		log.Info("job cancelled before start")
		return
	}

	events := make(chan analyzer.Event, progressBuffer)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range events {
			job.Observe(ev)
		}
	}()
	res, err := w.Analyze(jobCtx, job.Document(), Request{Mode: job.Mode, Strict: job.Strict, Progress: events, Log: log})
	close(events)
	<-drained

	switch {
	case err == nil:
		log.Info("analysis complete", "issues", res.TotalIssues, "unmapped", res.Unmapped)
		job.finish(StatusDone, &res)
	case errors.Is(err, context.Canceled) || job.CancelRequested():
		log.Info("analysis cancelled", "issues", res.TotalIssues)
		job.finish(StatusCancelled, &res)
	default:
		log.Error("analysis failed", "error", err)
		job.AddError(err.Error())
		job.finish(StatusFailed, nil)
	}
}

// Request carries the per-run settings of Analyze.
type Request struct {
	Mode     analyzer.Mode
	Strict   bool
	Progress chan<- analyzer.Event
	Log      *slog.Logger
}

// Analyze selects a strategy for doc and runs it. PDFs without word
// positions get tokens from the renderer first when it offers them.
func (w *Worker) Analyze(ctx context.Context, doc *document.Document, req Request) (report.AnalysisResult, error) {
	log := req.Log
	if log == nil {
		log = w.log
	}
	if doc.Source != nil && !doc.HasPositions() {
		w.fillTokens(ctx, doc, log)
	}

	a, err := analyzer.Select(ctx, req.Mode, w.deps, doc)
	if err != nil {
		log.Error("analyzer selection failed", "mode", req.Mode, "error", err)
		return report.Empty(), err
	}
	log.Info("analysis started", "analyzer", a.Name(), "pages", len(doc.Pages))
	return a.Analyze(ctx, doc, analyzer.Options{Progress: req.Progress, Strict: req.Strict})
}

func (w *Worker) fillTokens(ctx context.Context, doc *document.Document, log *slog.Logger) {
	ts, ok := w.deps.Renderer.(tokenSource)
	if !ok || !w.deps.Renderer.Health(ctx) {
		return
	}
	byPage, err := ts.Tokens(ctx, doc.Source)
	if err != nil {
		log.Warn("render server token extraction failed", "error", err)
		return
	}
	filled := 0
	for _, p := range doc.Pages {
		if toks := byPage[p.Number]; len(toks) > 0 {
			p.Tokens = toks
			filled++
		}
	}
	log.Info("filled word positions from render server", "pages", filled)
}
