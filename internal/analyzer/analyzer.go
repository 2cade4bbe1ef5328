package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/cache"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/chunker"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/mapper"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// Mode names an analysis strategy.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModePlain  Mode = "plain"
	ModeLate   Mode = "late"
	ModeVision Mode = "vision"
	ModeHybrid Mode = "hybrid"
)

// ParseMode accepts a mode name; empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModePlain, ModeLate, ModeVision, ModeHybrid:
		return m, nil
	default:
		return "", fmt.Errorf("unknown analyzer mode %q", s)
	}
}

// ErrRendererUnavailable is returned by the vision strategy when the page
// rendering server is missing or unhealthy.
var ErrRendererUnavailable = errors.New("page renderer unavailable")

// Analyzer is one analysis strategy.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, doc *document.Document, opts Options) (report.AnalysisResult, error)
}

// Options are per-run settings.
type Options struct {
	// Progress receives an event after every chunk boundary. Sends never
	// block: events are dropped when the receiver is not ready.
	Progress chan<- Event
	// Strict turns a model parse failure into a run failure instead of an
	// empty chunk result.
	Strict bool
}

// Phases reported in Event.Phase.
const (
	PhasePlanning  = "planning"
	PhaseRendering = "rendering"
	PhaseEmbedding = "embedding"
	PhaseAnalyzing = "analyzing"
	PhaseMapping   = "mapping"
	PhaseDone      = "done"
)

// Event reports progress of one run.
type Event struct {
	Analyzer string `json:"analyzer"`
	Phase    string `json:"phase"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Failed   int    `json:"failed"`
}

// AnalysisError is returned when no chunk of a run produced a result.
type AnalysisError struct {
	Analyzer string
	Chunks   int
	Failed   int
	Cause    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis failed (%d of %d chunks): %v", e.Analyzer, e.Failed, e.Chunks, e.Cause)
}

func (e *AnalysisError) Unwrap() error { return e.Cause }

// Renderer rasterizes PDF pages. *render.Client satisfies it.
type Renderer interface {
	Health(ctx context.Context) bool
	Convert(ctx context.Context, pdf []byte, dpi int, format string) ([]document.PageImage, error)
}

// CallOptions are the model parameters sent with every completion.
type CallOptions struct {
	MaxCompletionTokens int
	ReasoningEffort     string
	Temperature         float64
	// Retries is the number of extra attempts on a retryable transport
	// error. Zero means a failed call fails its chunk immediately.
	Retries int
}

func DefaultCallOptions() CallOptions {
	return CallOptions{MaxCompletionTokens: 4000, ReasoningEffort: "low", Temperature: 0.1}
}

// Deps are the collaborators shared by every strategy. Embedder and Renderer
// are optional.
type Deps struct {
	Backend       llm.Backend
	Embedder      llm.Embedder
	Renderer      Renderer
	Mapper        *mapper.Mapper
	Embeddings    *cache.Store[[]float64]
	Results       *cache.Store[report.AnalysisResult]
	Chunking      chunker.Config
	Call          CallOptions
	DPI           int
	MaxConcurrent int
	Log           *slog.Logger

	backoff func(attempt int) time.Duration
}

func (d *Deps) withDefaults() *Deps {
	c := *d
	if c.Mapper == nil {
		c.Mapper = mapper.New(mapper.DefaultConfig())
	}
	if c.Embeddings == nil {
		c.Embeddings = cache.New[[]float64]()
	}
	if c.Results == nil {
		c.Results = cache.New[report.AnalysisResult]()
	}
	if c.Call.MaxCompletionTokens <= 0 {
		c.Call.MaxCompletionTokens = DefaultCallOptions().MaxCompletionTokens
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.backoff == nil {
		c.backoff = llm.Backoff
	}
	return &c
}

// complexPages and complexChars mark a document as complex enough to run
// pattern detection alongside the model.
const (
	complexPages = 10
	complexChars = 40000
)

// Select picks a strategy for doc. An explicit mode always wins; auto
// prefers hybrid for complex documents when pages can be rendered, then
// vision, then late chunking for multi-chunk documents with an embedder,
// then plain.
func Select(ctx context.Context, mode Mode, deps *Deps, doc *document.Document) (Analyzer, error) {
	if deps == nil || deps.Backend == nil {
		return nil, fmt.Errorf("no completion backend: %w", llm.ErrMissingCredential)
	}
	d := deps.withDefaults()

	visionOK := func() bool {
		return d.Renderer != nil && doc.Source != nil && d.Renderer.Health(ctx)
	}

	switch mode {
	case ModePlain:
		return &Plain{d: d}, nil
	case ModeLate:
		if d.Embedder == nil {
			return nil, fmt.Errorf("late chunking needs an embedding client: %w", llm.ErrMissingCredential)
		}
		return &LateChunk{d: d}, nil
	case ModeVision:
		return &Vision{d: d}, nil
	case ModeHybrid:
		var inner Analyzer = &Plain{d: d}
		if visionOK() {
			inner = &Vision{d: d}
		}
		return &Hybrid{d: d, inner: inner}, nil
	case ModeAuto, "":
	default:
		return nil, fmt.Errorf("unknown analyzer mode %q", mode)
	}

	full := doc.FullText()
	isComplex := len(doc.Pages) > complexPages || len(full) > complexChars
	if visionOK() {
		if isComplex {
			return &Hybrid{d: d, inner: &Vision{d: d}}, nil
		}
		return &Vision{d: d}, nil
	}
	if d.Embedder != nil && len(chunker.PlanText(full, d.Chunking)) > 1 {
		return &LateChunk{d: d}, nil
	}
	return &Plain{d: d}, nil
}
