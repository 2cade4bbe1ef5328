package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// Backend is a chat-completion model.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
	Model() string
}

// Request is a provider-neutral completion request.
type Request struct {
	System              string
	Parts               []Part
	MaxCompletionTokens int
	ReasoningEffort     string   // "low", "medium", "high"; empty to omit
	Temperature         *float64 // nil to omit
	JSON                bool     // ask for a JSON object response
}

// Part is either a text segment or a page image.
type Part struct {
	Text  string
	Image *document.PageImage
}

// TextPart and ImagePart build parts.
func TextPart(s string) Part { return Part{Text: s} }

func ImagePart(img *document.PageImage) Part { return Part{Image: img} }

// HasImages reports whether the request is multimodal.
func (r Request) HasImages() bool {
	for _, p := range r.Parts {
		if p.Image != nil {
			return true
		}
	}
	return false
}

func (r Request) text() string {
	var s string
	for _, p := range r.Parts {
		if p.Image == nil {
			if s != "" {
				s += "\n\n"
			}
			s += p.Text
		}
	}
	return s
}

func dataURL(img *document.PageImage) string {
	mime := img.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, img.Data)
}

// WithStats wraps a backend so every call's latency lands in stats.
func WithStats(b Backend, stats *LLMStats) Backend {
	if stats == nil {
		return b
	}
	return &timedBackend{Backend: b, stats: stats}
}

type timedBackend struct {
	Backend
	stats *LLMStats
}

func (t *timedBackend) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := t.Backend.Complete(ctx, req)
	if err != nil {
		t.stats.RecordFailure(time.Since(start).Milliseconds())
	} else {
		t.stats.Record(time.Since(start).Milliseconds())
	}
	return out, err
}
