package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

func TestClaudeClient_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "ak-test" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("missing version header")
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"issues\":[]}"}]}`))
	}))
	defer srv.Close()

	c, err := NewClaudeClient("ak-test", srv.URL, "claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := &document.PageImage{PageNumber: 1, Data: "QUJD", MimeType: "image/jpeg"}
	out, err := c.Complete(context.Background(), Request{
		System: SystemPrompt,
		Parts:  []Part{TextPart("analyze"), TextPart(ImageAnnotation(img)), ImagePart(img)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"issues":[]}` {
		t.Errorf("unexpected output %q", out)
	}
	if got.MaxTokens != 4096 {
		t.Errorf("expected default max_tokens 4096, got %d", got.MaxTokens)
	}
	if got.System != SystemPrompt {
		t.Errorf("expected system prompt, got %q", got.System)
	}
	blocks := got.Messages[0].Content
	if len(blocks) != 3 || blocks[2].Type != "image" || blocks[2].Source.MediaType != "image/jpeg" {
		t.Errorf("unexpected blocks %+v", blocks)
	}
}

func TestClaudeClient_Errors(t *testing.T) {
	if _, err := NewClaudeClient("", "", "m"); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	c, _ := NewClaudeClient("ak", srv.URL, "m")
	_, err := c.Complete(context.Background(), Request{Parts: []Part{TextPart("x")}})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 400 {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("expected 400 not to be retryable")
	}
}
