package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "gpt-5")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestOpenAIClient_TextRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"issues\":[]}"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("sk-test", srv.URL, "gpt-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	temp := 0.1
	out, err := c.Complete(context.Background(), Request{
		System:              SystemPrompt,
		Parts:               []Part{TextPart("hello")},
		MaxCompletionTokens: 4000,
		ReasoningEffort:     "low",
		Temperature:         &temp,
		JSON:                true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"issues":[]}` {
		t.Errorf("unexpected content %q", out)
	}
	if got["max_completion_tokens"] != float64(4000) {
		t.Errorf("expected max_completion_tokens 4000, got %v", got["max_completion_tokens"])
	}
	if got["reasoning_effort"] != "low" {
		t.Errorf("expected reasoning_effort low, got %v", got["reasoning_effort"])
	}
	if _, ok := got["temperature"]; ok {
		t.Error("expected temperature omitted for reasoning models")
	}
	msgs := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(msgs))
	}
	if user := msgs[1].(map[string]any); user["content"] != "hello" {
		t.Errorf("expected plain string content, got %v", user["content"])
	}
}

func TestBuildOpenAIRequest_Multimodal(t *testing.T) {
	img := &document.PageImage{PageNumber: 2, Data: "QUJD", MimeType: "image/png", Width: 1275, Height: 1650, DPI: 150}
	req := Request{Parts: []Part{TextPart("prompt"), TextPart(ImageAnnotation(img)), ImagePart(img)}}
	out := buildOpenAIRequest("gpt-5", req)

	content, ok := out.Messages[0].Content.([]openaiContent)
	if !ok {
		t.Fatalf("expected content array, got %T", out.Messages[0].Content)
	}
	if len(content) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(content))
	}
	if content[1].Type != "text" || content[1].Text != "Image page 2, 1275x1650 pixels at 150 DPI" {
		t.Errorf("expected annotation before image, got %+v", content[1])
	}
	if content[2].Type != "image_url" || content[2].ImageURL.URL != "data:image/png;base64,QUJD" || content[2].ImageURL.Detail != "high" {
		t.Errorf("unexpected image part %+v", content[2])
	}
}

func TestOpenAIClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`overloaded`))
	}))
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", srv.URL, "gpt-5")
	_, err := c.Complete(context.Background(), Request{Parts: []Part{TextPart("x")}})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != 503 || !strings.Contains(httpErr.Body, "overloaded") {
		t.Errorf("unexpected error %+v", httpErr)
	}
	if !IsRetryable(err) {
		t.Error("expected 503 to be retryable")
	}
}

func TestWithStats_RecordsCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAIClient("sk-test", srv.URL, "gpt-5")
	stats := NewLLMStats(0)
	b := WithStats(c, stats)
	if _, err := b.Complete(context.Background(), Request{Parts: []Part{TextPart("x")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Model() != "gpt-5" {
		t.Errorf("expected model passthrough, got %q", b.Model())
	}
	if snap := stats.Snapshot(); snap.Count != 1 {
		t.Errorf("expected 1 recorded call, got %d", snap.Count)
	}
}
