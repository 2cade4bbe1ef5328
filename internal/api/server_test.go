package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/cache"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/config"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/llm"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/pipeline"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

const testKey = "secret"

type stubBackend struct {
	reply func(ctx context.Context) (string, error)
}

func (s *stubBackend) Complete(ctx context.Context, req llm.Request) (string, error) {
	return s.reply(ctx)
}
func (s *stubBackend) Name() string  { return "stub" }
func (s *stubBackend) Model() string { return "stub-1" }

func newTestServer(t *testing.T, reply func(ctx context.Context) (string, error)) (*Server, *analyzer.Deps) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stats := llm.NewLLMStats(time.Hour)
	deps := &analyzer.Deps{
		Backend:    llm.WithStats(&stubBackend{reply: reply}, stats),
		Log:        log,
		Embeddings: cache.New[[]float64](),
		Results:    cache.New[report.AnalysisResult](),
	}
	orch := pipeline.NewOrchestrator(deps, pipeline.Options{Workers: 1}, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	cfg := config.Config{APIKey: testKey, MaxUploadBytes: 1 << 20, AnalyzerMode: "auto"}
	return NewServer(orch, deps, stats, log, cfg), deps
}

func okReply(context.Context) (string, error) {
	return `{"issues":[{"type":"critical","category":"accuracy","description":"Balance mismatch","pageNumber":1,"anchorText":"Balance: $1,200"}],"summary":"one issue","confidence":0.8}`, nil
}

func upload(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func waitDone(t *testing.T, s *Server, id string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+id+"/status"))
		body := decode(t, rec)
		if st := body["status"]; st != string(pipeline.StatusQueued) && st != string(pipeline.StatusRunning) {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not finish")
	return nil
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, okReply)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Errorf("expected ok health, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	s, _ := newTestServer(t, okReply)
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testKey, http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer " + testKey, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/analyze/unknown/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	s, _ := newTestServer(t, okReply)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, upload(t, "../equifax.txt", "Account: XXXX1234\nBalance: $1,200\n", map[string]string{"mode": "plain"}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	id, _ := body["job_id"].(string)
	if id == "" || body["poll_url"] != "/api/analyze/"+id+"/status" {
		t.Fatalf("unexpected accept body %v", body)
	}

	status := waitDone(t, s, id)
	if status["status"] != string(pipeline.StatusDone) || status["filename"] != "equifax.txt" {
		t.Fatalf("expected done job for equifax.txt, got %v", status)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+id+"/result"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res report.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	// Text uploads carry no positions, so the finding is reported unmapped.
	if res.TotalIssues != 0 || res.Unmapped != 1 || res.Analyzer != "plain" {
		t.Errorf("unexpected result %+v", res)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+id+"/export"))
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="equifax-highlights.json"`) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodDelete, "/api/analyze/"+id))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 cancelling a finished job, got %d", rec.Code)
	}
}

func TestAnalyze_InputErrors(t *testing.T) {
	s, _ := newTestServer(t, okReply)
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		want     int
	}{
		{"no file", "", "", nil, http.StatusBadRequest},
		{"unsupported type", "report.csv", "a,b", nil, http.StatusBadRequest},
		{"empty document", "report.txt", "  \n\n ", nil, http.StatusBadRequest},
		{"malformed pdf", "report.pdf", "not a pdf", nil, http.StatusBadRequest},
		{"bad mode", "report.txt", "hello", map[string]string{"mode": "turbo"}, http.StatusBadRequest},
		{"bad strict", "report.txt", "hello", map[string]string{"strict": "maybe"}, http.StatusBadRequest},
		{"too large", "report.txt", strings.Repeat("a", 1<<20+1), nil, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, upload(t, tt.filename, tt.content, tt.fields))
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCancelRunningJob(t *testing.T) {
	started := make(chan struct{}, 1)
	s, _ := newTestServer(t, func(ctx context.Context) (string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, upload(t, "report.txt", "Balance: $1,200", map[string]string{"mode": "plain"}))
	id, _ := decode(t, rec)["job_id"].(string)
	<-started

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+id+"/result"))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while running, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodDelete, "/api/analyze/"+id))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if st := waitDone(t, s, id)["status"]; st != string(pipeline.StatusCancelled) {
		t.Errorf("expected cancelled, got %v", st)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/analyze/"+id+"/result"))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Result-Partial") != "true" {
		t.Errorf("expected a partial result, got %d", rec.Code)
	}
}

func TestClearCacheAndStats(t *testing.T) {
	s, deps := newTestServer(t, okReply)
	deps.Embeddings.Set("e", []float64{1})
	deps.Results.Set("a", report.Empty())
	deps.Results.Set("b", report.Empty())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodDelete, "/api/cache"))
	body := decode(t, rec)
	if body["embeddings_cleared"] != float64(1) || body["results_cleared"] != float64(2) {
		t.Errorf("unexpected clear counts %v", body)
	}
	if deps.Results.Len() != 0 {
		t.Error("expected results cache empty")
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, authed(http.MethodGet, "/api/stats/llm"))
	body = decode(t, rec)
	if rec.Code != http.StatusOK || body["backend"] != "stub" || body["model"] != "stub-1" {
		t.Errorf("unexpected stats %d %v", rec.Code, body)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\report.pdf`, "report.pdf"},
		{"", "unnamed"},
		{"a..b.pdf", "a_b.pdf"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
