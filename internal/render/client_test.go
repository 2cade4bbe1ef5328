package render

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"healthy", http.StatusOK, `{"status":"healthy","service":"renderer"}`, true},
		{"degraded", http.StatusOK, `{"status":"degraded"}`, false},
		{"server error", http.StatusInternalServerError, `{"status":"healthy"}`, false},
		{"garbage", http.StatusOK, `<html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("expected /health, got %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			if got := NewClient(srv.URL).Health(context.Background()); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestHealth_Unreachable(t *testing.T) {
	start := time.Now()
	if NewClient("http://127.0.0.1:1").Health(context.Background()) {
		t.Error("expected unhealthy")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("expected health check to give up quickly")
	}
}

func TestConvert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/convert-to-images" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.FormValue("dpi"); got != "150" {
			t.Errorf("expected dpi 150, got %q", got)
		}
		if got := r.FormValue("format"); got != "PNG" {
			t.Errorf("expected PNG, got %q", got)
		}
		f, _, err := r.FormFile("pdf")
		if err != nil {
			t.Errorf("missing pdf: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "%PDF-1.4" {
			t.Errorf("unexpected pdf body %q", data)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"images": []map[string]any{
				{"pageNumber": 1, "imageData": "aGVsbG8=", "mimeType": "image/png", "width": 1275, "height": 1650},
				{"imageData": "aGVsbG8=", "mimeType": "image/png", "width": 1275, "height": 1650, "dpi": 150},
			},
		})
	}))
	defer srv.Close()

	imgs, err := NewClient(srv.URL).Convert(context.Background(), []byte("%PDF-1.4"), 150, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(imgs) != 2 {
		t.Fatalf("expected 2 images, got %d", len(imgs))
	}
	if imgs[0].DPI != 150 || imgs[1].PageNumber != 2 {
		t.Errorf("expected defaults filled in, got %+v %+v", imgs[0], imgs[1])
	}
	if imgs[0].Width != 1275 || imgs[0].MimeType != "image/png" {
		t.Errorf("unexpected image %+v", imgs[0])
	}
}

func TestConvert_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"No PDF file provided"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Convert(context.Background(), nil, 0, ""); err == nil {
		t.Fatal("expected an error")
	}
}

func TestTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"textTokens":[
			{"text":"Account","x":72,"y":100,"width":40,"height":10,"page":1},
			{"text":" ","x":0,"y":0,"width":0,"height":0,"page":1},
			{"text":"Balance","x":72,"y":120,"width":40,"height":10,"page":2}]}`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Tokens(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[1]) != 1 || len(got[2]) != 1 {
		t.Fatalf("expected one token per page, got %v", got)
	}
	if got[2][0].Box.Y != 120 {
		t.Errorf("expected y 120, got %v", got[2][0].Box.Y)
	}
}

func TestTokens_SplitsSpansIntoWords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"textTokens":[
			{"text":"Account Number: XXXX1234","x":72,"y":100,"width":120,"height":10,"page":1}]}`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Tokens(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	words := got[1]
	if len(words) != 3 {
		t.Fatalf("expected 3 word tokens, got %+v", words)
	}
	last := words[2]
	if last.Text != "XXXX1234" || last.Box.X != 152 || last.Box.Width != 40 {
		t.Errorf("expected XXXX1234 at x 152 width 40, got %+v", last)
	}
}
