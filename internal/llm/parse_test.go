package llm

import (
	"errors"
	"testing"
)

func TestParsePayload_ZeroIssues(t *testing.T) {
	raw := `{"totalIssues":0,"critical":0,"warning":0,"attention":0,"info":0,"issues":[],"summary":"ok","confidence":0.9}`
	p, err := ParsePayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Issues == nil || len(p.Issues) != 0 {
		t.Errorf("expected empty issues, got %v", p.Issues)
	}
	if p.Summary != "ok" || p.Confidence != 0.9 {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestParsePayload_CodeFenceAndProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fenced", "```json\n{\"issues\":[{\"description\":\"Late payment\",\"pageNumber\":2}]}\n```"},
		{"prose", "Here is the analysis:\n{\"issues\":[{\"description\":\"Late payment\",\"pageNumber\":2.0}]}\nThanks."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(p.Issues) != 1 || p.Issues[0].PageNumber != 2 {
				t.Errorf("unexpected issues %+v", p.Issues)
			}
		})
	}
}

func TestParsePayload_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "I could not analyze this document."},
		{"truncated", `{"issues":[{"description":"x"`},
		{"missing issues", `{"summary":"ok"}`},
		{"wrong type", `{"issues":"none"}`},
		{"issue without description", `{"issues":[{"pageNumber":1}]}`},
		{"bad coordinates", `{"issues":[{"description":"x","coordinates":{"x":"left"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.raw)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
		})
	}
}
