package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// payloadSchema is the minimum shape accepted from a model. Totals are
// optional because they are recomputed.
const payloadSchema = `{
  "type": "object",
  "required": ["issues"],
  "properties": {
    "totalIssues": {"type": "number"},
    "critical":    {"type": "number"},
    "warning":     {"type": "number"},
    "attention":   {"type": "number"},
    "info":        {"type": "number"},
    "summary":     {"type": "string"},
    "contextSummary": {"type": "string"},
    "confidence":  {"type": "number"},
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description"],
        "properties": {
          "id":          {"type": ["string", "number"]},
          "type":        {"type": "string"},
          "category":    {"type": "string"},
          "description": {"type": "string"},
          "severity":    {"type": "string"},
          "pageNumber":  {"type": "number"},
          "anchorText":  {"type": "string"},
          "recommendedAction": {"type": "string"},
          "confidence":  {"type": "number"},
          "coordinates": {
            "type": "object",
            "required": ["x", "y", "width", "height"],
            "properties": {
              "x": {"type": "number"}, "y": {"type": "number"},
              "width": {"type": "number"}, "height": {"type": "number"}
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(payloadSchema)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// extractObject trims leading or trailing prose around a JSON object.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// ParsePayload decodes and validates one model response. Any failure is a
// *ParseError; callers decide whether to degrade or raise.
func ParsePayload(raw string) (report.Payload, error) {
	text := extractObject(stripCodeBlock(raw))
	if text == "" {
		return report.Payload{}, &ParseError{Reason: "empty response", Raw: raw}
	}
	if !json.Valid([]byte(text)) {
		return report.Payload{}, &ParseError{Reason: "invalid json", Raw: raw}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(text))
	if err != nil {
		return report.Payload{}, &ParseError{Reason: err.Error(), Raw: raw}
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return report.Payload{}, &ParseError{Reason: "schema: " + strings.Join(msgs, "; "), Raw: raw}
	}

	var p report.Payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return report.Payload{}, &ParseError{Reason: err.Error(), Raw: raw}
	}
	if p.Issues == nil {
		p.Issues = []report.ModelIssue{}
	}
	return p, nil
}
