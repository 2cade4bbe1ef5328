package report

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
)

// Type is the severity class shown to the user.
type Type string

const (
	TypeCritical  Type = "critical"
	TypeWarning   Type = "warning"
	TypeAttention Type = "attention"
	TypeInfo      Type = "info"
)

// Category groups issues by compliance theme.
type Category string

const (
	CategoryCompliance Category = "compliance-violation"
	CategoryCollection Category = "collection"
	CategoryDispute    Category = "dispute"
	CategoryAccuracy   Category = "accuracy"
	CategoryOther      Category = "other"
)

// Severity is the model's impact estimate.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Mapping methods recorded on highlight-ready issues.
const (
	MethodExact  = "exact"
	MethodFuzzy  = "fuzzy"
	MethodVision = "vision"
)

// MaxAnchorLen bounds the verbatim quote kept on an issue.
const MaxAnchorLen = 120

// Issue is one finding. It is highlight-ready only once Box is set by the
// coordinate mapper.
type Issue struct {
	ID                string         `json:"id"`
	Type              Type           `json:"type"`
	Category          Category       `json:"category"`
	Description       string         `json:"description"`
	Severity          Severity       `json:"severity"`
	PageNumber        int            `json:"pageNumber"`
	Box               *document.BBox `json:"coordinates,omitempty"`
	AnchorText        string         `json:"anchorText,omitempty"`
	RecommendedAction string         `json:"recommendedAction,omitempty"`
	Confidence        float64        `json:"confidence,omitempty"`
	Method            string         `json:"mappingMethod,omitempty"`
	Source            string         `json:"source,omitempty"`

	// VisionBox is a model-reported box in image pixels at VisionDPI.
	VisionBox *document.BBox `json:"-"`
	VisionDPI int            `json:"-"`
}

// HighlightReady reports whether the issue carries a validated box.
func (i Issue) HighlightReady() bool {
	return i.Box != nil && i.Box.Valid()
}

// Region is a merged highlight area on one page.
type Region struct {
	PageNumber int           `json:"pageNumber"`
	Box        document.BBox `json:"box"`
	IssueIDs   []string      `json:"issueIds"`
	Type       Type          `json:"type"`
}

// CrossPageLink ties two highlight boxes on different pages.
type CrossPageLink struct {
	SourceIssueID string        `json:"sourceIssueId"`
	TargetIssueID string        `json:"targetIssueId"`
	SourcePage    int           `json:"sourcePage"`
	TargetPage    int           `json:"targetPage"`
	SourceBox     document.BBox `json:"sourceBox"`
	TargetBox     document.BBox `json:"targetBox"`
	Relationship  string        `json:"relationship"`
}

// AnalysisResult is the aggregate returned by every analyzer. A result is
// built once and never mutated after it is returned; merging produces a new
// value.
type AnalysisResult struct {
	TotalIssues int     `json:"totalIssues"`
	Critical    int     `json:"critical"`
	Warning     int     `json:"warning"`
	Attention   int     `json:"attention"`
	Info        int     `json:"info"`
	Issues      []Issue `json:"issues"`
	Summary     string  `json:"summary"`
	Confidence  float64 `json:"confidence"`

	// Unmapped counts issues dropped because no location could be validated.
	Unmapped       int             `json:"unmappedCount"`
	UnmappedIssues []Issue         `json:"unmappedIssues,omitempty"`
	Regions        []Region        `json:"regions,omitempty"`
	Links          []CrossPageLink `json:"crossPageLinks,omitempty"`
	Analyzer       string          `json:"analyzer,omitempty"`
}

var idNamespace = uuid.MustParse("6f1c2a4e-8b0d-4c55-9a63-3f2e7d9b1c40")

// StableID derives a deterministic id from the issue's identity fields.
func StableID(i Issue) string {
	key := fmt.Sprintf("%d|%s|%s|%s", i.PageNumber, i.Category, normalizeText(i.AnchorText), normalizeText(i.Description))
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// Normalize coerces free-form model fields into the fixed vocabularies,
// trims the anchor, and assigns a stable id.
func Normalize(i Issue) Issue {
	i.Type = ParseType(string(i.Type))
	i.Category = ParseCategory(string(i.Category))
	i.Severity = ParseSeverity(string(i.Severity), i.Type)
	i.Description = strings.TrimSpace(i.Description)
	i.AnchorText = strings.TrimSpace(i.AnchorText)
	if r := []rune(i.AnchorText); len(r) > MaxAnchorLen {
		i.AnchorText = string(r[:MaxAnchorLen])
	}
	if i.PageNumber < 1 {
		i.PageNumber = 1
	}
	if i.Confidence < 0 {
		i.Confidence = 0
	} else if i.Confidence > 1 {
		i.Confidence = 1
	}
	i.ID = StableID(i)
	return i
}

func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "error", "violation":
		return TypeCritical
	case "warning", "warn":
		return TypeWarning
	case "attention", "notice":
		return TypeAttention
	default:
		return TypeInfo
	}
}

func ParseCategory(s string) Category {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "-", " ", "-").Replace(s)
	switch {
	case s == "compliance-violation" || strings.Contains(s, "compliance") || strings.Contains(s, "fcra") || strings.Contains(s, "violation"):
		return CategoryCompliance
	case strings.Contains(s, "collection") || strings.Contains(s, "charge-off"):
		return CategoryCollection
	case strings.Contains(s, "dispute"):
		return CategoryDispute
	case strings.Contains(s, "accura") || strings.Contains(s, "error") || strings.Contains(s, "inconsisten"):
		return CategoryAccuracy
	default:
		return CategoryOther
	}
}

// ParseSeverity falls back to a severity implied by the type.
func ParseSeverity(s string, t Type) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low":
		return SeverityLow
	}
	switch t {
	case TypeCritical:
		return SeverityHigh
	case TypeWarning:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// TypeForLevel maps a 1-5 severity score to a Type.
func TypeForLevel(level int) Type {
	switch {
	case level >= 5:
		return TypeCritical
	case level == 4:
		return TypeWarning
	case level == 3:
		return TypeAttention
	default:
		return TypeInfo
	}
}

// Outranks reports whether t is more severe than o.
func (t Type) Outranks(o Type) bool { return typeRank(t) > typeRank(o) }

func typeRank(t Type) int {
	switch t {
	case TypeCritical:
		return 4
	case TypeWarning:
		return 3
	case TypeAttention:
		return 2
	default:
		return 1
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// normalizeText lowercases and collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
