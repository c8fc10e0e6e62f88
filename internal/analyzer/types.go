package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/signals"
)

// Recommendation is the review tier for a file. Values are ordered:
// Skip < Minimal < Standard < DeepDive.
type Recommendation int

const (
	Skip Recommendation = iota
	Minimal
	Standard
	DeepDive
)

func (r Recommendation) String() string {
	switch r {
	case Skip:
		return "SKIP"
	case Minimal:
		return "MINIMAL"
	case Standard:
		return "STANDARD"
	case DeepDive:
		return "DEEP_DIVE"
	}
	return fmt.Sprintf("Recommendation(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Recommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Recommendation) UnmarshalText(b []byte) error {
	v, err := ParseRecommendation(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRecommendation accepts SKIP, MINIMAL, STANDARD, DEEP_DIVE in any case,
// with "-" accepted in place of "_".
func ParseRecommendation(s string) (Recommendation, error) {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_") {
	case "SKIP":
		return Skip, nil
	case "MINIMAL":
		return Minimal, nil
	case "STANDARD":
		return Standard, nil
	case "DEEP_DIVE", "DEEPDIVE":
		return DeepDive, nil
	}
	return Skip, fmt.Errorf("unknown recommendation %q", s)
}

// SkipReason explains a Skip recommendation.
type SkipReason string

const (
	ReasonNone           SkipReason = ""
	ReasonGenerated      SkipReason = "generated"
	ReasonTrivial        SkipReason = "trivial"
	ReasonNonCode        SkipReason = "non_code"
	ReasonDuplicate      SkipReason = "duplicate_content"
	ReasonTestOnly       SkipReason = "test_only"
	ReasonUnchangedClean SkipReason = "unchanged_clean"
)

// Description is the human-readable form used in summaries.
func (r SkipReason) Description() string {
	switch r {
	case ReasonGenerated:
		return "generated code"
	case ReasonTrivial:
		return "trivial file"
	case ReasonNonCode:
		return "non-code or vendored file"
	case ReasonDuplicate:
		return "duplicate content"
	case ReasonTestOnly:
		return "test-only file"
	case ReasonUnchangedClean:
		return "unchanged + clean"
	}
	return string(r)
}

// IssueCategory names one kind of triggered sub-check.
type IssueCategory string

const (
	IssueUnsafeWithoutSafety IssueCategory = "unsafe_without_safety"
	IssueUnwrapDensity       IssueCategory = "unwrap_density"
	IssueErrorRatio          IssueCategory = "error_handling_ratio"
	IssueSecrets             IssueCategory = "hardcoded_secret"
	IssueSQLInjection        IssueCategory = "sql_injection"
	IssueFFI                 IssueCategory = "ffi"
	IssueComplexity          IssueCategory = "high_complexity"
	IssueNesting             IssueCategory = "deep_nesting"
	IssueMarkers             IssueCategory = "risk_markers"

	// Soft issues count toward the issue total but never force DeepDive.
	IssuePanicUsage  IssueCategory = "panic_usage"
	IssueTodoMarkers IssueCategory = "todo_markers"
	IssueMissingDocs IssueCategory = "missing_docs"
	IssueTodoDensity IssueCategory = "todo_density"
)

// RedFlag is a triggered DeepDive condition phrased for a reviewer.
type RedFlag struct {
	Category IssueCategory `json:"category"`
	Message  string        `json:"message"`
}

// Result is the outcome of analyzing one file. It is never mutated after
// it is returned.
type Result struct {
	Path              string                 `json:"path"`
	Language          lang.Language          `json:"language"`
	Recommendation    Recommendation         `json:"recommendation"`
	SkipReason        SkipReason             `json:"skipReason,omitempty"`
	Signals           signals.QualitySignals `json:"signals"`
	EstimatedLLMValue float64                `json:"estimatedLlmValue"`
	Summary           string                 `json:"summary"`
	StaticIssueCount  int                    `json:"staticIssueCount"`
	Issues            []IssueCategory        `json:"issues,omitempty"`
	RedFlags          []RedFlag              `json:"redFlags,omitempty"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	c := r
	c.Signals = r.Signals.Clone()
	c.Issues = slices.Clone(r.Issues)
	c.RedFlags = slices.Clone(r.RedFlags)
	return c
}

// Skipped reports whether the file needs no review.
func (r Result) Skipped() bool { return r.Recommendation == Skip }
