package analyzer

import (
	"fmt"

	"github.com/dshills/sieve/internal/patterns"
	"github.com/dshills/sieve/internal/signals"
)

// RedFlags lists the DeepDive conditions s triggers under t, in a fixed order.
func RedFlags(s signals.QualitySignals, t Thresholds) []RedFlag {
	var flags []RedFlag
	add := func(c IssueCategory, format string, args ...any) {
		flags = append(flags, RedFlag{Category: c, Message: fmt.Sprintf(format, args...)})
	}

	if s.UnsafeWithoutSafetyComment > 0 {
		add(IssueUnsafeWithoutSafety, "%d unsafe block(s) WITHOUT safety comments", s.UnsafeWithoutSafetyComment)
	}
	if s.UnwrapCount > 0 && s.UnwrapDensity() > t.UnwrapDensity {
		add(IssueUnwrapDensity, "High unwrap density: %d unwrap calls in %d code lines", s.UnwrapCount, s.CodeLines)
	}
	if s.UnwrapCount > 0 && s.ErrorHandlingRatio < t.LowErrorRatio {
		add(IssueErrorRatio, "Poor error handling ratio: %.0f%% safe", s.ErrorHandlingRatio*100)
	}
	if n, high := countSecrets(s, t.MinSecretConfidence); n > 0 {
		add(IssueSecrets, "%d potential hardcoded secret(s) (%d high confidence)", n, high)
	}
	if s.SQLInjectionRisks > 0 {
		add(IssueSQLInjection, "%d potential SQL injection pattern(s)", s.SQLInjectionRisks)
	}
	if s.HasFFIImports {
		add(IssueFFI, "FFI/extern imports detected")
	}
	if s.Complexity > t.MaxComplexity {
		add(IssueComplexity, "High complexity score: %d", s.Complexity)
	}
	if s.MaxNestingDepth > t.MaxNesting {
		add(IssueNesting, "Deep nesting: %d levels", s.MaxNestingDepth)
	}
	if r := s.Risky(); r > t.MaxMarkers {
		add(IssueMarkers, "%d FIXME/HACK/XXX markers", r)
	}
	return flags
}

func countSecrets(s signals.QualitySignals, floor patterns.Confidence) (n, high int) {
	for _, f := range s.PotentialSecrets {
		if f.Confidence < floor {
			continue
		}
		n++
		if f.Confidence == patterns.ConfidenceHigh {
			high++
		}
	}
	return n, high
}

// Issues returns the triggered categories: every red flag plus the soft
// checks. Each category appears once.
func Issues(s signals.QualitySignals, flags []RedFlag) []IssueCategory {
	out := make([]IssueCategory, 0, len(flags)+3)
	seen := make(map[IssueCategory]bool, len(flags)+3)
	add := func(c IssueCategory) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, f := range flags {
		add(f.Category)
	}
	if s.PanicCount > 0 {
		add(IssuePanicUsage)
	}
	if s.TodoCount > 0 {
		add(IssueTodoMarkers)
	}
	if s.MissingDocumentation {
		add(IssueMissingDocs)
	}
	return out
}

// EstimateValue scores how much an LLM review of the file is likely to
// find, in [0,1].
func EstimateValue(rec Recommendation, issues, flags int, s signals.QualitySignals) float64 {
	var v float64
	switch rec {
	case Skip:
		return 0
	case Minimal:
		v = 0.15 + min(float64(issues)*0.05, 0.1)
	case Standard:
		v = 0.4 + min(float64(issues)*0.05, 0.3)
		if s.Complexity > 30 {
			v += 0.1
		}
		if s.HasErrorHandling() && s.ErrorHandlingRatio < 0.5 {
			v += 0.1
		}
		if s.HasPublicAPI {
			v += 0.05
		}
		v = min(v, 0.85)
	case DeepDive:
		v = 0.85 + float64(flags)*0.05
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}
