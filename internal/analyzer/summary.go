package analyzer

import (
	"fmt"
	"strings"
)

// Summarize renders the human-readable summary of a result.
func Summarize(r Result) string {
	s := r.Signals
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%d LOC, %d chars)", r.Path, r.Recommendation, s.CodeLines, s.CharCount)

	if r.SkipReason != ReasonNone {
		fmt.Fprintf(&b, "\n  Skip: %s", r.SkipReason.Description())
	}
	if s.HasErrorHandling() {
		fmt.Fprintf(&b, "\n  Error handling: %d unwrap, %d expect, %d panic, %d propagate, %d fallback (%.0f%% safe)",
			s.UnwrapCount, s.ExpectCount, s.PanicCount, s.PropagateCount, s.FallbackCount, s.ErrorHandlingRatio*100)
	}
	if s.UnsafeBlocks > 0 {
		fmt.Fprintf(&b, "\n  Unsafe: %d blocks (%d without SAFETY comment)", s.UnsafeBlocks, s.UnsafeWithoutSafetyComment)
	}
	if n := len(s.PotentialSecrets); n > 0 {
		fmt.Fprintf(&b, "\n  Security: %d potential secret(s)", n)
	}
	if s.SQLInjectionRisks > 0 {
		fmt.Fprintf(&b, "\n  SQL: %d potential injection pattern(s)", s.SQLInjectionRisks)
	}
	if s.TodoCount+s.Risky() > 0 {
		fmt.Fprintf(&b, "\n  Markers: %d TODO, %d FIXME, %d HACK, %d XXX", s.TodoCount, s.FixmeCount, s.HackCount, s.XXXCount)
	}
	fmt.Fprintf(&b, "\n  Complexity: ~%d, Functions: %d, Max nesting: %d", s.Complexity, s.FunctionCount, s.MaxNestingDepth)
	if s.MissingDocumentation {
		fmt.Fprintf(&b, "\n  Documentation: missing (%d lines, no comments)", s.TotalLines)
	}
	return b.String()
}
