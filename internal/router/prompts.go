package router

import (
	"fmt"
	"math"
	"strings"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/signals"
)

const minimalSystemPrompt = `You are an experienced code reviewer taking a brief look at a small file that static analysis found clean. Report real defects only; skip style preferences and praise.

Respond with JSON only:
{
  "issues": [
    {"type": "bug|error_handling|performance", "severity": "high|medium|low", "line": 1, "description": "one sentence"}
  ],
  "clean": true,
  "summary": "one sentence"
}

With nothing to report, respond: {"issues": [], "clean": true, "summary": "No issues found."}`

const standardSystemPrompt = `You are a senior engineer reviewing a source file for correctness and maintainability. Identify code smells, refactoring opportunities, weak error handling and likely bugs. Be specific: cite lines and name the functions involved.

Respond with JSON only:
{
  "code_smells": [
    {
      "smell_type": "long_function|long_parameter_list|duplicated_code|large_module|deep_nesting|complex_conditional|dead_code|magic_numbers|missing_error_handling|unchecked_failure",
      "severity": "critical|high|medium|low",
      "description": "what is wrong",
      "location": {"file": "path", "line_start": 1, "line_end": 1, "item_name": "function"},
      "impact": "why it matters"
    }
  ],
  "suggestions": [
    {
      "refactoring_type": "extract_function|extract_module|rename|inline|simplify_conditional|name_constant|improve_error_handling|reduce_coupling|split_function",
      "title": "short title",
      "description": "what to change and the expected benefit",
      "effort": "trivial|small|medium|large",
      "priority": "critical|high|medium|low"
    }
  ],
  "complexity_score": 0,
  "maintainability_score": 0,
  "priorities": ["most important first"],
  "estimated_effort": "trivial|small|medium|large|very_large"
}`

const deepDiveSystemPrompt = `You are a principal engineer auditing a file that static analysis flagged as high risk. Expect some combination of: unsafe code lacking justification, heavy use of panicking calls, hardcoded credentials, injectable queries, foreign function interfaces and deeply nested logic. Treat every flag as a lead to confirm or rule out.

Examine in particular:
1. Security: credentials, injection, path traversal, authentication and cryptography misuse.
2. Unsafe code: each block needs an accurate SAFETY justification and a sound invariant.
3. Failure handling: every call that can panic or abort must be justified or replaced.
4. Hotspots: deep nesting, long conditionals and functions doing too much.
5. Concurrency: races, deadlocks and missing synchronization.

Respond with JSON only:
{
  "security_findings": [
    {
      "severity": "critical|high|medium|low",
      "category": "secrets|injection|unsafe|path_traversal|auth|crypto|other",
      "line": 1,
      "description": "what was found",
      "recommendation": "how to fix it",
      "cwe": "CWE id when one applies"
    }
  ],
  "code_smells": [
    {
      "smell_type": "long_function|deep_nesting|complex_conditional|dead_code|magic_numbers|missing_error_handling|unchecked_failure|tight_coupling|god_object",
      "severity": "critical|high|medium|low",
      "description": "what is wrong",
      "location": {"file": "path", "line_start": 1, "line_end": 1, "item_name": "function"},
      "impact": "why it matters"
    }
  ],
  "suggestions": [
    {
      "refactoring_type": "extract_function|improve_error_handling|add_safety_comment|remove_secret|parameterize_query|reduce_coupling",
      "title": "short title",
      "description": "what to change and why",
      "effort": "trivial|small|medium|large|very_large",
      "priority": "critical|high|medium|low"
    }
  ],
  "unsafe_audit": [
    {"line": 1, "has_safety_comment": false, "safety_justification_adequate": false, "recommendation": "what to improve"}
  ],
  "complexity_score": 0,
  "maintainability_score": 0,
  "security_score": 0,
  "risk_level": "critical|high|medium|low",
  "priorities": ["most critical first"],
  "estimated_effort": "trivial|small|medium|large|very_large"
}`

// SystemPrompt returns the system prompt used for a tier.
func SystemPrompt(t Tier) string {
	switch t {
	case TierMinimal:
		return minimalSystemPrompt
	case TierDeepDive:
		return deepDiveSystemPrompt
	}
	return standardSystemPrompt
}

var standardFocus = []string{
	"Functions longer than 50 lines",
	"Functions taking more than 4 parameters",
	"Nesting deeper than 4 levels",
	"Complicated conditionals",
	"Missing error handling or calls that can panic",
	"Unnamed magic numbers",
	"Dead or unreachable code",
	"Tight coupling between modules",
}

var auditSteps = []string{
	"Check every unsafe block for a SAFETY comment and confirm the invariant it claims actually holds",
	"Check every unwrap, expect and panic: can it fire on production input?",
	"Look for hardcoded secrets, API keys, tokens and passwords",
	"Look for SQL assembled by concatenation or formatting",
	"Look for path traversal through unchecked input",
	"Verify errors are propagated with enough context",
	"Look for data races and lock ordering problems",
	"Name the three riskiest code paths",
}

func minimalUserPrompt(path, body, ctx string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quick review of `%s`.\n\n", path)
	b.WriteString("Answer three questions:\n")
	b.WriteString("1. Does the code contain bugs or logic errors?\n")
	b.WriteString("2. Are failures handled, or can anything panic unexpectedly?\n")
	b.WriteString("3. Is there an obvious performance problem?\n\n")
	if ctx != "" {
		b.WriteString("Static analysis:\n")
		b.WriteString(ctx)
		b.WriteString("\n\n")
	}
	writeCode(&b, body)
	return b.String()
}

func standardUserPrompt(path, body, ctx string, rules *Rules) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review `%s` for code smells, refactoring opportunities and likely bugs.\n\n", path)
	if ctx != "" {
		b.WriteString("Static analysis found:\n")
		b.WriteString(ctx)
		b.WriteString("\nSpend your attention where these numbers point.\n\n")
	}
	b.WriteString("Check for:\n")
	for i, f := range standardFocus {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	b.WriteString(rules.PromptSection())
	b.WriteString("\n")
	writeCode(&b, body)
	return b.String()
}

func deepDiveUserPrompt(path, body, ctx, flags string, rules *Rules) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SECURITY AND QUALITY AUDIT of `%s`\n\n", path)
	b.WriteString("Static analysis raised these red flags:\n")
	b.WriteString(flags)
	b.WriteString("\n\nStatic analysis details:\n")
	b.WriteString(ctx)
	b.WriteString("\n\nRequired audit steps:\n")
	for i, s := range auditSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString(rules.PromptSection())
	b.WriteString("\n")
	writeCode(&b, body)
	return b.String()
}

func writeCode(b *strings.Builder, body string) {
	b.WriteString("```\n")
	b.WriteString(body)
	b.WriteString("\n```")
}

// StaticContext renders the signal summary shared by all tiers.
func StaticContext(s signals.QualitySignals) string {
	var parts []string
	add := func(format string, args ...any) { parts = append(parts, fmt.Sprintf(format, args...)) }

	add("Lines: %d total, %d code, %d comment, %d blank", s.TotalLines, s.CodeLines, s.CommentLines, s.BlankLines)
	if s.HasErrorHandling() {
		add("Error handling: %d unwrap, %d expect, %d panic, %d propagated, %d fallback, %.0f%% safe",
			s.UnwrapCount, s.ExpectCount, s.PanicCount, s.PropagateCount, s.FallbackCount, s.ErrorHandlingRatio*100)
	}
	if s.UnsafeBlocks > 0 {
		add("Unsafe: %d block(s), %d with SAFETY comment, %d without",
			s.UnsafeBlocks, s.UnsafeWithSafetyComment, s.UnsafeWithoutSafetyComment)
	}
	if s.TodoCount+s.Risky() > 0 {
		add("Markers: %d TODO, %d FIXME, %d HACK, %d XXX", s.TodoCount, s.FixmeCount, s.HackCount, s.XXXCount)
	}
	if s.TodoSourceTotal > 0 {
		add("Tracked TODOs: %d high, %d medium, %d low priority",
			s.HighPriorityTodos, s.MediumPriorityTodos, s.LowPriorityTodos)
	}
	add("Complexity: %d, functions: %d, public API: %s", s.Complexity, s.FunctionCount, yesNo(s.HasPublicAPI))
	if s.MissingDocumentation {
		add("Documentation: missing (%d lines with no comments)", s.TotalLines)
	}
	if n := len(s.PotentialSecrets); n > 0 {
		add("WARNING: %d potential secret(s) detected", n)
	}
	if s.SQLInjectionRisks > 0 {
		add("WARNING: %d SQL injection risk(s) detected", s.SQLInjectionRisks)
	}
	return strings.Join(parts, "\n")
}

func deepDiveContext(res analyzer.Result) string {
	var b strings.Builder
	b.WriteString(StaticContext(res.Signals))
	fmt.Fprintf(&b, "\nStatic issues: %d | Estimated LLM value: %.2f", res.StaticIssueCount, res.EstimatedLLMValue)
	if res.Signals.HasFFIImports {
		b.WriteString("\nWARNING: FFI imports present, check memory safety at the boundary")
	}
	return b.String()
}

// generalReview stands in for the red flag list when no flag fired.
const generalReview = "- General review requested (standard threshold exceeded)"

// RedFlagList renders red flags as a bullet list.
func RedFlagList(flags []analyzer.RedFlag) string {
	if len(flags) == 0 {
		return generalReview
	}
	lines := make([]string, len(flags))
	for i, f := range flags {
		lines[i] = "- " + f.Message
	}
	return strings.Join(lines, "\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EstimateTokens approximates the input token count of a prompt as four
// bytes per token plus ten percent framing overhead. It is an estimate;
// use TokenCounter for an exact count.
func EstimateTokens(system, user string) int {
	return int(math.Round(float64(len(system)+len(user)) / 4 * 1.1))
}
