package analyzer

import (
	"fmt"
	"slices"

	"github.com/dshills/sieve/internal/todo"
)

// AnalyzeWithTodos analyzes the file and then lets an external TODO summary
// raise the tier. The base result is never lowered. A failing source is
// logged and the base result returned unchanged.
func (a *Analyzer) AnalyzeWithTodos(path, content string, src todo.Source) Result {
	base := a.Analyze(path, content)
	if src == nil {
		return base
	}
	sum, err := src.Summary(path)
	if err != nil {
		a.logger.Warn("todo source failed", "path", path, "error", err)
		return base
	}
	return a.ApplyTodos(base, sum)
}

// ApplyTodos returns a new result with sum merged into base.
func (a *Analyzer) ApplyTodos(base Result, sum todo.Summary) Result {
	res := base.Clone()
	res.Signals.HighPriorityTodos = sum.High
	res.Signals.MediumPriorityTodos = sum.Medium
	res.Signals.LowPriorityTodos = sum.Low
	res.Signals.TodoSourceTotal = sum.Total

	density := float64(sum.Total) * 100 / float64(max(res.Signals.CodeLines, 1))
	var note string
	switch {
	case sum.High >= a.th.HighPriorityTodos && (res.Recommendation == Minimal || res.Recommendation == Standard):
		res.Recommendation = DeepDive
		res.Issues = addIssue(res.Issues, IssueTodoDensity)
		res.EstimatedLLMValue = max(res.EstimatedLLMValue, EstimateValue(DeepDive, len(res.Issues), 0, res.Signals))
		note = fmt.Sprintf(" [UPGRADED to %s: %d high-priority TODOs]", DeepDive, sum.High)
	case res.Recommendation == Skip && res.SkipReason != ReasonGenerated && sum.Total > 0 && density >= a.th.TodoDensity:
		res.Recommendation = Minimal
		res.SkipReason = ReasonNone
		res.Issues = addIssue(res.Issues, IssueTodoDensity)
		res.EstimatedLLMValue = max(res.EstimatedLLMValue, EstimateValue(Minimal, len(res.Issues), 0, res.Signals))
		note = fmt.Sprintf(" [UPGRADED to %s: %.1f TODOs per 100 lines]", Minimal, density)
	}
	res.StaticIssueCount = len(res.Issues)
	res.Summary = Summarize(res) + note
	if sum.Total > 0 {
		res.Summary += fmt.Sprintf(" | TODO source: %d items (%d high, %d medium, %d low)", sum.Total, sum.High, sum.Medium, sum.Low)
	}
	return res
}

func addIssue(issues []IssueCategory, c IssueCategory) []IssueCategory {
	if slices.Contains(issues, c) {
		return issues
	}
	return append(issues, c)
}
