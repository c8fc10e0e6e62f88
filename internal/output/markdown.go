package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/scan"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, rep *scan.Report) error {
	ew := &errWriter{w: w}
	b := rep.Batch

	ew.printf("## Sieve Scan\n\n")
	ew.printf("| Tier | Files |\n")
	ew.printf("|------|-------|\n")
	ew.printf("| Deep dive | %d |\n", b.DeepDive)
	ew.printf("| Standard | %d |\n", b.Standard)
	ew.printf("| Minimal | %d |\n", b.Minimal)
	ew.printf("| Skip | %d |\n", b.Skip)
	ew.printf("| **Total** | **%d** |\n\n", b.Total)

	if b.DeepDive+b.Standard+b.Minimal == 0 {
		ew.println("No files need review. :white_check_mark:")
		ew.println("")
	}

	grouped := groupByRecommendation(rep.Sorted())
	for _, rec := range tierOrder {
		files := grouped[rec]
		if len(files) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdTierIcon(rec), rec, len(files))
		ew.printf("| File | Language | Value | Issues | Tokens |\n")
		ew.printf("|------|----------|-------|--------|--------|\n")
		for _, f := range files {
			ew.printf("| `%s` | %s | %.2f | %s | %d |\n",
				f.Path, f.Language, f.EstimatedLLMValue, mdIssues(f.Issues), f.EstimatedTokens)
		}
		ew.println("")
		for _, f := range files {
			if len(f.RedFlags) == 0 {
				continue
			}
			ew.printf("**`%s`**\n\n", f.Path)
			for _, rf := range f.RedFlags {
				ew.printf("- %s\n", rf.Message)
			}
			ew.println("")
		}
		ew.printf("</details>\n\n")
	}

	if len(b.SkipReasons) > 0 {
		ew.printf("Skipped: %s\n\n", skipReasons(b))
	}
	if rep.Routing.Files() > 0 {
		ew.printf("*%s*\n", rep.Routing.Summary())
	}
	return ew.err
}

func skipReasons(b analyzer.BatchReport) string {
	parts := make([]string, 0, len(b.SkipReasons))
	for _, r := range slices.Sorted(maps.Keys(b.SkipReasons)) {
		parts = append(parts, fmt.Sprintf("%s=%d", r, b.SkipReasons[r]))
	}
	return strings.Join(parts, ", ")
}

func mdIssues(issues []analyzer.IssueCategory) string {
	if len(issues) == 0 {
		return "none"
	}
	parts := make([]string, len(issues))
	for i, c := range issues {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func mdTierIcon(r analyzer.Recommendation) string {
	switch r {
	case analyzer.DeepDive:
		return ":red_circle:"
	case analyzer.Standard:
		return ":orange_circle:"
	case analyzer.Minimal:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}
