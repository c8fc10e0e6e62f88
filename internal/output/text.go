package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/scan"
)

// tierOrder lists review tiers most expensive first.
var tierOrder = []analyzer.Recommendation{analyzer.DeepDive, analyzer.Standard, analyzer.Minimal}

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	// Verbose prints each file's analysis summary.
	Verbose bool
}

func (t *TextWriter) Write(w io.Writer, rep *scan.Report) error {
	ew := &errWriter{w: w}

	ew.printf("Sieve scan: %s mode\n", rep.Mode)
	if rep.Range != "" {
		ew.printf("Range: %s\n", rep.Range)
	}
	if rep.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", rep.Repo.Root, rep.Repo.Branch)
	} else {
		ew.printf("Directory: %s\n", rep.Root)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("%s", rep.Batch.Summary())
	ew.println(strings.Repeat("─", 60))

	if rep.Batch.Total == 0 {
		ew.println("\nNo files to review.")
	}

	grouped := groupByRecommendation(rep.Sorted())
	for _, rec := range tierOrder {
		files := grouped[rec]
		if len(files) == 0 {
			continue
		}
		ew.printf("\n%s %s (%d)\n", tierIcon(rec), rec, len(files))
		ew.println(strings.Repeat("─", 40))
		for _, f := range files {
			ew.printf("  %s  value %.2f | %d issues | ~%d tokens\n",
				f.Path, f.EstimatedLLMValue, f.StaticIssueCount, f.EstimatedTokens)
			for _, rf := range f.RedFlags {
				ew.printf("    - %s\n", rf.Message)
			}
			if f.AgeDays > 0 {
				ew.printf("    last modified %d days ago\n", f.AgeDays)
			}
			if t.Verbose {
				for _, line := range strings.Split(f.Summary, "\n") {
					ew.printf("    %s\n", strings.TrimSpace(line))
				}
			}
		}
	}

	if skipped := grouped[analyzer.Skip]; len(skipped) > 0 && t.Verbose {
		ew.printf("\n[ ] SKIP (%d)\n", len(skipped))
		ew.println(strings.Repeat("─", 40))
		for _, f := range skipped {
			ew.printf("  %s  %s\n", f.Path, skipDetail(f))
		}
	}

	if len(rep.Dropped) > 0 {
		ew.printf("\nNot analyzed (%d)\n", len(rep.Dropped))
		for _, d := range rep.Dropped {
			ew.printf("  %s  %s\n", d.Path, d.Reason)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	if rep.Routing.Files() > 0 {
		ew.println(rep.Routing.Summary())
	}
	if rep.Chunks != nil {
		ew.printf("Chunks: %s\n", rep.Chunks.Summary())
	}
	if rep.Dedup != nil {
		ew.printf("Dedup: %d unique bodies, %d duplicate locations saved, %d cross-repo\n",
			rep.Dedup.Unique, rep.Dedup.DuplicatesSaved, rep.Dedup.CrossRepo)
	}
	ew.printf("Completed in %dms\n", rep.Elapsed.Round(time.Millisecond).Milliseconds())

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// groupByRecommendation keeps the input order within each group.
func groupByRecommendation(files []scan.FileResult) map[analyzer.Recommendation][]scan.FileResult {
	m := make(map[analyzer.Recommendation][]scan.FileResult)
	for _, f := range files {
		m[f.Recommendation] = append(m[f.Recommendation], f)
	}
	return m
}

func skipDetail(f scan.FileResult) string {
	if f.DuplicateOf != "" {
		return fmt.Sprintf("%s of %s", f.SkipReason, f.DuplicateOf)
	}
	return string(f.SkipReason)
}

func tierIcon(r analyzer.Recommendation) string {
	switch r {
	case analyzer.DeepDive:
		return "[!!]"
	case analyzer.Standard:
		return "[!]"
	case analyzer.Minimal:
		return "[-]"
	default:
		return "[ ]"
	}
}
