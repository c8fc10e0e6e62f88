package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// File is a path and its content.
type File struct {
	Path    string
	Content string
}

// AnalyzeBatch analyzes files in parallel. Results keep the input order.
// It fails only when ctx is cancelled.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, files []File) ([]Result, error) {
	results := make([]Result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = a.Analyze(f.Path, f.Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BatchReport aggregates results by tier.
type BatchReport struct {
	Total          int                `json:"total"`
	Skip           int                `json:"skip"`
	Minimal        int                `json:"minimal"`
	Standard       int                `json:"standard"`
	DeepDive       int                `json:"deepDive"`
	TotalIssues    int                `json:"totalIssues"`
	SkipReasons    map[SkipReason]int `json:"skipReasons,omitempty"`
	SavingsPercent float64            `json:"savingsPercent"`
}

// NewBatchReport reduces results into a report. Savings counts skipped and
// minimal files as work avoided.
func NewBatchReport(results []Result) BatchReport {
	r := BatchReport{Total: len(results), SkipReasons: map[SkipReason]int{}}
	for _, res := range results {
		switch res.Recommendation {
		case Skip:
			r.Skip++
			r.SkipReasons[res.SkipReason]++
		case Minimal:
			r.Minimal++
		case Standard:
			r.Standard++
		case DeepDive:
			r.DeepDive++
		}
		r.TotalIssues += res.StaticIssueCount
	}
	r.SavingsPercent = float64(r.Skip+r.Minimal) / float64(max(r.Total, 1)) * 100
	return r
}

// Summary renders the report as a few lines of text.
func (r BatchReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Files: %d | Skip: %d | Minimal: %d | Standard: %d | Deep dive: %d\n",
		r.Total, r.Skip, r.Minimal, r.Standard, r.DeepDive)
	fmt.Fprintf(&b, "Static issues: %d | Estimated savings: %.1f%%\n", r.TotalIssues, r.SavingsPercent)
	if len(r.SkipReasons) > 0 {
		reasons := make([]SkipReason, 0, len(r.SkipReasons))
		for k := range r.SkipReasons {
			reasons = append(reasons, k)
		}
		slices.Sort(reasons)
		b.WriteString("Skip reasons:")
		for _, k := range reasons {
			fmt.Fprintf(&b, " %s=%d", k, r.SkipReasons[k])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
