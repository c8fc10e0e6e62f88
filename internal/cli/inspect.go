package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/router"
)

// Single-file flags
var (
	flagJSON       bool
	flagExact      bool
	flagShowPrompt bool
)

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Show the static analysis of one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, nil)
		if err != nil {
			return err
		}
		_, res, err := p.analyzeFile(args[0])
		if err != nil {
			fail(err)
			return nil
		}
		if flagJSON {
			err = writeJSON(os.Stdout, res)
		} else {
			err = writeAnalysis(os.Stdout, res)
		}
		if err != nil {
			fail(err)
			return nil
		}
		if failsOn(res.Recommendation, cfg.FailOn) {
			exitCode = ExitFindings
		}
		return nil
	},
}

func writeAnalysis(w io.Writer, res analyzer.Result) error {
	ew := &errWriter{w: w}
	ew.printf("%s\n", res.Summary)
	ew.printf("  Estimated LLM value: %.2f | Static issues: %d\n", res.EstimatedLLMValue, res.StaticIssueCount)
	for _, rf := range res.RedFlags {
		ew.printf("  ! %s\n", rf.Message)
	}
	return ew.err
}

// failsOn mirrors scan.Report.Failed for a single recommendation.
func failsOn(rec analyzer.Recommendation, failOn string) bool {
	switch failOn {
	case "deep_dive":
		return rec == analyzer.DeepDive
	case "standard":
		return rec >= analyzer.Standard
	}
	return false
}

var routeCmd = &cobra.Command{
	Use:   "route <file>",
	Short: "Render the review prompt sieve would send for one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, nil)
		if err != nil {
			return err
		}
		content, res, err := p.analyzeFile(args[0])
		if err != nil {
			fail(err)
			return nil
		}
		path := filepath.ToSlash(args[0])
		prompt := p.router.Route(path, content, res)
		baseline := p.router.BaselineTokens(path, content, res)

		exact := -1
		if flagExact {
			tc, err := router.NewTokenCounter()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v; showing estimates only\n", err)
			} else {
				exact = tc.CountPrompt(prompt)
			}
		}

		if flagJSON {
			out := struct {
				router.PromptTier
				Recommendation analyzer.Recommendation `json:"recommendation"`
				BaselineTokens int                     `json:"baselineTokens"`
				ExactTokens    *int                    `json:"exactTokens,omitempty"`
			}{PromptTier: prompt, Recommendation: res.Recommendation, BaselineTokens: baseline}
			if exact >= 0 {
				out.ExactTokens = &exact
			}
			if err := writeJSON(os.Stdout, out); err != nil {
				fail(err)
			}
			return nil
		}
		if err := writeRoute(os.Stdout, res, prompt, baseline, exact, flagShowPrompt); err != nil {
			fail(err)
		}
		return nil
	},
}

func writeRoute(w io.Writer, res analyzer.Result, p router.PromptTier, baseline, exact int, showPrompt bool) error {
	ew := &errWriter{w: w}
	ew.printf("%s: %s -> %s tier\n", res.Path, res.Recommendation, p.Tier)
	if res.Skipped() {
		ew.printf("  Skipped (%s); no review needed\n", res.SkipReason.Description())
	}
	ew.printf("  Max tokens: %d | Temperature: %.1f\n", p.MaxTokens, p.Temperature)
	ew.printf("  Estimated input tokens: %d (standard tier: %d)\n", p.EstimatedInputTokens, baseline)
	if exact >= 0 {
		ew.printf("  Exact input tokens (cl100k_base): %d\n", exact)
	}
	if showPrompt {
		ew.printf("\n--- system ---\n%s\n\n--- user ---\n%s\n", p.SystemPrompt, p.UserPrompt)
	}
	return ew.err
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <file>",
	Short: "Split one file into semantic chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		p, err := newPipeline(cfg, nil)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			fail(fmt.Errorf("reading %s: %w", args[0], err))
			return nil
		}
		repoID := flagRepoID
		if repoID == "" {
			repoID = "local"
		}
		chunks := p.chunker.Chunk(filepath.ToSlash(args[0]), string(data), repoID)
		if flagJSON {
			err = writeJSON(os.Stdout, chunks)
		} else {
			err = writeChunks(os.Stdout, chunks)
		}
		if err != nil {
			fail(err)
		}
		return nil
	},
}

func writeChunks(w io.Writer, chunks []chunker.Chunk) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINES\tKIND\tNAME\tVISIBILITY\tHASH")
	for _, c := range chunks {
		fmt.Fprintf(tw, "%d-%d\t%s\t%s\t%s\t%s\n", c.StartLine, c.EndLine, c.Kind, c.Name, c.Visibility, c.ContentHash[:12])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	st := chunker.ComputeStats(chunks)
	_, err := fmt.Fprintln(w, st.Summary())
	return err
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

func init() {
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the full result as JSON")
	analyzeCmd.Flags().BoolVar(&flagTodos, "todos", false, "Let TODO comments raise the tier")
	analyzeCmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 when the file reaches this tier (none, standard, deep_dive)")

	routeCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the rendered prompt as JSON")
	routeCmd.Flags().BoolVar(&flagExact, "exact", false, "Count input tokens exactly with tiktoken")
	routeCmd.Flags().BoolVar(&flagShowPrompt, "show-prompt", false, "Print the system and user prompts")
	routeCmd.Flags().BoolVar(&flagTodos, "todos", false, "Let TODO comments raise the tier")
	routeCmd.Flags().StringVar(&flagRules, "rules", "", "Rules pack appended to standard and deep-dive prompts")
	routeCmd.Flags().BoolVar(&flagNoRouting, "no-routing", false, "Always render the standard tier")

	chunkCmd.Flags().BoolVar(&flagJSON, "json", false, "Print chunks as JSON")
	chunkCmd.Flags().StringVar(&flagRepoID, "repo-id", "", "Repository name recorded in chunk IDs")
}
