package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/sieve/internal/cache"
	"github.com/dshills/sieve/internal/config"
	"github.com/dshills/sieve/internal/dedup"
	"github.com/dshills/sieve/internal/gitctx"
	"github.com/dshills/sieve/internal/output"
	"github.com/dshills/sieve/internal/scan"
)

// Scan flags
var (
	flagRoot         string
	flagRepoID       string
	flagStaged       bool
	flagRange        string
	flagMergeBase    bool
	flagPaths        string
	flagExclude      string
	flagFormat       string
	flagOut          string
	flagFailOn       string
	flagRules        string
	flagTodos        bool
	flagWorkers      int
	flagMaxFileBytes int
	flagNoRouting    bool
	flagNoCache      bool
	flagCacheDir     string
	flagDedup        bool
	flagDB           string
	flagStaleness    bool
	flagDetails      bool
)

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagTodos {
		m["todos"] = "true"
	}
	if flagWorkers > 0 {
		m["workers"] = strconv.Itoa(flagWorkers)
	}
	if flagMaxFileBytes > 0 {
		m["maxFileBytes"] = strconv.Itoa(flagMaxFileBytes)
	}
	if flagNoRouting {
		m["noRouting"] = "true"
	}
	if flagNoCache {
		m["noCache"] = "true"
	}
	if flagCacheDir != "" {
		m["cacheDir"] = flagCacheDir
	}
	if flagDB != "" {
		m["db"] = flagDB
	}
	return m
}

// buildListOpts narrows the configured globs by the --paths and --exclude
// flags and by positional path arguments.
func buildListOpts(cfg config.Config, args []string) gitctx.ListOptions {
	opts := gitctx.ListOptions{
		Staged:    flagStaged,
		Range:     flagRange,
		MergeBase: flagMergeBase,
		Include:   cfg.Scan.Include,
		Exclude:   cfg.Scan.Exclude,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if len(args) > 0 {
		opts.Include = pathGlobs(flagRoot, args)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

// pathGlobs turns path arguments into include globs relative to root:
// directories match everything beneath them.
func pathGlobs(root string, args []string) []string {
	globs := make([]string, 0, len(args))
	for _, a := range args {
		rel := a
		if r, err := filepath.Rel(root, a); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
		rel = filepath.ToSlash(filepath.Clean(rel))
		if info, err := os.Stat(filepath.Join(root, rel)); err == nil && info.IsDir() {
			if rel == "." {
				globs = append(globs, "**")
				continue
			}
			globs = append(globs, path.Join(rel, "**"))
			continue
		}
		globs = append(globs, rel)
	}
	return globs
}

func splitComma(s string) []string {
	var result []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Triage every file in a repository or directory",
	Long: "Scan lists files (git-tracked, staged, a revision range, or a directory walk), " +
		"analyzes each one, routes a review prompt for the files that need review and reports the result.",
	Example: `  sieve scan                       # every tracked file
  sieve scan --staged --fail-on deep_dive
  sieve scan --range origin/main..HEAD --merge-base --format sarif --out sieve.sarif
  sieve scan src/ --dedup --db ~/.local/share/sieve/chunks.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runScan(ctx, cfg, args); err != nil {
			fail(err)
		}
		return nil
	},
}

func runScan(ctx context.Context, cfg config.Config, args []string) error {
	logger := slog.Default()
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	opts := []scan.Option{scan.WithLogger(logger)}
	if cfg.Cache.Enabled {
		c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
		if err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, scan.WithCache(c))
	}

	var store *dedup.Store
	if flagDedup || cfg.Dedup.DB != "" {
		ix := dedup.New(cfg.Dedup.Shards)
		if store, err = openStore(ctx, cfg, ix); err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		opts = append(opts, scan.WithDedup(p.chunker, ix))
	}

	s := scan.New(p.analyzer, p.router, opts...)
	rep, err := s.Run(ctx, scan.Options{
		Root:         flagRoot,
		RepoID:       flagRepoID,
		List:         buildListOpts(cfg, args),
		Workers:      cfg.Workers(),
		MaxFileBytes: cfg.Scan.MaxFileBytes,
		Todos:        cfg.Todos,
		Staleness:    flagStaleness,
	})
	if err != nil {
		return err
	}
	if store != nil {
		if err := s.Persist(ctx, store, rep); err != nil {
			return fmt.Errorf("persisting scan: %w", err)
		}
	}

	if err := output.WriteReport(rep, cfg.Format, flagOut, output.Options{Version: version, Verbose: flagDetails}); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if rep.Failed(cfg.FailOn) {
		exitCode = ExitFindings
	}
	return nil
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&flagRoot, "root", ".", "Directory to scan")
	f.StringVar(&flagRepoID, "repo-id", "", "Repository name recorded in chunk locations (default: root directory name)")
	f.BoolVar(&flagStaged, "staged", false, "Scan only staged files")
	f.StringVar(&flagRange, "range", "", "Scan files changed in a revision range (e.g. origin/main..HEAD)")
	f.BoolVar(&flagMergeBase, "merge-base", false, "Use the merge base for --range (three-dot diff)")
	f.StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	f.StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	f.StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.StringVar(&flagFailOn, "fail-on", "", "Exit 1 when a file reaches this tier (none, standard, deep_dive)")
	f.StringVar(&flagRules, "rules", "", "Rules pack (JSON or TOML) appended to standard and deep-dive prompts")
	f.BoolVar(&flagTodos, "todos", false, "Let TODO comments raise a file's tier")
	f.IntVar(&flagWorkers, "workers", 0, "Parallel workers (default: one per CPU)")
	f.IntVar(&flagMaxFileBytes, "max-file-bytes", 0, "Skip files larger than this")
	f.BoolVar(&flagNoRouting, "no-routing", false, "Route every file to the standard tier")
	f.BoolVar(&flagNoCache, "no-cache", false, "Disable the analysis cache")
	f.StringVar(&flagCacheDir, "cache-dir", "", "Cache directory")
	f.BoolVar(&flagDedup, "dedup", false, "Chunk files and report duplicate code bodies")
	f.StringVar(&flagDB, "db", "", "SQLite file the dedup index and scan savings persist to (implies --dedup)")
	f.BoolVar(&flagStaleness, "staleness", false, "Record each file's last commit time")
	f.BoolVar(&flagDetails, "details", false, "Include per-file summaries and skipped files in text output")
}
