package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/config"
	"github.com/dshills/sieve/internal/dedup"
	"github.com/dshills/sieve/internal/gitctx"
)

// repoArg is one repository named on the dedup command line.
type repoArg struct {
	ID   string
	Root string
}

// parseRepoArg accepts "name=path" or a bare path named after its base.
func parseRepoArg(s string) (repoArg, error) {
	id, root, ok := strings.Cut(s, "=")
	if !ok {
		root = s
		abs, err := filepath.Abs(root)
		if err != nil {
			return repoArg{}, fmt.Errorf("resolving %s: %w", root, err)
		}
		id = filepath.Base(abs)
	}
	if id == "" || root == "" {
		return repoArg{}, fmt.Errorf("invalid repository %q (want name=path)", s)
	}
	return repoArg{ID: id, Root: root}, nil
}

var dedupCmd = &cobra.Command{
	Use:   "dedup <repo=path>...",
	Short: "Chunk one or more repositories and report duplicated code bodies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repos := make([]repoArg, 0, len(args))
		for _, a := range args {
			r, err := parseRepoArg(a)
			if err != nil {
				return err
			}
			repos = append(repos, r)
		}
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runDedup(ctx, cfg, repos, os.Stdout); err != nil {
			fail(err)
		}
		return nil
	},
}

func runDedup(ctx context.Context, cfg config.Config, repos []repoArg, w io.Writer) error {
	ch, err := chunker.New(cfg.Chunker, nil)
	if err != nil {
		return err
	}
	ix := dedup.New(cfg.Dedup.Shards)
	store, err := openStore(ctx, cfg, ix)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	lo := buildListOpts(cfg, nil)
	for _, r := range repos {
		n, err := indexRepo(ctx, ch, ix, r, cfg, lo)
		if err != nil {
			return fmt.Errorf("%s: %w", r.ID, err)
		}
		slog.Info("repository indexed", "repo", r.ID, "chunks", n)
	}

	if store != nil {
		n, err := store.Save(ctx, ix)
		if err != nil {
			return fmt.Errorf("saving dedup index: %w", err)
		}
		slog.Info("dedup index saved", "new", n, "db", cfg.Dedup.DB)
	}

	if flagJSON {
		return writeJSON(w, struct {
			Stats     dedup.Stats   `json:"stats"`
			CrossRepo []dedup.Entry `json:"crossRepo"`
		}{ix.Stats(), ix.CrossRepoDuplicates()})
	}
	return writeDedup(w, ix)
}

// indexRepo chunks every listed file of r into ix and returns the number
// of chunks seen.
func indexRepo(ctx context.Context, ch *chunker.Chunker, ix *dedup.Index, r repoArg, cfg config.Config, lo gitctx.ListOptions) (int, error) {
	lo.Root = r.Root
	listed, err := gitctx.ListFiles(ctx, lo)
	if err != nil {
		return 0, err
	}

	// Chunked in parallel, linked in file order so the canonical entry and
	// location order are stable across runs.
	perFile := make([][]chunker.Chunk, len(listed.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers())
	for i, rel := range listed.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			full := filepath.Join(r.Root, filepath.FromSlash(rel))
			info, err := os.Stat(full)
			if err != nil || (cfg.Scan.MaxFileBytes > 0 && info.Size() > int64(cfg.Scan.MaxFileBytes)) {
				return nil
			}
			data, err := os.ReadFile(full)
			if err != nil {
				slog.Warn("skipping unreadable file", "path", rel, "error", err)
				return nil
			}
			chunks := ch.Chunk(rel, string(data), r.ID)
			for j := range chunks {
				chunks[j].Content = ""
			}
			perFile[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, chunks := range perFile {
		for _, c := range chunks {
			ix.InsertOrLink(c)
		}
		total += len(chunks)
	}
	return total, nil
}

func writeDedup(w io.Writer, ix *dedup.Index) error {
	ew := &errWriter{w: w}
	st := ix.Stats()
	ew.printf("Unique bodies: %d | Locations: %d | Duplicates saved: %d | Cross-repo: %d\n",
		st.Unique, st.Locations, st.DuplicatesSaved, st.CrossRepo)
	for _, e := range ix.CrossRepoDuplicates() {
		ew.printf("\n%s %s (%s) in %s\n", e.Kind, e.Name, e.ContentHash[:12], strings.Join(e.Repos(), ", "))
		for _, l := range e.Locations {
			ew.printf("  %s:%s:%d-%d\n", l.RepoID, l.Path, l.StartLine, l.EndLine)
		}
	}
	return ew.err
}

func init() {
	dedupCmd.Flags().StringVar(&flagDB, "db", "", "SQLite file to load the index from and save it to")
	dedupCmd.Flags().BoolVar(&flagJSON, "json", false, "Print statistics and cross-repo duplicates as JSON")
	dedupCmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	dedupCmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	dedupCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Parallel workers (default: one per CPU)")
}
