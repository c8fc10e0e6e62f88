package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/config"
	"github.com/dshills/sieve/internal/dedup"
	"github.com/dshills/sieve/internal/router"
	"github.com/dshills/sieve/internal/signals"
	"github.com/dshills/sieve/internal/todo"
)

// pipeline holds the stages built from one config.
type pipeline struct {
	cfg      config.Config
	analyzer *analyzer.Analyzer
	router   *router.Router
	chunker  *chunker.Chunker
}

func newPipeline(cfg config.Config, logger *slog.Logger) (*pipeline, error) {
	ex, err := signals.NewExtractor(cfg.Signals, nil)
	if err != nil {
		return nil, err
	}
	a, err := analyzer.New(cfg.Analyzer, ex, logger)
	if err != nil {
		return nil, err
	}
	rc := cfg.RouterConfig()
	if rc.Rules, err = router.LoadRules(cfg.RulesFile); err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	r, err := router.New(rc, cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.New(cfg.Chunker, logger)
	if err != nil {
		return nil, err
	}
	return &pipeline{cfg: cfg, analyzer: a, router: r, chunker: ch}, nil
}

// analyzeFile reads and analyzes one file, TODO-aware when configured.
func (p *pipeline) analyzeFile(path string) (string, analyzer.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", analyzer.Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(data)
	rel := filepath.ToSlash(path)
	if p.cfg.Todos {
		return content, p.analyzer.AnalyzeWithTodos(rel, content, todo.MapSource{rel: content}), nil
	}
	return content, p.analyzer.Analyze(rel, content), nil
}

// openStore opens the configured dedup database and loads it into ix. It
// returns nil when no database is configured.
func openStore(ctx context.Context, cfg config.Config, ix *dedup.Index) (*dedup.Store, error) {
	if cfg.Dedup.DB == "" {
		return nil, nil
	}
	st, err := dedup.OpenStore(ctx, cfg.Dedup.DB, slog.Default())
	if err != nil {
		return nil, err
	}
	n, err := st.Load(ctx, ix)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("loading dedup index: %w", err)
	}
	slog.Debug("dedup index loaded", "chunks", n, "db", cfg.Dedup.DB)
	return st, nil
}
