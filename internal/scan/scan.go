package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-enry/go-enry/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/cache"
	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/dedup"
	"github.com/dshills/sieve/internal/gitctx"
	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/router"
	"github.com/dshills/sieve/internal/todo"
)

// ModeExplicit marks a scan of caller-supplied files.
const ModeExplicit gitctx.Mode = "explicit"

// Minified files have few, very long lines.
const (
	minifiedAvgLine  = 500
	minifiedMaxLines = 50
)

// Options selects the files of one scan.
type Options struct {
	// Root is the directory scanned; empty means the working directory.
	Root string
	// RepoID names the repository in chunk locations; defaults to the
	// base name of Root.
	RepoID string
	// Files, when set, replaces listing. Paths are relative to Root.
	Files []string
	// List controls listing when Files is empty. Its Root is ignored.
	List gitctx.ListOptions
	// Workers bounds parallelism; values below 1 mean one.
	Workers      int
	MaxFileBytes int
	// Todos enables TODO-aware analysis from the file's own comments.
	Todos bool
	// Staleness records the last commit time of each file.
	Staleness bool
}

// FileResult is the outcome for one scanned file.
type FileResult struct {
	analyzer.Result
	ContentHash string `json:"contentHash"`
	Bytes       int    `json:"bytes"`
	// Tier is empty for skipped files.
	Tier            string    `json:"tier,omitempty"`
	EstimatedTokens int       `json:"estimatedTokens,omitempty"`
	BaselineTokens  int       `json:"baselineTokens,omitempty"`
	Chunks          int       `json:"chunks,omitempty"`
	LastModified    time.Time `json:"lastModified,omitzero"`
	AgeDays         int       `json:"ageDays,omitempty"`
	// DuplicateOf names the first file with the same content.
	DuplicateOf string `json:"duplicateOf,omitempty"`

	prompt *router.PromptTier
}

// Prompt returns the routed prompt, nil for skipped files.
func (f FileResult) Prompt() *router.PromptTier { return f.prompt }

// Dropped is a listed file that was not analyzed at all.
type Dropped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report is the outcome of a scan.
type Report struct {
	SessionID string          `json:"sessionId"`
	Root      string          `json:"root"`
	RepoID    string          `json:"repoId"`
	Mode      gitctx.Mode     `json:"mode"`
	Range     string          `json:"range,omitempty"`
	Repo      gitctx.RepoMeta `json:"repo"`
	StartedAt time.Time       `json:"startedAt"`
	Elapsed   time.Duration   `json:"elapsed"`

	Files   []FileResult         `json:"files"`
	Dropped []Dropped            `json:"dropped,omitempty"`
	Batch   analyzer.BatchReport `json:"batch"`
	Routing router.Stats         `json:"routing"`
	Chunks  *chunker.Stats       `json:"chunks,omitempty"`
	Dedup   *dedup.Stats         `json:"dedup,omitempty"`
}

// Results returns the analyzer results in file order.
func (r *Report) Results() []analyzer.Result {
	out := make([]analyzer.Result, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.Result
	}
	return out
}

// Failed reports whether the report meets a fail-on threshold: "standard"
// or "deep_dive". Any other value never fails.
func (r *Report) Failed(failOn string) bool {
	switch failOn {
	case "deep_dive":
		return r.Batch.DeepDive > 0
	case "standard":
		return r.Batch.Standard+r.Batch.DeepDive > 0
	}
	return false
}

// Scanner holds the pipeline stages. Cache, chunker and index are optional.
type Scanner struct {
	analyzer *analyzer.Analyzer
	router   *router.Router
	chunker  *chunker.Chunker
	index    *dedup.Index
	cache    *cache.Cache
	logger   *slog.Logger
}

// Option configures optional Scanner stages.
type Option func(*Scanner)

// WithCache skips unchanged files that were clean last time.
func WithCache(c *cache.Cache) Option { return func(s *Scanner) { s.cache = c } }

// WithDedup chunks every analyzed file into ix.
func WithDedup(c *chunker.Chunker, ix *dedup.Index) Option {
	return func(s *Scanner) { s.chunker, s.index = c, ix }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *slog.Logger) Option { return func(s *Scanner) { s.logger = l } }

// New builds a Scanner around an analyzer and router.
func New(a *analyzer.Analyzer, r *router.Router, opts ...Option) *Scanner {
	s := &Scanner{
		analyzer: a,
		router:   r,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Index returns the dedup index, nil when chunking is off.
func (s *Scanner) Index() *dedup.Index { return s.index }

// outcome is what a worker produces for one listed file.
type outcome struct {
	file    *FileResult
	dropped *Dropped
	chunks  []chunker.Chunk
}

// Run scans the files selected by opts. It fails when listing fails or
// ctx is cancelled; unreadable files are reported as dropped.
func (s *Scanner) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	root := opts.Root
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	rep := &Report{
		SessionID: uuid.NewString(),
		Root:      abs,
		RepoID:    opts.RepoID,
		StartedAt: start,
	}
	if rep.RepoID == "" {
		rep.RepoID = filepath.Base(abs)
	}

	files := opts.Files
	if len(files) == 0 {
		lo := opts.List
		lo.Root = root
		listed, err := gitctx.ListFiles(ctx, lo)
		if err != nil {
			return nil, err
		}
		files = listed.Files
		rep.Mode, rep.Range, rep.Repo = listed.Mode, listed.Range, listed.Repo
	} else {
		rep.Mode = ModeExplicit
		if meta, err := gitctx.GetRepoMeta(ctx, root); err == nil {
			rep.Repo = meta
		}
	}
	staleness := opts.Staleness && rep.Repo.Root != ""

	outcomes := make([]outcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.scanFile(gctx, root, rep.RepoID, filepath.ToSlash(rel), opts, staleness)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.aggregate(rep, outcomes)
	rep.Elapsed = time.Since(start)
	s.logger.Info("scan complete",
		"files", len(rep.Files),
		"dropped", len(rep.Dropped),
		"elapsed", rep.Elapsed)
	return rep, nil
}

func (s *Scanner) scanFile(ctx context.Context, root, repoID, rel string, opts Options, staleness bool) outcome {
	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		s.logger.Warn("skipping unreadable file", "path", rel, "error", err)
		return outcome{dropped: &Dropped{Path: rel, Reason: "unreadable"}}
	}
	if opts.MaxFileBytes > 0 && info.Size() > int64(opts.MaxFileBytes) {
		s.logger.Debug("skipping large file", "path", rel, "bytes", info.Size())
		return outcome{dropped: &Dropped{Path: rel, Reason: "too_large"}}
	}
	data, err := os.ReadFile(full)
	if err != nil {
		s.logger.Warn("skipping unreadable file", "path", rel, "error", err)
		return outcome{dropped: &Dropped{Path: rel, Reason: "unreadable"}}
	}
	if enry.IsBinary(data) {
		return outcome{dropped: &Dropped{Path: rel, Reason: "binary"}}
	}
	content := string(data)

	fr := &FileResult{ContentHash: analyzer.ContentHash(content), Bytes: len(data)}
	key := cache.BuildKey(root, rel)
	switch {
	case Minified(content):
		fr.Result = s.skip(rel, content, analyzer.ReasonNonCode)
	case s.cache != nil && s.cache.UnchangedClean(key, fr.ContentHash):
		fr.Result = s.skip(rel, "", analyzer.ReasonUnchangedClean)
	default:
		if opts.Todos {
			fr.Result = s.analyzer.AnalyzeWithTodos(rel, content, todo.MapSource{rel: content})
		} else {
			fr.Result = s.analyzer.Analyze(rel, content)
		}
		if s.cache != nil {
			if err := s.cache.Put(key, fr.ContentHash, fr.Result); err != nil {
				s.logger.Warn("cache write failed", "path", rel, "error", err)
			}
		}
	}

	if !fr.Skipped() {
		p := s.router.Route(rel, content, fr.Result)
		fr.prompt = &p
		fr.Tier = p.Tier.String()
		fr.EstimatedTokens = p.EstimatedInputTokens
		fr.BaselineTokens = s.router.BaselineTokens(rel, content, fr.Result)
	}

	var chunks []chunker.Chunk
	if s.index != nil && s.chunker != nil && fr.SkipReason != analyzer.ReasonGenerated {
		chunks = s.chunker.Chunk(rel, content, repoID)
		for i := range chunks {
			chunks[i].Content = "" // linked and counted in aggregate
		}
		fr.Chunks = len(chunks)
	}

	if staleness {
		ts, err := gitctx.LastModified(ctx, root, rel)
		if err != nil {
			s.logger.Debug("no commit time", "path", rel, "error", err)
		} else if !ts.IsZero() {
			fr.LastModified = ts
			fr.AgeDays = gitctx.AgeDays(ts, time.Now())
		}
	}
	return outcome{file: fr, chunks: chunks}
}

// skip builds a Skip result decided by the scanner rather than the analyzer.
func (s *Scanner) skip(path, content string, reason analyzer.SkipReason) analyzer.Result {
	l := lang.Detect(path)
	res := analyzer.Result{
		Path:           path,
		Language:       l,
		Recommendation: analyzer.Skip,
		SkipReason:     reason,
	}
	if content != "" {
		res.Signals = s.analyzer.Extractor().Extract(content, l)
	}
	res.Summary = analyzer.Summarize(res)
	return res
}

// aggregate runs in file order: duplicate marking, dedup linking, then
// totals. Only files still under review can be the first of a duplicate.
func (s *Scanner) aggregate(rep *Report, outcomes []outcome) {
	firstByHash := make(map[string]string)
	var allChunks []chunker.Chunk
	for _, o := range outcomes {
		if o.dropped != nil {
			rep.Dropped = append(rep.Dropped, *o.dropped)
			continue
		}
		fr := *o.file
		if !fr.Skipped() {
			if first, ok := firstByHash[fr.ContentHash]; ok {
				markDuplicate(&fr, first)
			} else {
				firstByHash[fr.ContentHash] = fr.Path
			}
		}
		if s.index != nil {
			for _, c := range o.chunks {
				s.index.InsertOrLink(c)
			}
		}
		if fr.prompt != nil {
			rep.Routing.Record(*fr.prompt, fr.BaselineTokens)
		}
		rep.Files = append(rep.Files, fr)
		allChunks = append(allChunks, o.chunks...)
	}
	rep.Batch = analyzer.NewBatchReport(rep.Results())
	if s.index != nil {
		cs := chunker.ComputeStats(allChunks)
		ds := s.index.Stats()
		rep.Chunks, rep.Dedup = &cs, &ds
	}
}

func markDuplicate(fr *FileResult, first string) {
	fr.Recommendation = analyzer.Skip
	fr.SkipReason = analyzer.ReasonDuplicate
	fr.Issues, fr.RedFlags = nil, nil
	fr.StaticIssueCount = 0
	fr.EstimatedLLMValue = 0
	fr.Summary = analyzer.Summarize(fr.Result)
	fr.DuplicateOf = first
	fr.prompt = nil
	fr.Tier, fr.EstimatedTokens, fr.BaselineTokens = "", 0, 0
}

// Minified reports content with an average line over 500 bytes spread
// over fewer than 50 lines.
func Minified(content string) bool {
	lines := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") && content != "" {
		lines++
	}
	if lines == 0 || lines >= minifiedMaxLines {
		return false
	}
	return len(content)/lines > minifiedAvgLine
}

// Persist saves the dedup index and the per-file outcomes of rep.
func (s *Scanner) Persist(ctx context.Context, st *dedup.Store, rep *Report) error {
	if s.index != nil {
		if _, err := st.Save(ctx, s.index); err != nil {
			return err
		}
	}
	return st.RecordSavings(ctx, rep.SessionID, rep.RepoID, rep.Results())
}

// Sorted returns the file results ordered by descending estimated LLM
// value, ties broken by path.
func (r *Report) Sorted() []FileResult {
	out := slices.Clone(r.Files)
	slices.SortStableFunc(out, func(a, b FileResult) int {
		switch {
		case a.EstimatedLLMValue > b.EstimatedLLMValue:
			return -1
		case a.EstimatedLLMValue < b.EstimatedLLMValue:
			return 1
		}
		return strings.Compare(a.Path, b.Path)
	})
	return out
}
