package chunker

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/signals"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid chunker config")

// Kind classifies a chunk.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindTrait     Kind = "trait"
	KindInterface Kind = "interface"
	KindImpl      Kind = "impl"
	KindClass     Kind = "class"
	KindModule    Kind = "module"
	KindConst     Kind = "const"
	KindType      Kind = "type"
	KindImports   Kind = "imports"
	KindTest      Kind = "test"
	KindParagraph Kind = "paragraph"
	KindTopLevel  Kind = "top_level"
)

// Visibility is read from a language's leading modifier.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
	Unknown Visibility = "unknown"
)

// Chunk is one semantic unit of a file.
type Chunk struct {
	// ID is derived from repository, path, span and hash; never random.
	ID          string        `json:"id"`
	ContentHash string        `json:"contentHash"`
	RepoID      string        `json:"repoId"`
	Path        string        `json:"path"`
	Language    lang.Language `json:"language"`
	StartLine   int           `json:"startLine"`
	EndLine     int           `json:"endLine"`
	StartByte   int           `json:"startByte"`
	EndByte     int           `json:"endByte"`
	Kind        Kind          `json:"kind"`
	Name        string        `json:"name"`
	// Doc is the attached leading comment and attribute text.
	Doc string `json:"doc,omitempty"`
	// Content is Doc followed by the body.
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	// Complexity is a per-chunk score in [0,1].
	Complexity float64 `json:"complexity"`
	// ComplexityShare is this chunk's line-proportional share of the
	// file-level complexity estimate.
	ComplexityShare float64  `json:"complexityShare"`
	ParentModule    string   `json:"parentModule,omitempty"`
	Imports         []string `json:"imports,omitempty"`
	IsTest          bool     `json:"isTest"`
	HasTests        bool     `json:"hasTests"`
	WordCount       int      `json:"wordCount"`
}

// Lines is the number of lines the chunk spans, doc included.
func (c Chunk) Lines() int { return c.EndLine - c.StartLine + 1 }

// Config bounds chunk sizes.
type Config struct {
	// MaxChunkLines is the size above which containers are split into a
	// header and their members.
	MaxChunkLines int `json:"maxChunkLines"`
	// MinChunkLines drops smaller chunks, except const, type and imports.
	MinChunkLines int `json:"minChunkLines"`
	// MaxChunksPerFile truncates the output.
	MaxChunksPerFile int `json:"maxChunksPerFile"`
	// MaxParagraphLines caps fallback paragraph chunks.
	MaxParagraphLines int `json:"maxParagraphLines"`
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{
		MaxChunkLines:     200,
		MinChunkLines:     3,
		MaxChunksPerFile:  500,
		MaxParagraphLines: 50,
	}
}

// Validate reports the first invalid limit.
func (c Config) Validate() error {
	switch {
	case c.MinChunkLines < 1:
		return fmt.Errorf("%w: minChunkLines must be >= 1, got %d", ErrInvalidConfig, c.MinChunkLines)
	case c.MaxChunkLines < c.MinChunkLines:
		return fmt.Errorf("%w: maxChunkLines (%d) must be >= minChunkLines (%d)", ErrInvalidConfig, c.MaxChunkLines, c.MinChunkLines)
	case c.MaxChunksPerFile < 1:
		return fmt.Errorf("%w: maxChunksPerFile must be >= 1, got %d", ErrInvalidConfig, c.MaxChunksPerFile)
	case c.MaxParagraphLines < 1:
		return fmt.Errorf("%w: maxParagraphLines must be >= 1, got %d", ErrInvalidConfig, c.MaxParagraphLines)
	}
	return nil
}

// Chunker splits files. It is safe for concurrent use.
type Chunker struct {
	cfg    Config
	ex     *signals.Extractor
	logger *slog.Logger
}

// New validates cfg. A nil logger selects slog.Default().
func New(cfg Config, logger *slog.Logger) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ex, err := signals.NewExtractor(signals.DefaultConfig(), nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{cfg: cfg, ex: ex, logger: logger}, nil
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dshills/sieve/chunk"))

// ChunkID derives a stable identifier for a chunk location.
func ChunkID(repoID, path string, start, end int, hash string) string {
	key := strings.Join([]string{repoID, path, strconv.Itoa(start), strconv.Itoa(end), hash}, "\x00")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// Chunk splits content into ordered chunks. It never fails: content with no
// recognizable declarations is split into paragraphs.
func (c *Chunker) Chunk(path, content, repoID string) []Chunk {
	if strings.TrimSpace(content) == "" || signals.LooksBinary(content) {
		return nil
	}
	l := lang.Detect(path)
	f := newFile(path, content, repoID, l)

	var spans []span
	if rules, ok := rulesFor(l); ok {
		spans = c.findSpans(f, rules)
		if len(spans) == 0 && len(f.lines) <= c.cfg.MaxChunkLines {
			spans = []span{{attach: 0, decl: 0, end: len(f.lines) - 1, kind: KindTopLevel, name: "file"}}
		}
	}
	if len(spans) == 0 {
		spans = c.paragraphs(f)
	}

	ctx := c.context(f, content)
	chunks := make([]Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, c.build(f, s, ctx, i+1))
	}
	linkTests(chunks)

	if len(chunks) > c.cfg.MaxChunksPerFile {
		c.logger.Warn("chunk limit reached, truncating",
			"path", path,
			"chunks", len(chunks),
			"limit", c.cfg.MaxChunksPerFile)
		chunks = chunks[:c.cfg.MaxChunksPerFile]
	}
	return chunks
}
