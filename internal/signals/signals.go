package signals

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/patterns"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid signals config")

// Config tunes the extractor.
type Config struct {
	// SafetyCommentWindow is how many lines above an unsafe region are
	// searched for a SAFETY: comment.
	SafetyCommentWindow int `json:"safetyCommentWindow"`
	// DocMinLines is the file length above which a file with no comments
	// is flagged as missing documentation.
	DocMinLines int `json:"docMinLines"`
	// GeneratedHeaderLines bounds the header searched for generated markers.
	GeneratedHeaderLines int `json:"generatedHeaderLines"`
	// NestingCap bounds the reported nesting depth.
	NestingCap int `json:"nestingCap"`
	// IndentWidth is the number of spaces per nesting level in
	// indentation-structured languages.
	IndentWidth int `json:"indentWidth"`
}

// DefaultConfig returns the built-in extractor settings.
func DefaultConfig() Config {
	return Config{
		SafetyCommentWindow:  3,
		DocMinLines:          100,
		GeneratedHeaderLines: 50,
		NestingCap:           20,
		IndentWidth:          4,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.SafetyCommentWindow < 0:
		return fmt.Errorf("%w: safetyCommentWindow must be >= 0, got %d", ErrInvalidConfig, c.SafetyCommentWindow)
	case c.DocMinLines < 1:
		return fmt.Errorf("%w: docMinLines must be >= 1, got %d", ErrInvalidConfig, c.DocMinLines)
	case c.GeneratedHeaderLines < 1:
		return fmt.Errorf("%w: generatedHeaderLines must be >= 1, got %d", ErrInvalidConfig, c.GeneratedHeaderLines)
	case c.NestingCap < 1:
		return fmt.Errorf("%w: nestingCap must be >= 1, got %d", ErrInvalidConfig, c.NestingCap)
	case c.IndentWidth < 1:
		return fmt.Errorf("%w: indentWidth must be >= 1, got %d", ErrInvalidConfig, c.IndentWidth)
	}
	return nil
}

// LineMetrics counts lines by kind.
type LineMetrics struct {
	CharCount     int     `json:"charCount"`
	TotalLines    int     `json:"totalLines"`
	CodeLines     int     `json:"codeLines"`
	CommentLines  int     `json:"commentLines"`
	BlankLines    int     `json:"blankLines"`
	AvgLineLength float64 `json:"avgLineLength"`
}

// ErrorHandling counts panic-prone and safe error-handling operations.
type ErrorHandling struct {
	UnwrapCount    int `json:"unwrapCount"`
	ExpectCount    int `json:"expectCount"`
	PanicCount     int `json:"panicCount"`
	PropagateCount int `json:"propagateCount"`
	FallbackCount  int `json:"fallbackCount"`
	// ErrorHandlingRatio is safe / (safe + panic-prone), 0 when no
	// operator was seen.
	ErrorHandlingRatio float64 `json:"errorHandlingRatio"`
}

// Operators is the number of error-handling operations of any kind.
func (e ErrorHandling) Operators() int {
	return e.UnwrapCount + e.ExpectCount + e.PanicCount + e.PropagateCount + e.FallbackCount
}

// UnsafeAudit splits unsafe regions by whether they carry a safety comment.
type UnsafeAudit struct {
	UnsafeBlocks               int `json:"unsafeBlocks"`
	UnsafeWithSafetyComment    int `json:"unsafeWithSafetyComment"`
	UnsafeWithoutSafetyComment int `json:"unsafeWithoutSafetyComment"`
}

// Markers counts review markers found in comments.
type Markers struct {
	TodoCount  int `json:"todoCount"`
	FixmeCount int `json:"fixmeCount"`
	HackCount  int `json:"hackCount"`
	XXXCount   int `json:"xxxCount"`
}

// Risky is the FIXME+HACK+XXX total.
func (m Markers) Risky() int { return m.FixmeCount + m.HackCount + m.XXXCount }

// Structure describes the shape of the file.
type Structure struct {
	FunctionCount   int  `json:"functionCount"`
	Complexity      int  `json:"complexity"`
	MaxNestingDepth int  `json:"maxNestingDepth"`
	HasPublicAPI    bool `json:"hasPublicApi"`
	ImportCount     int  `json:"importCount"`
	HasFFIImports   bool `json:"hasFfiImports"`
}

// SecurityFinding is one potential hardcoded secret.
type SecurityFinding struct {
	Line        int                 `json:"line"`
	Pattern     string              `json:"pattern"`
	MatchedText string              `json:"matchedText"`
	Confidence  patterns.Confidence `json:"confidence"`
}

// QualitySignals is the per-file signal bundle. All counts are >= 0.
type QualitySignals struct {
	LineMetrics
	ErrorHandling
	UnsafeAudit
	Markers
	Structure

	PotentialSecrets  []SecurityFinding `json:"potentialSecrets,omitempty"`
	SQLInjectionRisks int               `json:"sqlInjectionRisks"`

	IsGenerated          bool `json:"isGenerated"`
	IsProtobufGenerated  bool `json:"isProtobufGenerated"`
	MissingDocumentation bool `json:"missingDocumentation"`

	// Supplied by an external TODO source, never computed here.
	HighPriorityTodos   int `json:"highPriorityTodos,omitempty"`
	MediumPriorityTodos int `json:"mediumPriorityTodos,omitempty"`
	LowPriorityTodos    int `json:"lowPriorityTodos,omitempty"`
	TodoSourceTotal     int `json:"todoSourceTotal,omitempty"`
}

// HasErrorHandling reports whether any error-handling operator was seen.
func (s QualitySignals) HasErrorHandling() bool { return s.Operators() > 0 }

// UnwrapDensity is unwrap calls per 100 code lines.
func (s QualitySignals) UnwrapDensity() float64 {
	return float64(s.UnwrapCount) * 100 / float64(max(s.CodeLines, 1))
}

// Clone returns a copy that shares no slices with s.
func (s QualitySignals) Clone() QualitySignals {
	c := s
	c.PotentialSecrets = slices.Clone(s.PotentialSecrets)
	return c
}

// Extractor computes QualitySignals. It is safe for concurrent use.
type Extractor struct {
	cfg   Config
	table *patterns.Table
}

// NewExtractor validates cfg. A nil table selects the built-in patterns.
func NewExtractor(cfg Config, table *patterns.Table) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = patterns.Default()
	}
	return &Extractor{cfg: cfg, table: table}, nil
}

// Config returns the extractor settings.
func (e *Extractor) Config() Config { return e.cfg }

// Table returns the pattern table in use.
func (e *Extractor) Table() *patterns.Table { return e.table }

// Extract computes the full signal bundle for content.
func (e *Extractor) Extract(content string, l lang.Language) QualitySignals {
	if content == "" || LooksBinary(content) {
		return QualitySignals{}
	}
	lines := lang.Lex(content, l)

	var s QualitySignals
	s.LineMetrics = CountLines(content, lines)
	s.ErrorHandling = e.AuditErrorHandling(lines, l)
	s.UnsafeAudit = e.AuditUnsafe(lines, l)
	s.PotentialSecrets, s.SQLInjectionRisks = e.ScanSecurity(lines, l)
	s.Markers = e.CountMarkers(lines, l)
	s.Structure = e.AnalyzeStructure(lines, l)
	s.IsGenerated, s.IsProtobufGenerated = e.DetectGenerated(lines)
	s.MissingDocumentation = s.CommentLines == 0 && s.TotalLines > e.cfg.DocMinLines
	return s
}

// LooksBinary reports content that should not be treated as text.
func LooksBinary(content string) bool {
	return strings.IndexByte(content, 0) >= 0 || !utf8.ValidString(content)
}

func view(ln lang.Line, t patterns.Target) string {
	switch t {
	case patterns.TargetRaw:
		return ln.Text
	case patterns.TargetComment:
		return ln.Comment
	default:
		return ln.Code
	}
}

func count(ps []patterns.Pattern, ln lang.Line) int {
	n := 0
	for _, p := range ps {
		if v := view(ln, p.Target); v != "" {
			n += len(p.Expr.FindAllStringIndex(v, -1))
		}
	}
	return n
}

// firstMatch returns the first pattern in ps matching ln and the matched text.
func firstMatch(ps []patterns.Pattern, ln lang.Line) (patterns.Pattern, string, bool) {
	for _, p := range ps {
		v := view(ln, p.Target)
		if v == "" {
			continue
		}
		if loc := p.Expr.FindStringIndex(v); loc != nil {
			return p, v[loc[0]:loc[1]], true
		}
	}
	return patterns.Pattern{}, "", false
}
