package patterns

import (
	"fmt"
	"regexp"

	"github.com/dshills/sieve/internal/lang"
)

// Category groups patterns by the signal they feed.
type Category string

const (
	// Error handling buckets.
	CategoryUnwrap    Category = "unwrap"
	CategoryExpect    Category = "expect"
	CategoryPanic     Category = "panic"
	CategoryPropagate Category = "propagate"
	CategoryFallback  Category = "fallback"

	CategoryUnsafe        Category = "unsafe"
	CategorySafetyComment Category = "safety_comment"
	CategoryTestBoundary  Category = "test_boundary"

	CategorySecret Category = "secret"
	CategorySQL    Category = "sql_injection"
	CategoryRedact Category = "redact"

	CategoryFunction  Category = "function"
	CategoryPublic    Category = "public_api"
	CategoryImport    Category = "import"
	CategoryFFI       Category = "ffi"
	CategoryDecision  Category = "decision"
	CategoryMarker    Category = "marker"
	CategoryGenerated Category = "generated"
	CategoryProtobuf  Category = "protobuf"
)

// Severity ranks how much a match matters to a reviewer.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Confidence is how likely a match is a true positive.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Confidence) UnmarshalText(b []byte) error {
	v, err := ParseConfidence(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseConfidence maps "low", "medium" or "high" to a Confidence.
func ParseConfidence(s string) (Confidence, error) {
	switch s {
	case "low":
		return ConfidenceLow, nil
	case "medium":
		return ConfidenceMedium, nil
	case "high":
		return ConfidenceHigh, nil
	}
	return ConfidenceLow, fmt.Errorf("unknown confidence %q", s)
}

// Target selects which view of a line a pattern is matched against.
type Target int

const (
	// TargetCode matches code with comments removed and string contents elided.
	TargetCode Target = iota
	// TargetRaw matches the raw line text.
	TargetRaw
	// TargetComment matches comment text only.
	TargetComment
)

// Pattern is one detection rule.
type Pattern struct {
	Name       string
	Category   Category
	Severity   Severity
	Confidence Confidence
	// Weight scales decision patterns in the complexity estimate.
	Weight int
	Target Target
	// Languages limits the pattern; nil applies it everywhere.
	Languages []lang.Language
	Expr      *regexp.Regexp
}

// AppliesTo reports whether p is used for l.
func (p Pattern) AppliesTo(l lang.Language) bool {
	if len(p.Languages) == 0 {
		return true
	}
	for _, x := range p.Languages {
		if x == l {
			return true
		}
	}
	return false
}

// Table is an immutable, indexed set of patterns.
type Table struct {
	all   []Pattern
	index map[key][]Pattern
}

type key struct {
	cat  Category
	lang lang.Language
}

// NewTable indexes patterns by category and language.
func NewTable(ps []Pattern) *Table {
	t := &Table{all: append([]Pattern(nil), ps...), index: make(map[key][]Pattern)}
	langs := append([]lang.Language{lang.Unknown}, lang.All...)
	for _, p := range t.all {
		for _, l := range langs {
			if p.AppliesTo(l) {
				k := key{p.Category, l}
				t.index[k] = append(t.index[k], p)
			}
		}
	}
	return t
}

var defaultTable = NewTable(builtin)

// Default returns the built-in table.
func Default() *Table { return defaultTable }

// All returns every pattern in table order.
func (t *Table) All() []Pattern { return t.all }

// For returns the patterns of category c that apply to l, in table order.
func (t *Table) For(c Category, l lang.Language) []Pattern {
	return t.index[key{c, l}]
}

// With returns a new table holding t's patterns followed by extra.
func (t *Table) With(extra ...Pattern) *Table {
	return NewTable(append(append([]Pattern(nil), t.all...), extra...))
}

// Compile builds a custom pattern, reporting invalid expressions.
func Compile(name string, cat Category, sev Severity, conf Confidence, expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", name, err)
	}
	target := TargetCode
	if cat == CategorySecret || cat == CategorySQL || cat == CategoryFFI {
		target = TargetRaw
	}
	return Pattern{Name: name, Category: cat, Severity: sev, Confidence: conf, Weight: 1, Target: target, Expr: re}, nil
}
