package signals

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/patterns"
)

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(DefaultConfig(), nil)
	require.NoError(t, err)
	return e
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative window", func(c *Config) { c.SafetyCommentWindow = -1 }},
		{"zero doc lines", func(c *Config) { c.DocMinLines = 0 }},
		{"zero header", func(c *Config) { c.GeneratedHeaderLines = 0 }},
		{"zero nesting cap", func(c *Config) { c.NestingCap = 0 }},
		{"zero indent", func(c *Config) { c.IndentWidth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			_, err = NewExtractor(cfg, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestExtractZeroForBinaryAndEmpty(t *testing.T) {
	e := newExtractor(t)
	assert.Equal(t, QualitySignals{}, e.Extract("", lang.Rust))
	assert.Equal(t, QualitySignals{}, e.Extract("abc\x00def", lang.Rust))
	assert.Equal(t, QualitySignals{}, e.Extract("bad \xff\xfe utf8", lang.Go))
}

func TestCountLines(t *testing.T) {
	src := "// c\n\nfn a() {}\n"
	m := CountLines(src, lang.Lex(src, lang.Rust))
	assert.Equal(t, 3, m.TotalLines)
	assert.Equal(t, 1, m.CommentLines)
	assert.Equal(t, 1, m.BlankLines)
	assert.Equal(t, 1, m.CodeLines)
	assert.Equal(t, len(src), m.CharCount)
}

func TestAuditErrorHandlingRust(t *testing.T) {
	src := `fn a() -> Result<(), E> {
    let x = f()?;
    let y = g().unwrap();
    let z = h().unwrap_or(0);
    let s = "call .unwrap() later";
    Ok(())
}
`
	e := newExtractor(t)
	h := e.AuditErrorHandling(lang.Lex(src, lang.Rust), lang.Rust)
	assert.Equal(t, 1, h.UnwrapCount)
	assert.Equal(t, 1, h.PropagateCount)
	assert.Equal(t, 1, h.FallbackCount)
	assert.InDelta(t, 2.0/3.0, h.ErrorHandlingRatio, 1e-9)
}

func TestAuditErrorHandlingStopsAtTestModule(t *testing.T) {
	src := `fn a() { x.unwrap(); }

#[cfg(test)]
mod tests {
    fn t() { y.unwrap(); }
}
`
	e := newExtractor(t)
	h := e.AuditErrorHandling(lang.Lex(src, lang.Rust), lang.Rust)
	assert.Equal(t, 1, h.UnwrapCount)
}

func TestRatioZeroWithoutOperators(t *testing.T) {
	s := newExtractor(t).Extract("fn a() {}\n", lang.Rust)
	assert.Zero(t, s.ErrorHandlingRatio)
	assert.False(t, s.HasErrorHandling())
}

func TestAuditUnsafe(t *testing.T) {
	e := newExtractor(t)

	bare := "fn read(p: *const u8) -> u8 {\n    unsafe { ptr::read(p) }\n}\n"
	a := e.AuditUnsafe(lang.Lex(bare, lang.Rust), lang.Rust)
	assert.Equal(t, UnsafeAudit{UnsafeBlocks: 1, UnsafeWithoutSafetyComment: 1}, a)

	mixed := `fn read(p: *const u8) -> u8 {
    // SAFETY: caller guarantees p is valid
    unsafe { ptr::read(p) }
}
fn other(p: *const u8) -> u8 {
    unsafe { ptr::read(p) }
}
`
	a = e.AuditUnsafe(lang.Lex(mixed, lang.Rust), lang.Rust)
	assert.Equal(t, UnsafeAudit{UnsafeBlocks: 2, UnsafeWithSafetyComment: 1, UnsafeWithoutSafetyComment: 1}, a)

	commented := "// unsafe { never runs }\nfn a() {}\n"
	a = e.AuditUnsafe(lang.Lex(commented, lang.Rust), lang.Rust)
	assert.Zero(t, a.UnsafeBlocks)
}

func TestAuditUnsafeWindow(t *testing.T) {
	src := "// SAFETY: far away\n\n\n\nunsafe { x() }\n"
	cfg := DefaultConfig()

	e, err := NewExtractor(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.AuditUnsafe(lang.Lex(src, lang.Rust), lang.Rust).UnsafeWithoutSafetyComment)

	cfg.SafetyCommentWindow = 4
	e, err = NewExtractor(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.AuditUnsafe(lang.Lex(src, lang.Rust), lang.Rust).UnsafeWithSafetyComment)
}

func TestScanSecurity(t *testing.T) {
	src := `API_KEY = "abcd1234efgh5678ijkl"
password = "changeme"
# password = "commentedout1"
query = f"SELECT * FROM users WHERE id = {uid}"
name = "api_key"
`
	e := newExtractor(t)
	findings, sql := e.ScanSecurity(lang.Lex(src, lang.Python), lang.Python)
	require.Len(t, findings, 2)

	assert.Equal(t, 1, findings[0].Line)
	assert.Equal(t, "api_key", findings[0].Pattern)
	assert.Equal(t, patterns.ConfidenceHigh, findings[0].Confidence)

	assert.Equal(t, 2, findings[1].Line)
	assert.Equal(t, "password", findings[1].Pattern)
	assert.Equal(t, patterns.ConfidenceLow, findings[1].Confidence)

	assert.Equal(t, 1, sql)
}

func TestFindingsNeverCarryLiteral(t *testing.T) {
	src := `let password = "hunter2-prod-db";
let api_key = "AbCdEf0123456789";
`
	s := newExtractor(t).Extract(src, lang.Rust)
	require.Len(t, s.PotentialSecrets, 2)
	for _, f := range s.PotentialSecrets {
		assert.Contains(t, f.MatchedText, "[REDACTED]")
		assert.NotContains(t, f.MatchedText, "hunter2-prod-db")
		assert.NotContains(t, f.MatchedText, "AbCdEf0123456789")
	}
	assert.True(t, strings.HasPrefix(s.PotentialSecrets[0].MatchedText, "password"))
}

func TestScanSecurityRequiresBothHalves(t *testing.T) {
	e := newExtractor(t)
	src := `const literal = "0123456789abcdef0123456789abcdef";
const token = process.env.TOKEN;
const q = "SELECT * FROM users";
`
	findings, sql := e.ScanSecurity(lang.Lex(src, lang.JavaScript), lang.JavaScript)
	assert.Empty(t, findings)
	assert.Zero(t, sql)
}

func TestCountMarkersOnlyInComments(t *testing.T) {
	src := `package x

// TODO: handle this
// FIXME broken; XXX also
var s = "TODO in a string"
func f() {} // HACK
`
	m := newExtractor(t).CountMarkers(lang.Lex(src, lang.Go), lang.Go)
	assert.Equal(t, Markers{TodoCount: 1, FixmeCount: 1, HackCount: 1, XXXCount: 1}, m)
	assert.Equal(t, 3, m.Risky())
}

func TestAnalyzeStructureGo(t *testing.T) {
	src := `package x

import (
	"fmt"
	"os"
)

func F(a, b int) int {
	if a > 0 && b > 0 {
		for i := 0; i < a; i++ {
			if i%2 == 0 {
				return i
			}
		}
	}
	return 0
}
`
	s := newExtractor(t).AnalyzeStructure(lang.Lex(src, lang.Go), lang.Go)
	assert.Equal(t, 1, s.FunctionCount)
	assert.Equal(t, 5, s.Complexity)
	assert.Equal(t, 4, s.MaxNestingDepth)
	assert.Equal(t, 2, s.ImportCount)
	assert.True(t, s.HasPublicAPI)
	assert.False(t, s.HasFFIImports)
}

func TestAnalyzeStructurePythonIndent(t *testing.T) {
	src := "def f(x):\n    if x:\n        for i in x:\n            print(i)\n"
	s := newExtractor(t).AnalyzeStructure(lang.Lex(src, lang.Python), lang.Python)
	assert.Equal(t, 1, s.FunctionCount)
	assert.Equal(t, 3, s.Complexity)
	assert.Equal(t, 3, s.MaxNestingDepth)
}

func TestNestingIgnoresBracesInStrings(t *testing.T) {
	src := "fn a() {\n    let s = \"{{{{{{\";\n}\n"
	assert.Equal(t, 1, newExtractor(t).MaxNesting(lang.Lex(src, lang.Rust), lang.Rust))
}

func TestNestingCap(t *testing.T) {
	src := strings.Repeat("{", 40) + strings.Repeat("}", 40) + "\n"
	assert.Equal(t, 20, newExtractor(t).MaxNesting(lang.Lex(src, lang.Rust), lang.Rust))
}

func TestFFIDetection(t *testing.T) {
	src := "extern \"C\" {\n    fn abs(x: i32) -> i32;\n}\n"
	s := newExtractor(t).Extract(src, lang.Rust)
	assert.True(t, s.HasFFIImports)
}

func TestDetectGenerated(t *testing.T) {
	e := newExtractor(t)
	src := "// Code generated by mockgen. DO NOT EDIT.\npackage x\n"
	s := e.Extract(src, lang.Go)
	assert.True(t, s.IsGenerated)
	assert.False(t, s.IsProtobufGenerated)

	pb := "// Code generated by protoc-gen-go. DO NOT EDIT.\n// source: api/v1/user.proto\npackage v1\n"
	s = e.Extract(pb, lang.Go)
	assert.True(t, s.IsGenerated)
	assert.True(t, s.IsProtobufGenerated)

	late := strings.Repeat("x = 1\n", 60) + "# @generated\n"
	assert.False(t, e.Extract(late, lang.Python).IsGenerated)
}

func TestMissingDocumentation(t *testing.T) {
	e := newExtractor(t)
	long := strings.Repeat("x = 1\n", 150)
	assert.True(t, e.Extract(long, lang.Python).MissingDocumentation)

	documented := "# module docs\n" + long
	assert.False(t, e.Extract(documented, lang.Python).MissingDocumentation)

	short := strings.Repeat("x = 1\n", 50)
	assert.False(t, e.Extract(short, lang.Python).MissingDocumentation)
}

func TestExtractDeterministicAndBounded(t *testing.T) {
	e := newExtractor(t)
	inputs := map[lang.Language]string{
		lang.Rust:   "fn a() { x.unwrap(); y?; unsafe { z() } }\n// TODO\n",
		lang.Go:     "package x\n\nfunc a() { v, _ := f(); if err != nil { panic(err) } }\n",
		lang.Kotlin: "fun a() { val n = x!!.length ?: 0; y?.z() }\n",
		lang.Python: "def a():\n    try:\n        pass\n    except:\n        sys.exit(1)\n",
	}
	for l, src := range inputs {
		first := e.Extract(src, l)
		second := e.Extract(src, l)
		assert.Equal(t, first, second, l.String())
		assert.GreaterOrEqual(t, first.ErrorHandlingRatio, 0.0)
		assert.LessOrEqual(t, first.ErrorHandlingRatio, 1.0)
	}
}

func TestCloneDoesNotShareFindings(t *testing.T) {
	s := QualitySignals{PotentialSecrets: []SecurityFinding{{Line: 1}}}
	c := s.Clone()
	c.PotentialSecrets[0].Line = 9
	assert.Equal(t, 1, s.PotentialSecrets[0].Line)
}
