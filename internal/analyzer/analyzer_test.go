package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/todo"
)

func newAnalyzer(t *testing.T, mutate ...func(*Thresholds)) *Analyzer {
	t.Helper()
	th := DefaultThresholds()
	for _, m := range mutate {
		m(&th)
	}
	a, err := New(th, nil, nil)
	require.NoError(t, err)
	return a
}

func cleanRust(n int) string {
	var b strings.Builder
	b.WriteString("//! Small helpers.\n\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "fn value_%d() -> u32 { %d }\n", i, i)
	}
	return b.String()
}

func unwrapHeavy(n int) string {
	var b strings.Builder
	b.WriteString("fn load() {\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "    let v%d = fetch(%d).unwrap();\n", i, i)
	}
	b.WriteString("}\n")
	return b.String()
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"negative min lines", func(t *Thresholds) { t.MinCodeLines = -1 }},
		{"small below trivial", func(t *Thresholds) { t.SmallFileLines = 5 }},
		{"ratio above one", func(t *Thresholds) { t.LowErrorRatio = 1.5 }},
		{"zero unwrap density", func(t *Thresholds) { t.UnwrapDensity = 0 }},
		{"zero complexity", func(t *Thresholds) { t.MaxComplexity = 0 }},
		{"zero nesting", func(t *Thresholds) { t.MaxNesting = 0 }},
		{"negative markers", func(t *Thresholds) { t.MaxMarkers = -1 }},
		{"zero todos", func(t *Thresholds) { t.HighPriorityTodos = 0 }},
		{"zero todo density", func(t *Thresholds) { t.TodoDensity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			_, err := New(th, nil, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidThresholds))
		})
	}
}

func TestTinyCleanFileIsSkippedWithoutIssues(t *testing.T) {
	res := newAnalyzer(t).Analyze("src/main.rs", "fn main() {\n    println!(\"hi\");\n}\n")
	assert.Equal(t, Skip, res.Recommendation)
	assert.Equal(t, ReasonTrivial, res.SkipReason)
	assert.Zero(t, res.StaticIssueCount)
	assert.Zero(t, res.EstimatedLLMValue)
}

func TestSmallCleanFileIsMinimal(t *testing.T) {
	res := newAnalyzer(t).Analyze("src/util.rs", cleanRust(20))
	assert.Equal(t, Minimal, res.Recommendation)
	assert.Equal(t, ReasonNone, res.SkipReason)
	assert.Zero(t, res.StaticIssueCount)
	assert.Less(t, res.EstimatedLLMValue, 0.3)
	assert.Equal(t, lang.Rust, res.Language)
}

func TestUnsafeWithoutSafetyCommentIsDeepDive(t *testing.T) {
	src := "use std::ptr;\n\nfn read(p: *const u8) -> u8 {\n    unsafe { ptr::read(p) }\n}\n"
	res := newAnalyzer(t).Analyze("src/raw.rs", src)
	assert.Equal(t, 1, res.Signals.UnsafeWithoutSafetyComment)
	assert.Equal(t, DeepDive, res.Recommendation)
	assert.Contains(t, res.Issues, IssueUnsafeWithoutSafety)
}

func TestUnwrapHeavyFileIsDeepDive(t *testing.T) {
	res := newAnalyzer(t).Analyze("src/load.rs", unwrapHeavy(15))
	assert.Equal(t, 15, res.Signals.UnwrapCount)
	assert.Less(t, res.Signals.ErrorHandlingRatio, 0.3)
	assert.Equal(t, DeepDive, res.Recommendation)
	assert.Greater(t, res.EstimatedLLMValue, 0.8)

	var cats []IssueCategory
	for _, f := range res.RedFlags {
		cats = append(cats, f.Category)
	}
	assert.Contains(t, cats, IssueUnwrapDensity)
	assert.Contains(t, cats, IssueErrorRatio)
}

func TestRedFlagBeatsTrivialSkip(t *testing.T) {
	src := "// FIXME one\n// FIXME two\n// HACK three\nfn a() {}\n"
	res := newAnalyzer(t).Analyze("a.rs", src)
	assert.Equal(t, DeepDive, res.Recommendation)
	assert.Contains(t, res.Issues, IssueMarkers)
}

func TestSecretsAndSQLAreDeepDive(t *testing.T) {
	src := "def connect():\n    password = \"s3cr3t-pass\"\n    q = f\"SELECT * FROM users WHERE id = {uid}\"\n"
	res := newAnalyzer(t).Analyze("db.py", src)
	assert.Equal(t, DeepDive, res.Recommendation)
	assert.Contains(t, res.Issues, IssueSecrets)
	assert.Contains(t, res.Issues, IssueSQLInjection)
}

func TestSkipReasons(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		mutate func(*Thresholds)
		want   SkipReason
	}{
		{"generated marker", "gen/x.rs", "// @generated\n" + unwrapHeavy(15), nil, ReasonGenerated},
		{"generated name", "api/user.pb.go", cleanRust(30), nil, ReasonGenerated},
		{"documentation", "docs/guide.md", "# Guide\n\nSome text.\n", nil, ReasonNonCode},
		{"vendored", "vendor/github.com/x/y/y.go", "package y\n\nfunc A() {}\n", nil, ReasonNonCode},
		{"test only", "pkg/foo_test.go", "package foo\n" + strings.Repeat("var x = 1\n", 30), func(t *Thresholds) { t.SkipTestFiles = true }, ReasonTestOnly},
		{"trivial", "a.go", "package a\n\nfunc A() {}\n", nil, ReasonTrivial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a *Analyzer
			if tt.mutate != nil {
				a = newAnalyzer(t, tt.mutate)
			} else {
				a = newAnalyzer(t)
			}
			res := a.Analyze(tt.path, tt.body)
			assert.Equal(t, Skip, res.Recommendation)
			assert.Equal(t, tt.want, res.SkipReason)
			assert.Contains(t, res.Summary, tt.want.Description())
		})
	}
}

func TestNonCodeWithRedFlagIsNotSkipped(t *testing.T) {
	res := newAnalyzer(t).Analyze("vendor/lib/db.go", "package db\n\nvar q = fmt.Sprintf(\"DELETE FROM t WHERE id = %d\", id)\n")
	assert.Equal(t, DeepDive, res.Recommendation)
}

func TestBinaryContentIsStandard(t *testing.T) {
	res := newAnalyzer(t).Analyze("blob.rs", "\x00\x01\x02")
	assert.Equal(t, Standard, res.Recommendation)
	assert.Zero(t, res.Signals.TotalLines)
}

func TestUnknownLanguageIsNeverMinimal(t *testing.T) {
	res := newAnalyzer(t).Analyze("notes.zz9", strings.Repeat("value one two\n", 20))
	assert.Equal(t, lang.Unknown, res.Language)
	assert.Equal(t, Standard, res.Recommendation)
}

func TestEstimateValueBounds(t *testing.T) {
	var rs []Result
	a := newAnalyzer(t)
	for _, src := range []string{"", cleanRust(20), unwrapHeavy(40), "unsafe { a() }\n// FIXME\n// FIXME\n// XXX\n"} {
		rs = append(rs, a.Analyze("x.rs", src))
	}
	for _, r := range rs {
		assert.GreaterOrEqual(t, r.EstimatedLLMValue, 0.0)
		assert.LessOrEqual(t, r.EstimatedLLMValue, 1.0)
	}
	assert.Equal(t, 1.0, EstimateValue(DeepDive, 9, 9, rs[0].Signals))
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := newAnalyzer(t)
	src := unwrapHeavy(7) + cleanRust(10)
	assert.Equal(t, a.Analyze("x.rs", src), a.Analyze("x.rs", src))
}

type stubSource struct {
	sum todo.Summary
	err error
}

func (s stubSource) Summary(string) (todo.Summary, error) { return s.sum, s.err }

func TestAnalyzeWithTodosUpgradesMinimal(t *testing.T) {
	a := newAnalyzer(t)
	src := cleanRust(20)
	base := a.Analyze("u.rs", src)
	require.Equal(t, Minimal, base.Recommendation)

	res := a.AnalyzeWithTodos("u.rs", src, stubSource{sum: todo.Summary{Total: 4, High: 3, Medium: 1}})
	assert.Equal(t, DeepDive, res.Recommendation)
	assert.Equal(t, base.StaticIssueCount+1, res.StaticIssueCount)
	assert.Contains(t, res.Summary, "UPGRADED")
	assert.Contains(t, res.Summary, "TODO source: 4 items (3 high, 1 medium, 0 low)")
	assert.Equal(t, 3, res.Signals.HighPriorityTodos)
	assert.GreaterOrEqual(t, res.EstimatedLLMValue, 0.8)
}

func TestApplyTodosDoesNotMutateBase(t *testing.T) {
	a := newAnalyzer(t)
	base := a.Analyze("u.rs", cleanRust(20))
	snapshot := base.Clone()
	_ = a.ApplyTodos(base, todo.Summary{Total: 5, High: 5})
	assert.Equal(t, snapshot, base)
}

func TestAnalyzeWithTodosUpgradesTrivialSkip(t *testing.T) {
	a := newAnalyzer(t)
	res := a.AnalyzeWithTodos("a.go", "package a\n\nfunc A() {}\n", stubSource{sum: todo.Summary{Total: 1, Medium: 1}})
	assert.Equal(t, Minimal, res.Recommendation)
	assert.Equal(t, ReasonNone, res.SkipReason)
}

func TestAnalyzeWithTodosKeepsGeneratedSkip(t *testing.T) {
	a := newAnalyzer(t)
	res := a.AnalyzeWithTodos("x.pb.go", "package x\n", stubSource{sum: todo.Summary{Total: 10, High: 10}})
	assert.Equal(t, Skip, res.Recommendation)
	assert.Equal(t, ReasonGenerated, res.SkipReason)
}

func TestAnalyzeWithTodosSourceFailure(t *testing.T) {
	a := newAnalyzer(t)
	src := cleanRust(20)
	res := a.AnalyzeWithTodos("u.rs", src, stubSource{err: errors.New("disk gone")})
	assert.Equal(t, a.Analyze("u.rs", src), res)
}

func TestAnalyzeWithTodosIsMonotonic(t *testing.T) {
	a := newAnalyzer(t)
	files := map[string]string{
		"a.go":  "package a\n",
		"b.rs":  cleanRust(20),
		"c.rs":  unwrapHeavy(15),
		"d.txt": strings.Repeat("words here\n", 200),
	}
	sums := []todo.Summary{
		{},
		{Total: 1, Low: 1},
		{Total: 3, High: 3},
		{Total: 50, High: 20, Medium: 30},
	}
	for path, src := range files {
		base := a.Analyze(path, src)
		for _, s := range sums {
			got := a.AnalyzeWithTodos(path, src, stubSource{sum: s})
			assert.GreaterOrEqual(t, got.Recommendation, base.Recommendation, "%s %+v", path, s)
		}
	}
}

func TestAnalyzeBatchAndReport(t *testing.T) {
	a := newAnalyzer(t)
	files := []File{
		{Path: "gen.pb.go", Content: "package x\n"},
		{Path: "tiny.go", Content: "package t\n"},
		{Path: "util.rs", Content: cleanRust(20)},
		{Path: "load.rs", Content: unwrapHeavy(15)},
	}
	results, err := a.AnalyzeBatch(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, f := range files {
		assert.Equal(t, f.Path, results[i].Path)
	}

	r := NewBatchReport(results)
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Skip)
	assert.Equal(t, 1, r.Minimal)
	assert.Equal(t, 1, r.DeepDive)
	assert.Equal(t, 1, r.SkipReasons[ReasonGenerated])
	assert.Equal(t, 1, r.SkipReasons[ReasonTrivial])
	assert.InDelta(t, 75.0, r.SavingsPercent, 1e-9)
	assert.Contains(t, r.Summary(), "Estimated savings: 75.0%")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.AnalyzeBatch(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyBatchReport(t *testing.T) {
	r := NewBatchReport(nil)
	assert.Zero(t, r.SavingsPercent)
}

func TestParseRecommendation(t *testing.T) {
	for _, r := range []Recommendation{Skip, Minimal, Standard, DeepDive} {
		got, err := ParseRecommendation(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	got, err := ParseRecommendation("deep-dive")
	require.NoError(t, err)
	assert.Equal(t, DeepDive, got)
	_, err = ParseRecommendation("huge")
	assert.Error(t, err)
	assert.True(t, Skip < Minimal && Minimal < Standard && Standard < DeepDive)
}

func TestIsTestOnly(t *testing.T) {
	tests := map[string]bool{
		"src/foo_test.go":      true,
		"tests/integration.rs": true,
		"web/app.spec.ts":      true,
		"pkg/test_utils.py":    true,
		"src/lib.rs":           false,
		"cmd/main.go":          false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsTestOnly(path), path)
	}
}

func TestIsNonCodePath(t *testing.T) {
	assert.True(t, IsNonCodePath("Cargo.lock"))
	assert.True(t, IsNonCodePath("web/package-lock.json"))
	assert.True(t, IsNonCodePath("vendor/github.com/x/y/y.go"))
	assert.False(t, IsNonCodePath("internal/x/y.go"))
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", ContentHash("abc"))
}

func TestStripForPrompt(t *testing.T) {
	src := `//! crate docs
// plain comment

/// doc for a
fn a() {} // trailing
/* block
   comment */
fn b() {}
`
	out, ratio := StripForPrompt(src, lang.Rust)
	assert.Equal(t, "//! crate docs\n/// doc for a\nfn a() {} // trailing\nfn b() {}\n", out)
	assert.Greater(t, ratio, 0.0)
	assert.Less(t, ratio, 1.0)

	jsDoc := "/**\n * Adds.\n */\nfunction add(a, b) { return a + b }\n// gone\n"
	out, _ = StripForPrompt(jsDoc, lang.JavaScript)
	assert.Equal(t, "/**\n * Adds.\n */\nfunction add(a, b) { return a + b }\n", out)
}
