package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/dshills/sieve/internal/lang"
)

var generatedSuffixes = []string{
	".pb.go", ".pb.gw.go", "_pb2.py", "_pb2_grpc.py", ".pb.rs",
	"_generated.go", ".generated.ts", ".g.dart", ".freezed.dart",
	".min.js", ".min.css", "_mock.go", ".designer.cs",
}

// IsGeneratedPath reports generated-file naming conventions, falling back
// to enry's content heuristics.
func IsGeneratedPath(path, content string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, s := range generatedSuffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	if strings.HasPrefix(base, "zz_generated") {
		return true
	}
	return enry.IsGenerated(path, []byte(content))
}

var lockFiles = map[string]bool{
	"go.sum":            true,
	"cargo.lock":        true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"poetry.lock":       true,
	"gemfile.lock":      true,
	"composer.lock":     true,
}

// IsNonCodePath reports vendored, configuration, documentation and lock files.
func IsNonCodePath(path string) bool {
	if lockFiles[strings.ToLower(filepath.Base(path))] {
		return true
	}
	return enry.IsVendor(path) || enry.IsConfiguration(path) || enry.IsDocumentation(path)
}

// IsTestOnly reports paths that by convention hold only tests.
func IsTestOnly(path string) bool {
	p := filepath.ToSlash(path)
	if strings.Contains(p, "/tests/") || strings.Contains(p, "/test/") ||
		strings.HasPrefix(p, "tests/") || strings.HasPrefix(p, "test/") {
		return true
	}
	base := filepath.Base(p)
	for _, s := range []string{"_test.rs", "_test.kt", "_test.go", "_test.py", ".test.ts", ".test.js", ".spec.ts", ".spec.js"} {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	if strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py") {
		return true
	}
	return enry.IsTest(p)
}

// ContentHash is the SHA-256 hex digest of content.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// StripForPrompt drops blank lines and non-doc comments and returns the
// stripped text with the fraction of bytes removed.
func StripForPrompt(content string, l lang.Language) (string, float64) {
	if content == "" {
		return "", 0
	}
	syn := l.Syntax()
	var b strings.Builder
	inDoc := false
	for _, ln := range lang.Lex(content, l) {
		trimmed := strings.TrimSpace(ln.Text)
		switch {
		case ln.Blank():
			continue
		case ln.IsComment():
			if !inDoc && !syn.IsDoc(trimmed) {
				continue
			}
			b.WriteString(ln.Text)
			b.WriteByte('\n')
			closes := syn.BlockEnd != "" && strings.Contains(trimmed, syn.BlockEnd)
			switch {
			case inDoc && closes:
				inDoc = false
			case !inDoc && strings.HasPrefix(trimmed, "/*") && !closes:
				inDoc = true
			}
			continue
		}
		inDoc = false
		b.WriteString(ln.Text)
		b.WriteByte('\n')
	}
	out := b.String()
	reduction := 1 - float64(len(out))/float64(len(content))
	return out, max(reduction, 0)
}
