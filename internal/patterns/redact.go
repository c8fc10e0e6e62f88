package patterns

import (
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

const placeholder = "[REDACTED]"

// valueKeep is how many leading runes of a secret value survive in a
// finding. At most half of the value is ever kept.
const valueKeep = 4

// assignment splits "name = 'value'" style matches at the value.
var assignment = regexp.MustCompile(`^(.*?(?::=|=>|[:=])\s*["'` + "`" + `]?)(.+)$`)

// Redact replaces every secret-shaped match in text with [REDACTED].
func (t *Table) Redact(text string) string {
	result := text
	for _, p := range t.all {
		if p.Category != CategorySecret && p.Category != CategoryRedact {
			continue
		}
		result = p.Expr.ReplaceAllLiteralString(result, placeholder)
	}
	return result
}

// Redact applies the default table's redaction to text.
func Redact(text string) string { return defaultTable.Redact(text) }

// RedactMatch masks a matched secret for findings. An assignment keeps its
// identifier; the value keeps at most valueKeep runes and never more than
// half of itself.
func RedactMatch(match string) string {
	prefix, value := "", match
	if m := assignment.FindStringSubmatch(match); m != nil {
		prefix, value = m[1], m[2]
	}
	r := []rune(value)
	return prefix + string(r[:min(valueKeep, len(r)/2)]) + placeholder
}

// ShouldRedactPath reports whether path matches any of the doublestar globs.
// Patterns are also tried against the base name so "*.pem" catches nested files.
func ShouldRedactPath(path string, globs []string) bool {
	path = filepath.ToSlash(path)
	for _, g := range globs {
		if ok, err := doublestar.Match(g, path); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(g, filepath.Base(path)); err == nil && ok {
			return true
		}
	}
	return false
}

// Content withholds the whole file when its path matches redactPaths and
// otherwise redacts secrets inline.
func (t *Table) Content(content, path string, redactPaths []string) string {
	if ShouldRedactPath(path, redactPaths) {
		return placeholder + " (file content redacted by path policy)\n"
	}
	return t.Redact(content)
}
