package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/signals"
)

// HashBody returns the SHA-256 hex digest of body after normalizing line
// endings and trailing whitespace.
func HashBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t\r")
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.Join(lines, "\n"))))
	return hex.EncodeToString(sum[:])
}

func (c *Chunker) build(f *file, s span, ctx *fileContext, n int) Chunk {
	body := joinText(f.lines[s.decl : s.end+1])
	doc := joinText(f.lines[s.attach:s.decl])
	content := body
	if doc != "" {
		content = doc + "\n" + body
	}
	name := s.name
	if s.kind == KindParagraph {
		name = fmt.Sprintf("block_%d", n)
	}

	hash := HashBody(body)
	sig := c.ex.Extract(body, f.lang)
	lines := s.end - s.attach + 1
	ch := Chunk{
		ContentHash:  hash,
		RepoID:       f.repoID,
		Path:         f.path,
		Language:     f.lang,
		StartLine:    s.attach + 1,
		EndLine:      s.end + 1,
		StartByte:    f.starts[s.attach],
		EndByte:      f.ends[s.end],
		Kind:         s.kind,
		Name:         name,
		Doc:          doc,
		Content:      content,
		Visibility:   visibility(f.lang, f.lines[s.decl].Code, s.name),
		Complexity:   complexityScore(s.bodyLines(), sig),
		ParentModule: ctx.module,
		Imports:      usedImports(ctx.imports, body),
		WordCount:    len(strings.Fields(content)),
	}
	if ctx.lines > 0 {
		ch.ComplexityShare = float64(ctx.complexity) * float64(lines) / float64(ctx.lines)
	}
	if isTest(f.lang, s, doc) {
		ch.IsTest = true
		if s.kind == KindFunction || s.kind == KindMethod || s.kind == KindModule {
			ch.Kind = KindTest
		}
	}
	ch.ID = ChunkID(f.repoID, f.path, ch.StartLine, ch.EndLine, hash)
	return ch
}

// fileContext holds the file-wide facts every chunk of a file shares.
type fileContext struct {
	module     string
	imports    []string
	complexity int
	lines      int
}

func (c *Chunker) context(f *file, content string) *fileContext {
	sig := c.ex.Extract(content, f.lang)
	return &fileContext{
		module:     parentModule(f),
		imports:    fileImports(f),
		complexity: sig.Complexity,
		lines:      len(f.lines),
	}
}

func joinText(lines []lang.Line) string {
	parts := make([]string, len(lines))
	for i, ln := range lines {
		parts[i] = ln.Text
	}
	return strings.Join(parts, "\n")
}

// complexityScore combines size, branching, nesting and panic-prone calls.
func complexityScore(lines int, s signals.QualitySignals) float64 {
	decisions := max(0, s.Complexity-s.FunctionCount)
	risky := s.UnwrapCount + s.ExpectCount + s.PanicCount + s.UnsafeBlocks
	score := min(float64(lines)/200, 0.3) +
		min(float64(decisions)/20, 0.3) +
		min(float64(s.MaxNestingDepth)/8, 0.2) +
		min(float64(risky)/10, 0.2)
	return min(score, 1)
}

var (
	rustVisRe = regexp.MustCompile(`^\s*pub\b(\s*\()?`)
	modRe     = regexp.MustCompile(`\b(public|export|open|private|protected|internal|fileprivate)\b`)
	cStaticRe = regexp.MustCompile(`^\s*static\b`)
)

func visibility(l lang.Language, code, name string) Visibility {
	switch l {
	case lang.Rust:
		m := rustVisRe.FindStringSubmatch(code)
		switch {
		case m == nil:
			return Unknown
		case m[1] != "":
			return Private
		}
		return Public
	case lang.Go:
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		for _, r := range name {
			if unicode.IsUpper(r) {
				return Public
			}
			return Private
		}
		return Unknown
	case lang.Python:
		if i := strings.LastIndex(name, "::"); i >= 0 {
			name = name[i+2:]
		}
		if strings.HasPrefix(name, "_") && !strings.HasSuffix(name, "__") {
			return Private
		}
		return Unknown
	case lang.C, lang.Cpp:
		if cStaticRe.MatchString(code) {
			return Private
		}
		return Unknown
	}
	prefix := code
	if i := strings.IndexAny(code, "({=:"); i >= 0 {
		prefix = code[:i]
	}
	if strings.Contains(prefix, "#") && (l == lang.TypeScript || l == lang.JavaScript) {
		return Private
	}
	switch modRe.FindString(prefix) {
	case "public", "export", "open":
		return Public
	case "private", "protected", "internal", "fileprivate":
		return Private
	}
	return Unknown
}

var (
	packageRe = regexp.MustCompile(`^\s*package\s+([\w.]+)`)
	rustUseRe = regexp.MustCompile(`^\s*(?:pub(?:\s*\([^)]*\))?\s+)?use\s+([^;]+)`)
	goPathRe  = regexp.MustCompile(`^\s*(?:import\s+)?(?:\(\s*)?(\w+\s+)?"([^"]+)"`)
	pyFromRe  = regexp.MustCompile(`^\s*from\s+\S+\s+import\s+\(?([^)#]+)`)
	pyImpRe   = regexp.MustCompile(`^\s*import\s+([^#]+)`)
	jsFromRe  = regexp.MustCompile(`^\s*import\s+(?:type\s+)?(.+?)\s+from\b`)
	jvmImpRe  = regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+)`)
	identRe   = regexp.MustCompile(`[A-Za-z_]\w*`)
)

// parentModule names the module a file's chunks belong to.
func parentModule(f *file) string {
	switch f.lang {
	case lang.Go, lang.Kotlin, lang.Java:
		for _, ln := range f.lines {
			if m := packageRe.FindStringSubmatch(ln.Code); m != nil {
				return m[1]
			}
		}
		return ""
	case lang.Rust:
		p := path.Clean(strings.ReplaceAll(f.path, "\\", "/"))
		if i := strings.LastIndex(p, "src/"); i >= 0 {
			p = p[i+len("src/"):]
		}
		p = strings.TrimSuffix(p, ".rs")
		parts := []string{"crate"}
		for _, seg := range strings.Split(p, "/") {
			switch seg {
			case "lib", "main", "mod", "":
				continue
			}
			parts = append(parts, seg)
		}
		return strings.Join(parts, "::")
	case lang.Python:
		p := strings.TrimSuffix(path.Clean(strings.ReplaceAll(f.path, "\\", "/")), ".py")
		p = strings.TrimSuffix(strings.TrimSuffix(p, "__init__"), "/")
		return strings.ReplaceAll(strings.TrimPrefix(p, "./"), "/", ".")
	}
	return ""
}

// fileImports collects the last segment of every name a file imports.
func fileImports(f *file) []string {
	var out []string
	inGroup := false
	for _, ln := range f.lines {
		text := strings.TrimSpace(ln.Text)
		if f.lang == lang.Go {
			switch {
			case strings.HasPrefix(text, "import ("):
				inGroup = true
				continue
			case inGroup && text == ")":
				inGroup = false
				continue
			}
			if inGroup || strings.HasPrefix(text, "import ") {
				if m := goPathRe.FindStringSubmatch(text); m != nil {
					if alias := strings.TrimSpace(m[1]); alias != "" && alias != "_" {
						out = append(out, alias)
					} else {
						out = append(out, path.Base(m[2]))
					}
				}
			}
			continue
		}
		out = append(out, importNames(f.lang, text)...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func importNames(l lang.Language, text string) []string {
	switch l {
	case lang.Rust:
		m := rustUseRe.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		return lastSegments(m[1], "::")
	case lang.Python:
		if m := pyFromRe.FindStringSubmatch(text); m != nil {
			return lastSegments(m[1], ".")
		}
		if m := pyImpRe.FindStringSubmatch(text); m != nil {
			return lastSegments(m[1], ".")
		}
	case lang.TypeScript, lang.JavaScript:
		if m := jsFromRe.FindStringSubmatch(text); m != nil {
			return lastSegments(m[1], ".")
		}
	case lang.Kotlin, lang.Java:
		if m := jvmImpRe.FindStringSubmatch(text); m != nil {
			return lastSegments(m[1], ".")
		}
	}
	return nil
}

// lastSegments splits an import clause on braces and commas and returns
// each item's final path segment, preferring an "as" alias.
func lastSegments(clause, sep string) []string {
	clause = strings.NewReplacer("{", ",", "}", ",", "*", "").Replace(clause)
	var out []string
	for item := range strings.SplitSeq(clause, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if i := strings.LastIndex(item, " as "); i >= 0 {
			item = item[i+len(" as "):]
		}
		if i := strings.LastIndex(item, sep); i >= 0 {
			item = item[i+len(sep):]
		}
		if id := identRe.FindString(item); id != "" && id != "self" {
			out = append(out, id)
		}
	}
	return out
}

// usedImports keeps the imports that appear as whole words in body.
func usedImports(imports []string, body string) []string {
	var out []string
	for _, name := range imports {
		if containsWord(body, name) {
			out = append(out, name)
		}
	}
	return out
}

func containsWord(s, word string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isIdent(s[start-1])) && (end == len(s) || !isIdent(s[end])) {
			return true
		}
		i = end
	}
}

func isIdent(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

var (
	testAttrRe = regexp.MustCompile(`#\[(?:\w+::)*test\b|#\[cfg\(test\)\]|#\[rstest\b|@Test\b|@ParameterizedTest\b|@pytest\.`)
	goTestRe   = regexp.MustCompile(`^(?:Test|Benchmark|Fuzz|Example)(?:[A-Z_]|$)`)
)

// isTest reports whether a span declares a test or test module.
func isTest(l lang.Language, s span, doc string) bool {
	if s.kind == KindTest || testAttrRe.MatchString(doc) {
		return true
	}
	name := s.name
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	switch l {
	case lang.Rust:
		return s.kind == KindModule && name == "tests"
	case lang.Go:
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		return (s.kind == KindFunction || s.kind == KindMethod) && goTestRe.MatchString(name)
	case lang.Python:
		switch s.kind {
		case KindFunction, KindMethod:
			return strings.HasPrefix(name, "test")
		case KindClass:
			return strings.HasPrefix(name, "Test")
		}
	}
	return false
}

// linkTests marks chunks whose simple name appears in a test chunk's name.
func linkTests(chunks []Chunk) {
	var tests []string
	for _, c := range chunks {
		if c.IsTest {
			tests = append(tests, strings.ToLower(c.Name))
		}
	}
	if len(tests) == 0 {
		return
	}
	for i := range chunks {
		if chunks[i].IsTest {
			continue
		}
		name := simpleName(chunks[i].Name)
		if len(name) < 3 {
			continue
		}
		for _, t := range tests {
			if strings.Contains(t, name) {
				chunks[i].HasTests = true
				break
			}
		}
	}
}

func simpleName(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}
