package signals

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/patterns"
)

// CountLines computes line and size metrics.
func CountLines(content string, lines []lang.Line) LineMetrics {
	m := LineMetrics{
		CharCount:  utf8.RuneCountInString(content),
		TotalLines: len(lines),
	}
	for _, ln := range lines {
		switch {
		case ln.Blank():
			m.BlankLines++
		case ln.IsComment():
			m.CommentLines++
		default:
			m.CodeLines++
		}
	}
	if m.TotalLines > 0 {
		m.AvgLineLength = float64(m.CharCount) / float64(m.TotalLines)
	}
	return m
}

// AuditErrorHandling counts error-handling operators in code text. Panic-prone
// operators after a test-module boundary are not counted.
func (e *Extractor) AuditErrorHandling(lines []lang.Line, l lang.Language) ErrorHandling {
	var (
		unwrap    = e.table.For(patterns.CategoryUnwrap, l)
		expect    = e.table.For(patterns.CategoryExpect, l)
		panics    = e.table.For(patterns.CategoryPanic, l)
		propagate = e.table.For(patterns.CategoryPropagate, l)
		fallback  = e.table.For(patterns.CategoryFallback, l)
		boundary  = e.table.For(patterns.CategoryTestBoundary, l)
	)
	var h ErrorHandling
	inTests := false
	for _, ln := range lines {
		if !inTests && len(boundary) > 0 {
			if _, _, ok := firstMatch(boundary, ln); ok && !ln.IsComment() {
				inTests = true
			}
		}
		if !ln.IsCode() {
			continue
		}
		if !inTests {
			h.UnwrapCount += count(unwrap, ln)
			h.ExpectCount += count(expect, ln)
			h.PanicCount += count(panics, ln)
		}
		h.PropagateCount += count(propagate, ln)
		h.FallbackCount += count(fallback, ln)
	}
	if total := h.Operators(); total > 0 {
		h.ErrorHandlingRatio = float64(h.PropagateCount+h.FallbackCount) / float64(total)
	}
	return h
}

// AuditUnsafe finds lines that open unsafe regions and checks the
// configured window above each (and the line itself) for a SAFETY: comment.
func (e *Extractor) AuditUnsafe(lines []lang.Line, l lang.Language) UnsafeAudit {
	markers := e.table.For(patterns.CategoryUnsafe, l)
	if len(markers) == 0 {
		return UnsafeAudit{}
	}
	safety := e.table.For(patterns.CategorySafetyComment, l)
	var a UnsafeAudit
	for i, ln := range lines {
		if !ln.IsCode() {
			continue
		}
		if _, _, ok := firstMatch(markers, ln); !ok {
			continue
		}
		a.UnsafeBlocks++
		if e.hasSafetyComment(lines, i, safety) {
			a.UnsafeWithSafetyComment++
		} else {
			a.UnsafeWithoutSafetyComment++
		}
	}
	return a
}

func (e *Extractor) hasSafetyComment(lines []lang.Line, at int, safety []patterns.Pattern) bool {
	start := max(at-e.cfg.SafetyCommentWindow, 0)
	for j := start; j <= at; j++ {
		if lines[j].Comment == "" {
			continue
		}
		if _, _, ok := firstMatch(safety, lines[j]); ok {
			return true
		}
	}
	return false
}

var placeholderWords = []string{"test", "example", "placeholder", "changeme", "dummy", "sample", "fake", "xxx"}

// ScanSecurity reports potential secrets (at most one per line) and the
// number of lines building SQL from formatted or concatenated strings.
// Comment-only lines are skipped.
func (e *Extractor) ScanSecurity(lines []lang.Line, l lang.Language) ([]SecurityFinding, int) {
	secrets := e.table.For(patterns.CategorySecret, l)
	sql := e.table.For(patterns.CategorySQL, l)
	var (
		findings []SecurityFinding
		sqlRisks int
	)
	for _, ln := range lines {
		if ln.Blank() || ln.IsComment() {
			continue
		}
		if p, m, ok := firstMatch(secrets, ln); ok {
			conf := p.Confidence
			if p.Name == "password" && containsAny(strings.ToLower(ln.Text), placeholderWords) {
				conf = patterns.ConfidenceLow
			}
			findings = append(findings, SecurityFinding{
				Line:        ln.Number,
				Pattern:     p.Name,
				MatchedText: patterns.RedactMatch(m),
				Confidence:  conf,
			})
		}
		if _, _, ok := firstMatch(sql, ln); ok {
			sqlRisks++
		}
	}
	return findings, sqlRisks
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// CountMarkers counts TODO, FIXME, HACK and XXX in comment text. Each kind
// counts at most once per line.
func (e *Extractor) CountMarkers(lines []lang.Line, l lang.Language) Markers {
	var m Markers
	ps := e.table.For(patterns.CategoryMarker, l)
	for _, ln := range lines {
		if ln.Comment == "" {
			continue
		}
		for _, p := range ps {
			if !p.Expr.MatchString(view(ln, p.Target)) {
				continue
			}
			switch p.Name {
			case "todo":
				m.TodoCount++
			case "fixme":
				m.FixmeCount++
			case "hack":
				m.HackCount++
			case "xxx":
				m.XXXCount++
			}
		}
	}
	return m
}

// AnalyzeStructure counts functions, weighs decision points into a
// complexity estimate, measures nesting in one pass, and detects public
// API, imports and FFI.
func (e *Extractor) AnalyzeStructure(lines []lang.Line, l lang.Language) Structure {
	var (
		fns       = e.table.For(patterns.CategoryFunction, l)
		decisions = e.table.For(patterns.CategoryDecision, l)
		public    = e.table.For(patterns.CategoryPublic, l)
		imports   = e.table.For(patterns.CategoryImport, l)
		ffi       = e.table.For(patterns.CategoryFFI, l)
	)
	var s Structure
	weighted := 0
	inImportGroup := false
	for _, ln := range lines {
		if !ln.IsCode() {
			continue
		}
		if _, _, ok := firstMatch(fns, ln); ok {
			s.FunctionCount++
		}
		for _, p := range decisions {
			weighted += p.Weight * len(p.Expr.FindAllStringIndex(view(ln, p.Target), -1))
		}
		if !s.HasPublicAPI {
			_, _, s.HasPublicAPI = firstMatch(public, ln)
		}
		if !s.HasFFIImports {
			_, _, s.HasFFIImports = firstMatch(ffi, ln)
		}

		code := strings.TrimSpace(ln.Code)
		switch {
		case inImportGroup && strings.HasPrefix(code, ")"):
			inImportGroup = false
		case inImportGroup:
			s.ImportCount++
		case l == lang.Go && strings.HasPrefix(code, "import ("):
			inImportGroup = true
		default:
			if _, _, ok := firstMatch(imports, ln); ok {
				s.ImportCount++
			}
		}
	}
	s.Complexity = s.FunctionCount + weighted
	s.MaxNestingDepth = e.MaxNesting(lines, l)
	return s
}

// MaxNesting tracks brace depth over code text for brace languages and
// indentation depth otherwise, capped at the configured limit.
func (e *Extractor) MaxNesting(lines []lang.Line, l lang.Language) int {
	deepest := 0
	if l.Syntax().Braces {
		depth := 0
		for _, ln := range lines {
			for i := 0; i < len(ln.Code); i++ {
				switch ln.Code[i] {
				case '{':
					depth++
					deepest = max(deepest, depth)
				case '}':
					depth = max(depth-1, 0)
				}
			}
		}
	} else {
		for _, ln := range lines {
			if !ln.IsCode() || ln.InString {
				continue
			}
			deepest = max(deepest, e.indentLevel(ln.Text))
		}
	}
	return min(deepest, e.cfg.NestingCap)
}

func (e *Extractor) indentLevel(s string) int {
	spaces, tabs := 0, 0
	for _, r := range s {
		switch r {
		case ' ':
			spaces++
		case '\t':
			tabs++
		default:
			return tabs + spaces/e.cfg.IndentWidth
		}
	}
	return tabs + spaces/e.cfg.IndentWidth
}

// DetectGenerated checks the file header for generated-code markers.
// Protobuf output is reported only alongside a generated marker or a
// derive attribute.
func (e *Extractor) DetectGenerated(lines []lang.Line) (generated, protobuf bool) {
	n := min(len(lines), e.cfg.GeneratedHeaderLines)
	var header strings.Builder
	for _, ln := range lines[:n] {
		header.WriteString(ln.Text)
		header.WriteByte('\n')
	}
	h := header.String()
	for _, p := range e.table.For(patterns.CategoryGenerated, lang.Unknown) {
		if p.Expr.MatchString(h) {
			generated = true
			break
		}
	}
	for _, p := range e.table.For(patterns.CategoryProtobuf, lang.Unknown) {
		if p.Expr.MatchString(h) {
			protobuf = generated || strings.Contains(h, "#[derive(")
			break
		}
	}
	return generated, protobuf
}
