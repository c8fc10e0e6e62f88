package lang

import "strings"

// Line is one source line split into its code and comment parts.
type Line struct {
	// Number is 1-based.
	Number int
	// Text is the raw line without its line terminator.
	Text string
	// Code is Text with comments removed and string literal contents
	// elided (the quotes are kept, so `"{"` becomes `""`).
	Code string
	// Comment is the text of any comments on the line, markers removed.
	Comment string
	// InString reports the line started inside a multi-line string.
	InString bool
}

// Blank reports whether the line holds only whitespace.
func (l Line) Blank() bool { return strings.TrimSpace(l.Text) == "" }

// IsComment reports whether the line has comment text and no code.
func (l Line) IsComment() bool {
	return !l.Blank() && !l.InString && strings.TrimSpace(l.Code) == ""
}

// IsCode reports whether the line is neither blank nor comment-only.
func (l Line) IsCode() bool { return !l.Blank() && !l.IsComment() }

const (
	modeCode = iota
	modeBlock
	modeString
)

type lexer struct {
	syn     Syntax
	lang    Language
	mode    int
	delim   string
	escapes bool
	multi   bool
}

// SplitLines splits content on \n and drops \r terminators. A trailing
// newline does not produce an extra empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSuffix(ln, "\r")
	}
	return lines
}

// Lex classifies every line of content in one pass, tracking block
// comments and string literals that span lines.
func Lex(content string, l Language) []Line {
	raw := SplitLines(content)
	out := make([]Line, len(raw))
	lx := &lexer{syn: l.Syntax(), lang: l}
	for i, text := range raw {
		out[i] = lx.line(i+1, text)
	}
	return out
}

func (lx *lexer) line(n int, s string) Line {
	ln := Line{Number: n, Text: s, InString: lx.mode == modeString}
	var code, comment strings.Builder
	for i := 0; i < len(s); {
		switch lx.mode {
		case modeBlock:
			if strings.HasPrefix(s[i:], lx.syn.BlockEnd) {
				lx.mode = modeCode
				i += len(lx.syn.BlockEnd)
				continue
			}
			comment.WriteByte(s[i])
			i++
		case modeString:
			if lx.escapes && s[i] == '\\' {
				i += 2
				continue
			}
			if strings.HasPrefix(s[i:], lx.delim) {
				code.WriteString(lx.delim)
				lx.mode = modeCode
				i += len(lx.delim)
				continue
			}
			i++
		default:
			if p, ok := lx.lineComment(s[i:]); ok {
				comment.WriteString(s[i+len(p):])
				i = len(s)
				continue
			}
			if lx.syn.BlockStart != "" && strings.HasPrefix(s[i:], lx.syn.BlockStart) {
				lx.mode = modeBlock
				i += len(lx.syn.BlockStart)
				continue
			}
			if n := lx.openString(s, i); n > 0 {
				code.WriteString(s[i : i+n])
				i += n
				continue
			}
			code.WriteByte(s[i])
			i++
		}
	}
	if lx.mode == modeString && !lx.multi {
		lx.mode = modeCode
	}
	ln.Code = code.String()
	ln.Comment = strings.TrimSpace(comment.String())
	return ln
}

func (lx *lexer) lineComment(rest string) (string, bool) {
	for _, p := range lx.syn.LineComments {
		if strings.HasPrefix(rest, p) {
			// Rust attributes and shebang-like tokens are code.
			if p == "#" && lx.lang == Unknown && strings.HasPrefix(rest, "#[") {
				return "", false
			}
			return p, true
		}
	}
	return "", false
}

// openString enters string mode if a literal starts at s[i] and returns the
// number of opening bytes consumed.
func (lx *lexer) openString(s string, i int) int {
	c := s[i]
	rest := s[i:]
	if lx.lang == Python && (strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, `'''`)) {
		lx.enter(rest[:3], true, true)
		return 3
	}
	if strings.HasPrefix(rest, `"""`) {
		switch lx.lang {
		case Kotlin:
			// Raw strings: backslash is literal.
			lx.enter(`"""`, false, true)
			return 3
		case Java, Swift:
			lx.enter(`"""`, true, true)
			return 3
		}
	}
	if lx.syn.RawQuote != 0 && c == lx.syn.RawQuote {
		lx.enter(string(c), false, true)
		return 1
	}
	switch c {
	case '"':
		lx.enter(`"`, true, lx.lang == Rust)
		return 1
	case '\'':
		if lx.lang == Rust && !rustCharLiteral(s, i) {
			return 0
		}
		lx.enter(`'`, true, false)
		return 1
	}
	return 0
}

func (lx *lexer) enter(delim string, escapes, multi bool) {
	lx.mode = modeString
	lx.delim = delim
	lx.escapes = escapes
	lx.multi = multi
}

// rustCharLiteral tells 'a' and '\n' apart from lifetimes like 'a.
func rustCharLiteral(s string, i int) bool {
	if i+1 < len(s) && s[i+1] == '\\' {
		return true
	}
	if i+2 < len(s) && s[i+2] == '\'' {
		return true
	}
	return false
}
