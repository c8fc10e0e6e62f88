package chunker

import (
	"strings"

	"github.com/dshills/sieve/internal/lang"
)

// file is one input split into lexed lines with byte offsets.
type file struct {
	path   string
	repoID string
	lang   lang.Language
	lines  []lang.Line
	// starts and ends are the byte offsets of each line's text.
	starts []int
	ends   []int
}

func newFile(path, content, repoID string, l lang.Language) *file {
	lines := lang.Lex(content, l)
	f := &file{
		path:   path,
		repoID: repoID,
		lang:   l,
		lines:  lines,
		starts: make([]int, len(lines)),
		ends:   make([]int, len(lines)),
	}
	off := 0
	for i := range lines {
		f.starts[i] = off
		nl := strings.IndexByte(content[off:], '\n')
		if nl < 0 {
			f.ends[i] = len(content)
			off = len(content)
			continue
		}
		f.ends[i] = off + nl
		off += nl + 1
	}
	return f
}

// span is a chunk's line range: attach..decl-1 is its doc block and
// decl..end its body, all 0-based and inclusive.
type span struct {
	attach, decl, end int
	kind              Kind
	name              string
	header            bool
}

func (s span) bodyLines() int { return s.end - s.decl + 1 }

func (c *Chunker) findSpans(f *file, rs ruleSet) []span {
	var out []span
	lines := f.lines
	depth, floor := 0, 0
	for i := 0; i < len(lines); {
		ln := lines[i]
		if depth == 0 && ln.IsCode() && !ln.InString && (!rs.indent || indentOf(ln.Text) == 0) {
			if r, name, ok := match(rs.decls, ln); ok {
				end := c.blockEnd(f, rs, r, i)
				if r.kind == KindImports {
					end = c.extendImports(f, rs, end)
				}
				s := span{attach: attachStart(lines, rs, i, floor), decl: i, end: end, kind: r.kind, name: name}
				if r.container && s.bodyLines() > c.cfg.MaxChunkLines {
					out = append(out, c.splitContainer(f, rs, s)...)
				} else if c.keep(s) {
					out = append(out, s)
				}
				floor = end + 1
				i = end + 1
				continue
			}
		}
		if !rs.indent {
			depth = max(0, depth+braceDelta(ln.Code))
		}
		i++
	}
	return out
}

// keep applies the minimum size, which const, type and imports chunks
// are exempt from.
func (c *Chunker) keep(s span) bool {
	switch s.kind {
	case KindConst, KindType, KindImports:
		return true
	}
	return s.header || s.bodyLines() >= c.cfg.MinChunkLines
}

// blockEnd returns the last line of the declaration starting at line i.
func (c *Chunker) blockEnd(f *file, rs ruleSet, r declRule, i int) int {
	lines := f.lines
	if rs.indent {
		return indentEnd(lines, i)
	}
	open, closer := r.open, r.close
	if open == 0 {
		open, closer = '{', '}'
	}
	depth, parens, opened := 0, 0, false
	for j := i; j < len(lines); j++ {
		ln := lines[j]
		if j > i && !opened && parens == 0 {
			if ln.Blank() {
				return j - 1
			}
			if _, _, ok := match(rs.decls, ln); ok && !ln.InString {
				return j - 1
			}
		}
		for k := 0; k < len(ln.Code); k++ {
			ch := ln.Code[k]
			switch {
			case ch == open:
				depth++
				opened = true
			case ch == closer:
				depth--
				if opened && depth <= 0 {
					return j
				}
			case open != '(' && (ch == '(' || ch == '['):
				parens++
			case open != '(' && (ch == ')' || ch == ']'):
				parens = max(0, parens-1)
			case ch == ';' && !opened && parens == 0:
				return j
			}
		}
	}
	return len(lines) - 1
}

// extendImports grows an imports span over following import declarations,
// skipping blank and comment lines between them.
func (c *Chunker) extendImports(f *file, rs ruleSet, end int) int {
	lines := f.lines
	for {
		k := end + 1
		for k < len(lines) && !lines[k].IsCode() {
			k++
		}
		if k >= len(lines) {
			return end
		}
		r, _, ok := match(rs.decls, lines[k])
		if !ok || r.kind != KindImports {
			return end
		}
		end = c.blockEnd(f, rs, r, k)
	}
}

// indentEnd returns the last line indented deeper than line i, following
// open brackets and multi-line strings.
func indentEnd(lines []lang.Line, i int) int {
	base := indentOf(lines[i].Text)
	open := bracketDelta(lines[i].Code)
	end := i
	for j := i + 1; j < len(lines); j++ {
		ln := lines[j]
		if open > 0 || ln.InString {
			end = j
			open = max(0, open+bracketDelta(ln.Code))
			continue
		}
		if ln.Blank() || ln.IsComment() {
			continue
		}
		if indentOf(ln.Text) <= base {
			break
		}
		end = j
		open = max(0, open+bracketDelta(ln.Code))
	}
	return end
}

// attachStart walks up from the declaration at i over comment and
// attribute lines, stopping at a blank line or at floor.
func attachStart(lines []lang.Line, rs ruleSet, i, floor int) int {
	j := i
	for j-1 >= floor {
		p := lines[j-1]
		if p.IsComment() || (rs.attach != nil && !p.InString && rs.attach.MatchString(p.Code)) {
			j--
			continue
		}
		break
	}
	return j
}

// splitContainer breaks an oversized container into a header span and
// one span per member declared directly inside it.
func (c *Chunker) splitContainer(f *file, rs ruleSet, s span) []span {
	lines := f.lines
	var members []span
	floor := s.decl + 1
	add := func(j, end int, name string) {
		m := span{attach: attachStart(lines, rs, j, floor), decl: j, end: end, kind: KindMethod, name: s.name + "::" + name}
		if c.keep(m) {
			members = append(members, m)
		}
		floor = end + 1
	}

	if rs.indent {
		memberIndent := -1
		for j := s.decl + 1; j <= s.end; {
			ln := lines[j]
			if ln.IsCode() && !ln.InString {
				ind := indentOf(ln.Text)
				if memberIndent < 0 {
					memberIndent = ind
				}
				if ind == memberIndent {
					if _, name, ok := match(rs.members, ln); ok {
						end := min(indentEnd(lines, j), s.end)
						add(j, end, name)
						j = end + 1
						continue
					}
				}
			}
			j++
		}
	} else {
		depth := 0
		for j := s.decl; j <= s.end; {
			ln := lines[j]
			if depth == 1 && ln.IsCode() && !ln.InString {
				if r, name, ok := match(rs.members, ln); ok {
					end := min(c.blockEnd(f, rs, r, j), s.end)
					add(j, end, name)
					j = end + 1
					continue
				}
			}
			depth = max(0, depth+braceDelta(ln.Code))
			j++
		}
	}

	if len(members) == 0 {
		return []span{s}
	}
	header := s
	header.end = members[0].attach - 1
	header.header = true
	return append([]span{header}, members...)
}

// paragraphs splits the file on runs of blank lines, capping each
// paragraph at MaxParagraphLines.
func (c *Chunker) paragraphs(f *file) []span {
	var out []span
	flush := func(start, end int) {
		for s := start; s <= end; s += c.cfg.MaxParagraphLines {
			e := min(s+c.cfg.MaxParagraphLines-1, end)
			out = append(out, span{attach: s, decl: s, end: e, kind: KindParagraph})
		}
	}
	start := -1
	for i, ln := range f.lines {
		if ln.Blank() {
			if start >= 0 {
				flush(start, i-1)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		flush(start, len(f.lines)-1)
	}
	return out
}

func braceDelta(code string) int {
	return strings.Count(code, "{") - strings.Count(code, "}")
}

func bracketDelta(code string) int {
	d := 0
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '(', '[', '{':
			d++
		case ')', ']', '}':
			d--
		}
	}
	return d
}

// indentOf measures leading whitespace with tabs counted as four columns.
func indentOf(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
