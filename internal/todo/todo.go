package todo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/sieve/internal/lang"
)

// ErrNotFound is returned by sources that have no content for a path.
var ErrNotFound = errors.New("todo: no content for path")

// Kind is the marker word that introduced an item.
type Kind string

const (
	KindTodo  Kind = "TODO"
	KindFixme Kind = "FIXME"
	KindHack  Kind = "HACK"
	KindXXX   Kind = "XXX"
	KindNote  Kind = "NOTE"
)

// Priority is inferred from the marker and its text.
type Priority int

const (
	Low Priority = iota
	Medium
	High
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Item is one marker found in a comment.
type Item struct {
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Kind     Kind     `json:"kind"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
}

// Summary aggregates the items of one file.
type Summary struct {
	Total  int          `json:"total"`
	High   int          `json:"high"`
	Medium int          `json:"medium"`
	Low    int          `json:"low"`
	ByKind map[Kind]int `json:"byKind,omitempty"`
}

// Source answers per-file TODO queries.
type Source interface {
	Summary(path string) (Summary, error)
}

var (
	markerRe   = regexp.MustCompile(`(?i)^(TODO|FIXME|HACK|XXX|NOTE)\b(?:\([^)]*\))?:?\s*(.*)$`)
	highWords  = regexp.MustCompile(`(?i)\b(?:urgent|critical|security|bug|important|asap)\b`)
	lowWords   = regexp.MustCompile(`(?i)\b(?:maybe|consider|nice to have|optional|future)\b`)
	commentLed = "/!*#- \t"
)

// InferPriority ranks an item: FIXME and XXX are high, NOTE is low, and
// urgency or hedging words in the text move the rest.
func InferPriority(kind Kind, text string) Priority {
	switch kind {
	case KindFixme, KindXXX:
		return High
	case KindNote:
		return Low
	}
	switch {
	case highWords.MatchString(text):
		return High
	case lowWords.MatchString(text):
		return Low
	}
	return Medium
}

// ScanContent returns the items in content's comments, in line order.
func ScanContent(path, content string) []Item {
	var items []Item
	for _, ln := range lang.Lex(content, lang.Detect(path)) {
		if ln.Comment == "" {
			continue
		}
		m := markerRe.FindStringSubmatch(strings.TrimLeft(ln.Comment, commentLed))
		if m == nil {
			continue
		}
		kind := Kind(strings.ToUpper(m[1]))
		text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[2]), "*/"))
		items = append(items, Item{
			Path:     path,
			Line:     ln.Number,
			Kind:     kind,
			Text:     text,
			Priority: InferPriority(kind, text),
		})
	}
	return items
}

// Summarize aggregates items.
func Summarize(items []Item) Summary {
	s := Summary{Total: len(items)}
	if len(items) > 0 {
		s.ByKind = make(map[Kind]int)
	}
	for _, it := range items {
		s.ByKind[it.Kind]++
		switch it.Priority {
		case High:
			s.High++
		case Medium:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// FileSource reads files relative to Root.
type FileSource struct {
	Root string
	// MaxBytes skips larger files; 0 means no limit.
	MaxBytes int64
}

// Summary scans the file at path.
func (f FileSource) Summary(path string) (Summary, error) {
	full := path
	if !filepath.IsAbs(path) && f.Root != "" {
		full = filepath.Join(f.Root, path)
	}
	info, err := os.Stat(full)
	if err != nil {
		return Summary{}, fmt.Errorf("todo: stat %s: %w", path, err)
	}
	if f.MaxBytes > 0 && info.Size() > f.MaxBytes {
		return Summary{}, nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return Summary{}, fmt.Errorf("todo: reading %s: %w", path, err)
	}
	return Summarize(ScanContent(path, string(data))), nil
}

// MapSource serves content held in memory, keyed by path.
type MapSource map[string]string

// Summary scans the content stored for path.
func (m MapSource) Summary(path string) (Summary, error) {
	content, ok := m[path]
	if !ok {
		return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return Summarize(ScanContent(path, content)), nil
}
