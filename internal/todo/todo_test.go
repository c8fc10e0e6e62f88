package todo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferPriority(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
		want Priority
	}{
		{KindFixme, "anything", High},
		{KindXXX, "", High},
		{KindNote, "urgent", Low},
		{KindTodo, "security hole in parser", High},
		{KindTodo, "maybe cache this", Low},
		{KindTodo, "split into two functions", Medium},
		{KindHack, "nice to have a cleaner api", Low},
		{KindTodo, "debug output", Medium},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+" "+tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, InferPriority(tt.kind, tt.text))
		})
	}
}

func TestScanContent(t *testing.T) {
	src := `package x

// TODO: split this up
/* FIXME(alice): leaks on error */
var s = "TODO not a comment"
func f() {} // NOTE consider renaming
/// XXX unsound
`
	items := ScanContent("x.go", src)
	require.Len(t, items, 4)

	assert.Equal(t, Item{Path: "x.go", Line: 3, Kind: KindTodo, Text: "split this up", Priority: Medium}, items[0])
	assert.Equal(t, KindFixme, items[1].Kind)
	assert.Equal(t, "leaks on error", items[1].Text)
	assert.Equal(t, High, items[1].Priority)
	assert.Equal(t, KindNote, items[2].Kind)
	assert.Equal(t, 6, items[2].Line)
	assert.Equal(t, KindXXX, items[3].Kind)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Item{
		{Kind: KindTodo, Priority: Medium},
		{Kind: KindFixme, Priority: High},
		{Kind: KindFixme, Priority: High},
		{Kind: KindNote, Priority: Low},
	})
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.High)
	assert.Equal(t, 1, s.Medium)
	assert.Equal(t, 1, s.Low)
	assert.Equal(t, 2, s.ByKind[KindFixme])

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("# FIXME now\n# TODO later\nx = 1\n"), 0o644))

	src := FileSource{Root: dir}
	s, err := src.Summary("a.py")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.High)

	_, err = src.Summary("missing.py")
	assert.Error(t, err)

	limited := FileSource{Root: dir, MaxBytes: 4}
	s, err = limited.Summary("a.py")
	require.NoError(t, err)
	assert.Zero(t, s.Total)
}

func TestMapSource(t *testing.T) {
	src := MapSource{"a.rs": "// FIXME\nfn a() {}\n"}
	s, err := src.Summary("a.rs")
	require.NoError(t, err)
	assert.Equal(t, 1, s.High)

	_, err = src.Summary("b.rs")
	assert.True(t, errors.Is(err, ErrNotFound))
}
