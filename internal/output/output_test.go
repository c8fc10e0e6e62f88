package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/sieve/internal/analyzer"
	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/dedup"
	"github.com/dshills/sieve/internal/gitctx"
	"github.com/dshills/sieve/internal/lang"
	"github.com/dshills/sieve/internal/patterns"
	"github.com/dshills/sieve/internal/router"
	"github.com/dshills/sieve/internal/scan"
	"github.com/dshills/sieve/internal/signals"
)

func sampleReport() *scan.Report {
	files := []scan.FileResult{
		{
			Result: analyzer.Result{
				Path:              "src/load.rs",
				Language:          lang.Rust,
				Recommendation:    analyzer.DeepDive,
				EstimatedLLMValue: 0.95,
				StaticIssueCount:  3,
				Issues:            []analyzer.IssueCategory{analyzer.IssueUnwrapDensity, analyzer.IssueSecrets, analyzer.IssueTodoMarkers},
				RedFlags: []analyzer.RedFlag{
					{Category: analyzer.IssueUnwrapDensity, Message: "High unwrap density: 15 unwrap calls in 17 code lines"},
					{Category: analyzer.IssueSecrets, Message: "1 potential hardcoded secret(s) (1 high confidence)"},
				},
				Signals: signals.QualitySignals{
					PotentialSecrets: []signals.SecurityFinding{{Line: 7, Pattern: "aws_access_key", Confidence: patterns.ConfidenceHigh}},
				},
				Summary: "src/load.rs: DEEP_DIVE (17 LOC, 600 chars)\n  Complexity: ~2, Functions: 1, Max nesting: 1",
			},
			Tier:            "DEEP_DIVE",
			EstimatedTokens: 900,
			AgeDays:         12,
		},
		{
			Result: analyzer.Result{
				Path:              "src/util.rs",
				Language:          lang.Rust,
				Recommendation:    analyzer.Minimal,
				EstimatedLLMValue: 0.15,
				Summary:           "src/util.rs: MINIMAL (12 LOC, 280 chars)",
			},
			Tier:            "MINIMAL",
			EstimatedTokens: 120,
		},
		{
			Result: analyzer.Result{
				Path:           "src/copy.rs",
				Language:       lang.Rust,
				Recommendation: analyzer.Skip,
				SkipReason:     analyzer.ReasonDuplicate,
			},
			DuplicateOf: "src/util.rs",
		},
	}
	rep := &scan.Report{
		SessionID: "session-1",
		Root:      "/tmp/repo",
		RepoID:    "repo",
		Mode:      gitctx.ModeTracked,
		Repo:      gitctx.RepoMeta{Root: "/tmp/repo", Branch: "main"},
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed:   42 * time.Millisecond,
		Files:     files,
		Dropped:   []scan.Dropped{{Path: "logo.png", Reason: "binary"}},
		Routing: router.Stats{
			MinimalCount: 1, MinimalTokens: 120,
			DeepDiveCount: 1, DeepDiveTokens: 900,
			BaselineTokens: 1100,
		},
		Chunks: &chunker.Stats{Total: 4, ByKind: map[chunker.Kind]int{chunker.KindFunction: 4}, UniqueHashes: 3, Duplicates: 1, AvgLines: 4},
		Dedup:  &dedup.Stats{Unique: 3, Locations: 4, DuplicatesSaved: 1},
	}
	rep.Batch = analyzer.NewBatchReport(rep.Results())
	return rep
}

func emptyReport() *scan.Report {
	rep := &scan.Report{Mode: gitctx.ModeWalk, Root: "/tmp/empty"}
	rep.Batch = analyzer.NewBatchReport(nil)
	return rep
}

func TestGetWriter(t *testing.T) {
	tests := []struct {
		format string
		want   any
	}{
		{"", &TextWriter{}},
		{"text", &TextWriter{}},
		{"json", &JSONWriter{}},
		{"markdown", &MarkdownWriter{}},
		{"md", &MarkdownWriter{}},
		{"sarif", &SARIFWriter{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := GetWriter(tt.format, Options{})
			if err != nil {
				t.Fatalf("GetWriter(%q) error: %v", tt.format, err)
			}
			if got, want := typeName(w), typeName(tt.want); got != want {
				t.Errorf("GetWriter(%q) = %s, want %s", tt.format, got, want)
			}
		})
	}

	if _, err := GetWriter("yaml", Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("GetWriter(yaml) error = %v, want ErrUnsupportedFormat", err)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *TextWriter:
		return "text"
	case *JSONWriter:
		return "json"
	case *MarkdownWriter:
		return "markdown"
	case *SARIFWriter:
		return "sarif"
	}
	return "unknown"
}

func TestWriteReport_File(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	if err := WriteReport(sampleReport(), "json", out, Options{}); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"sessionId": "session-1"`) {
		t.Errorf("report file missing session id:\n%s", data)
	}
}

func TestWriteReport_BadFormat(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.txt")
	if err := WriteReport(sampleReport(), "xml", out, Options{}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no file should be created for an unsupported format")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriters_PropagateErrors(t *testing.T) {
	for _, format := range []string{"text", "json", "markdown", "sarif"} {
		w, _ := GetWriter(format, Options{})
		if err := w.Write(failWriter{}, sampleReport()); err == nil {
			t.Errorf("%s: expected write error", format)
		}
	}
}

func TestWriters_Deterministic(t *testing.T) {
	for _, format := range []string{"text", "json", "markdown", "sarif"} {
		w, _ := GetWriter(format, Options{Version: "1.0"})
		var a, b bytes.Buffer
		if err := w.Write(&a, sampleReport()); err != nil {
			t.Fatal(err)
		}
		if err := w.Write(&b, sampleReport()); err != nil {
			t.Fatal(err)
		}
		if a.String() != b.String() {
			t.Errorf("%s output differs between runs", format)
		}
	}
}
