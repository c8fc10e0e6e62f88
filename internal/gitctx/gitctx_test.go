package gitctx

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"vendor/lib.go", []string{"vendor/**"}, true},
		{"main.go", []string{"vendor/**"}, false},
		{"foo.gen.go", []string{"**/*.gen.go"}, true},
		{"pkg/foo.gen.go", []string{"**/*.gen.go"}, true},
		{"dist/bundle.js", []string{"**/dist/**"}, true},
		{"main.go", []string{"*.go"}, true},
		{"pkg/util.go", []string{"*.go"}, true},
		{"pkg/util.go", []string{"cmd/*.go"}, false},
		{"src/lib.rs", []string{"src/**/*.rs"}, true},
	}
	for _, tt := range tests {
		got := MatchesAny(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestMatchesAny_EmptyPatterns(t *testing.T) {
	if MatchesAny("main.go", nil) {
		t.Error("MatchesAny with nil patterns should return false")
	}
	if MatchesAny("main.go", []string{}) {
		t.Error("MatchesAny with empty patterns should return false")
	}
}

func TestFilter(t *testing.T) {
	files := []string{"pkg/util.go", "main.go", "vendor/lib.go", "dist/bundle.js"}
	result := Filter(files, nil, []string{"vendor/**", "**/dist/**"})
	want := []string{"main.go", "pkg/util.go"}
	if !slices.Equal(result, want) {
		t.Errorf("Filter = %v, want %v", result, want)
	}

	result = Filter(files, []string{"**/*.js"}, nil)
	if !slices.Equal(result, []string{"dist/bundle.js"}) {
		t.Errorf("Filter include = %v", result)
	}

	if got := Filter(nil, nil, []string{"vendor/**"}); len(got) != 0 {
		t.Errorf("Filter nil input got %d, want 0", len(got))
	}
}

func TestRangeSpec(t *testing.T) {
	tests := []struct {
		in        string
		mergeBase bool
		want      string
	}{
		{"main..HEAD", false, "main..HEAD"},
		{"main..HEAD", true, "main...HEAD"},
		{"main...HEAD", true, "main...HEAD"},
		{"HEAD~3", true, "HEAD~3"},
	}
	for _, tt := range tests {
		if got := rangeSpec(tt.in, tt.mergeBase); got != tt.want {
			t.Errorf("rangeSpec(%q, %v) = %q, want %q", tt.in, tt.mergeBase, got, tt.want)
		}
	}
}

func TestSplitNames(t *testing.T) {
	got := splitNames("a.go\n\nb.go\na.go\n")
	if !slices.Equal(got, []string{"a.go", "b.go"}) {
		t.Errorf("splitNames = %v", got)
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want int
	}{
		{time.Time{}, 0},
		{now, 0},
		{now.Add(-36 * time.Hour), 1},
		{now.AddDate(0, 0, -400), 400},
		{now.Add(time.Hour), 0},
	}
	for _, tt := range tests {
		if got := AgeDays(tt.t, now); got != tt.want {
			t.Errorf("AgeDays(%v) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.rs", "fn main() {}\n")
	writeFile(t, dir, "src/lib.rs", "pub fn a() {}\n")
	writeFile(t, dir, "target/debug/out.rs", "junk\n")
	writeFile(t, dir, "node_modules/x/index.js", "junk\n")
	writeFile(t, dir, "gen/api.rs", "generated\n")
	writeFile(t, dir, "notes.log", "log\n")
	writeFile(t, dir, ".gitignore", "# build output\ngen/\n*.log\n")

	files, err := Walk(dir, nil, nil)
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	want := []string{".gitignore", "main.rs", "src/lib.rs"}
	if !slices.Equal(files, want) {
		t.Errorf("Walk = %v, want %v", files, want)
	}

	files, err = Walk(dir, []string{"**/*.rs"}, []string{"main.rs"})
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if !slices.Equal(files, []string{"src/lib.rs"}) {
		t.Errorf("Walk with filters = %v", files)
	}
}

func TestListFiles_OutsideRepo(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "x = 1\n")

	res, err := ListFiles(context.Background(), ListOptions{Root: dir})
	if err != nil {
		t.Fatalf("ListFiles error: %v", err)
	}
	if res.Mode != ModeWalk {
		t.Errorf("Mode = %q, want %q", res.Mode, ModeWalk)
	}
	if !slices.Equal(res.Files, []string{"a.py"}) {
		t.Errorf("Files = %v", res.Files)
	}

	_, err = ListFiles(context.Background(), ListOptions{Root: dir, Staged: true})
	if !errors.Is(err, ErrNotRepo) {
		t.Errorf("staged outside repo: err = %v, want ErrNotRepo", err)
	}
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// setupTestRepo creates a temp git repo with one commit and returns its path.
func setupTestRepo(t *testing.T) (string, func(args ...string)) {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}

	run("init")
	run("checkout", "-b", "main")
	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, dir, "util.go", "package main\n\nfunc helper() {}\n")
	writeFile(t, dir, "vendor/lib.go", "package vendor\n")
	run("add", "-A")
	run("commit", "-m", "init")
	return dir, run
}

func TestListFiles_Tracked(t *testing.T) {
	dir, _ := setupTestRepo(t)
	writeFile(t, dir, "new.go", "package main\n")

	res, err := ListFiles(context.Background(), ListOptions{Root: dir, Exclude: []string{"vendor/**"}})
	if err != nil {
		t.Fatalf("ListFiles error: %v", err)
	}
	if res.Mode != ModeTracked {
		t.Errorf("Mode = %q, want %q", res.Mode, ModeTracked)
	}
	want := []string{"main.go", "new.go", "util.go"}
	if !slices.Equal(res.Files, want) {
		t.Errorf("Files = %v, want %v", res.Files, want)
	}
	if res.Repo.Branch != "main" || res.Repo.Head == "" {
		t.Errorf("Repo = %+v", res.Repo)
	}
}

func TestListFiles_Staged(t *testing.T) {
	dir, run := setupTestRepo(t)
	writeFile(t, dir, "util.go", "package main\n\nfunc helper() int { return 1 }\n")
	writeFile(t, dir, "unstaged.go", "package main\n")
	run("add", "util.go")

	res, err := ListFiles(context.Background(), ListOptions{Root: dir, Staged: true})
	if err != nil {
		t.Fatalf("ListFiles error: %v", err)
	}
	if res.Mode != ModeStaged || !slices.Equal(res.Files, []string{"util.go"}) {
		t.Errorf("staged = %q %v, want [util.go]", res.Mode, res.Files)
	}
}

func TestListFiles_Range(t *testing.T) {
	dir, run := setupTestRepo(t)
	run("checkout", "-b", "feature")
	writeFile(t, dir, "feature.go", "package main\n")
	run("add", "feature.go")
	run("commit", "-m", "feature")

	res, err := ListFiles(context.Background(), ListOptions{Root: dir, Range: "main..feature", MergeBase: true})
	if err != nil {
		t.Fatalf("ListFiles error: %v", err)
	}
	if res.Mode != ModeRange || res.Range != "main..feature" {
		t.Errorf("Mode/Range = %q/%q", res.Mode, res.Range)
	}
	if !slices.Equal(res.Files, []string{"feature.go"}) {
		t.Errorf("Files = %v, want [feature.go]", res.Files)
	}
}

func TestLastModified(t *testing.T) {
	dir, _ := setupTestRepo(t)
	ctx := context.Background()

	ts, err := LastModified(ctx, dir, "main.go")
	if err != nil {
		t.Fatalf("LastModified error: %v", err)
	}
	if ts.IsZero() || time.Since(ts) > time.Hour {
		t.Errorf("LastModified = %v, want a recent commit time", ts)
	}

	writeFile(t, dir, "untracked.go", "package main\n")
	ts, err = LastModified(ctx, dir, "untracked.go")
	if err != nil || !ts.IsZero() {
		t.Errorf("untracked: %v, %v; want zero time", ts, err)
	}
}

func TestHooksDir(t *testing.T) {
	dir, _ := setupTestRepo(t)
	hooks, err := HooksDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("HooksDir error: %v", err)
	}
	if filepath.Base(hooks) != "hooks" {
		t.Errorf("HooksDir = %q", hooks)
	}
}
