package gitctx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Mode selects where the file list comes from.
type Mode string

const (
	ModeTracked Mode = "tracked"
	ModeStaged  Mode = "staged"
	ModeRange   Mode = "range"
	ModeWalk    Mode = "walk"
)

// ListOptions controls how files are gathered.
type ListOptions struct {
	// Root is the directory to list; empty means the working directory.
	Root string
	// Staged lists only files in the index that differ from HEAD.
	Staged bool
	// Range lists files changed in a revision range such as main..HEAD.
	Range string
	// MergeBase compares a two-dot range against the merge base.
	MergeBase bool
	Include   []string
	Exclude   []string
}

// ListResult holds the file list and how it was obtained.
type ListResult struct {
	// Files are slash-separated, relative to Root, and sorted.
	Files []string
	Mode  Mode
	Range string
	Repo  RepoMeta
}

// RepoMeta contains git repository metadata. It is zero outside a repository.
type RepoMeta struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// ErrNotRepo is returned when a git-only mode is requested outside a repository.
var ErrNotRepo = errors.New("not a git repository")

// GetRepoMeta collects repository metadata for dir.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("%w: %v", ErrNotRepo, err)
	}
	head, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // no commits yet
	}
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(ctx context.Context, dir string) bool {
	out, err := gitOutput(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// ListFiles returns the files to scan under opts.Root. Staged and Range
// require a repository; otherwise tracked files are listed inside a
// repository and the tree is walked outside one.
func ListFiles(ctx context.Context, opts ListOptions) (ListResult, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	inRepo := IsRepo(ctx, root)
	if (opts.Staged || opts.Range != "") && !inRepo {
		return ListResult{}, fmt.Errorf("%w: %s", ErrNotRepo, root)
	}
	if !inRepo {
		files, err := Walk(root, opts.Include, opts.Exclude)
		if err != nil {
			return ListResult{}, err
		}
		return ListResult{Files: files, Mode: ModeWalk}, nil
	}

	var (
		args []string
		mode = ModeTracked
	)
	switch {
	case opts.Range != "":
		args = []string{"diff", "--name-only", "--diff-filter=ACMR", "--relative", rangeSpec(opts.Range, opts.MergeBase)}
		mode = ModeRange
	case opts.Staged:
		args = []string{"diff", "--cached", "--name-only", "--diff-filter=ACMR", "--relative"}
		mode = ModeStaged
	default:
		args = []string{"ls-files", "--cached", "--others", "--exclude-standard"}
	}
	out, err := gitOutput(ctx, root, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("git %s: %w", args[0], err)
	}

	meta, err := GetRepoMeta(ctx, root)
	if err != nil {
		meta = RepoMeta{}
	}
	files := Filter(splitNames(out), opts.Include, opts.Exclude)
	// ls-files can list tracked files deleted from the work tree.
	files = slices.DeleteFunc(files, func(f string) bool {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(f)))
		return err != nil || !info.Mode().IsRegular()
	})
	return ListResult{Files: files, Mode: mode, Range: opts.Range, Repo: meta}, nil
}

func rangeSpec(revRange string, mergeBase bool) string {
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		return strings.Replace(revRange, "..", "...", 1)
	}
	return revRange
}

func splitNames(out string) []string {
	var files []string
	seen := make(map[string]bool)
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		files = append(files, line)
	}
	return files
}

// defaultIgnores are skipped by Walk even without a .gitignore.
var defaultIgnores = []string{
	".git",
	"node_modules",
	"vendor",
	"target",
	"dist",
	"build",
	"__pycache__",
	".venv",
	".idea",
	".vscode",
	".DS_Store",
}

// Walk lists regular files under root, honoring root/.gitignore and the
// default ignores, then applies include and exclude globs.
func Walk(root string, include, exclude []string) ([]string, error) {
	lines := slices.Clone(defaultIgnores)
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		for line := range strings.SplitSeq(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				lines = append(lines, line)
			}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .gitignore: %w", err)
	}
	ignore := gitignore.CompileIgnoreLines(lines...)

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ignore.MatchesPath(rel) || (d.IsDir() && ignore.MatchesPath(rel+"/")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return Filter(files, include, exclude), nil
}

// Filter keeps files matching any include glob (all when include is
// empty) and no exclude glob, and returns them sorted.
func Filter(files, include, exclude []string) []string {
	var result []string
	for _, f := range files {
		if len(include) > 0 && !MatchesAny(f, include) {
			continue
		}
		if MatchesAny(f, exclude) {
			continue
		}
		result = append(result, f)
	}
	slices.Sort(result)
	return result
}

// MatchesAny reports whether p matches any doublestar glob. A pattern
// without a slash is also tried against the base name, the way
// .gitignore treats it.
func MatchesAny(p string, patterns []string) bool {
	p = filepath.ToSlash(p)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, p); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, path.Base(p)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// LastModified returns the commit time of the last change to file, or the
// zero time when file has no history.
func LastModified(ctx context.Context, dir, file string) (time.Time, error) {
	out, err := gitOutput(ctx, dir, "log", "-1", "--format=%ct", "--", file)
	if err != nil {
		return time.Time{}, fmt.Errorf("git log %s: %w", file, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing commit time %q: %w", out, err)
	}
	return time.Unix(secs, 0), nil
}

// AgeDays is the number of whole days between t and now, 0 for the zero time.
func AgeDays(t, now time.Time) int {
	if t.IsZero() || now.Before(t) {
		return 0
	}
	return int(now.Sub(t).Hours() / 24)
}

// HooksDir returns the hooks directory of the repository containing dir.
func HooksDir(ctx context.Context, dir string) (string, error) {
	out, err := gitOutput(ctx, dir, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotRepo, err)
	}
	hooks := strings.TrimSpace(out)
	if !filepath.IsAbs(hooks) && dir != "" {
		hooks = filepath.Join(dir, hooks)
	}
	return hooks, nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
