// Package gitctx lists the files a scan should visit and reads commit
// metadata from a git repository.
//
// Inside a repository files come from git itself: every tracked file,
// the staged set, or the files changed in a revision range. Outside a
// repository [Walk] walks the directory tree and honors .gitignore.
// Include and exclude globs use doublestar syntax.
//
// [LastModified] and [AgeDays] report how long ago a file last changed,
// which scan output uses to flag stale code.
package gitctx
