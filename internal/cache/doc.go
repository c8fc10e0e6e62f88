// Package cache provides a file-based cache of per-file analysis results.
//
// Entries are keyed by a SHA-256 hash of the repository root and the
// file's repository-relative path. Each entry records the content hash
// the file had when it was analyzed, the recommendation and the static
// issue count, with a creation timestamp and a TTL in seconds. A scan
// uses the cache to skip files whose content is unchanged since a run
// that found no issues. Expired entries are ignored on read.
//
// The default cache directory is $XDG_CACHE_HOME/sieve (or the
// OS-appropriate equivalent).
package cache
