// Package dedup keeps one canonical entry per chunk content hash and
// records every location the same body was seen at.
//
// The [Index] is sharded by xxhash of the content hash; each shard has its
// own lock, so insert-or-link is a single check-then-act under that lock
// and two goroutines racing on the same hash produce one entry. A payload
// (embedding vector or cached analysis) is attached at most once per
// entry and is never replaced by later links. Entries are never evicted.
//
// [Store] persists an index to SQLite and records per-scan savings.
package dedup
