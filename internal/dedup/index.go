package dedup

import (
	"encoding/json"
	"math/bits"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dshills/sieve/internal/chunker"
	"github.com/dshills/sieve/internal/lang"
)

// DefaultShards is used when New is given a non-positive shard count.
const DefaultShards = 64

// Location is one place a chunk body occurs.
type Location struct {
	RepoID    string `json:"repoId"`
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Name      string `json:"name,omitempty"`
}

// Payload is the expensive downstream result computed once per body.
type Payload struct {
	Vector     []float32       `json:"vector,omitempty"`
	Analysis   json.RawMessage `json:"analysis,omitempty"`
	IssueCount int             `json:"issueCount"`
	AnalyzedAt time.Time       `json:"analyzedAt"`
}

// Entry is the canonical record for one content hash.
type Entry struct {
	ContentHash string        `json:"contentHash"`
	Kind        chunker.Kind  `json:"kind"`
	Name        string        `json:"name"`
	Language    lang.Language `json:"language"`
	Payload     *Payload      `json:"payload,omitempty"`
	Locations   []Location    `json:"locations"`
}

// Repos returns the distinct repositories in location order.
func (e Entry) Repos() []string {
	var out []string
	for _, l := range e.Locations {
		if !slices.Contains(out, l.RepoID) {
			out = append(out, l.RepoID)
		}
	}
	return out
}

func (e Entry) clone() Entry {
	out := e
	out.Locations = slices.Clone(e.Locations)
	if e.Payload != nil {
		p := *e.Payload
		p.Vector = slices.Clone(p.Vector)
		p.Analysis = slices.Clone(p.Analysis)
		out.Payload = &p
	}
	return out
}

func (e *Entry) hasLocation(repoID, path string) bool {
	return slices.ContainsFunc(e.Locations, func(l Location) bool {
		return l.RepoID == repoID && l.Path == path
	})
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Index maps content hashes to entries. It is safe for concurrent use.
type Index struct {
	shards []*shard
	mask   uint64
}

// New returns an empty index with shards rounded up to a power of two.
func New(shards int) *Index {
	if shards <= 0 {
		shards = DefaultShards
	}
	n := 1 << bits.Len(uint(shards-1))
	ix := &Index{shards: make([]*shard, n), mask: uint64(n - 1)}
	for i := range ix.shards {
		ix.shards[i] = &shard{entries: make(map[string]*Entry)}
	}
	return ix
}

func (ix *Index) shardFor(hash string) *shard {
	return ix.shards[xxhash.Sum64String(hash)&ix.mask]
}

// InsertOrLink stores c as the canonical entry for its hash and reports
// true, or appends c's location to the existing entry and reports false.
// A location already recorded for the same repository and path is not
// added twice.
func (ix *Index) InsertOrLink(c chunker.Chunk) bool {
	loc := Location{RepoID: c.RepoID, Path: c.Path, StartLine: c.StartLine, EndLine: c.EndLine, Name: c.Name}
	s := ix.shardFor(c.ContentHash)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[c.ContentHash]; ok {
		if !e.hasLocation(loc.RepoID, loc.Path) {
			e.Locations = append(e.Locations, loc)
		}
		return false
	}
	s.entries[c.ContentHash] = &Entry{
		ContentHash: c.ContentHash,
		Kind:        c.Kind,
		Name:        c.Name,
		Language:    c.Language,
		Locations:   []Location{loc},
	}
	return true
}

// Contains reports whether hash has an entry.
func (ix *Index) Contains(hash string) bool {
	s := ix.shardFor(hash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[hash]
	return ok
}

// Get returns a copy of the entry for hash.
func (ix *Index) Get(hash string) (Entry, bool) {
	s := ix.shardFor(hash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[hash]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// AttachPayload sets the payload for hash if it has none. It reports
// whether the payload was stored.
func (ix *Index) AttachPayload(hash string, p Payload) bool {
	s := ix.shardFor(hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok || e.Payload != nil {
		return false
	}
	p.Vector = slices.Clone(p.Vector)
	p.Analysis = slices.Clone(p.Analysis)
	e.Payload = &p
	return true
}

// restore merges a persisted entry: missing entries are added whole,
// existing ones gain unseen locations and a payload if they lack one.
func (ix *Index) restore(in Entry) {
	s := ix.shardFor(in.ContentHash)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[in.ContentHash]
	if !ok {
		c := in.clone()
		s.entries[in.ContentHash] = &c
		return
	}
	for _, l := range in.Locations {
		if !e.hasLocation(l.RepoID, l.Path) {
			e.Locations = append(e.Locations, l)
		}
	}
	if e.Payload == nil && in.Payload != nil {
		e.Payload = in.clone().Payload
	}
}

// Entries returns a snapshot of every entry sorted by hash.
func (ix *Index) Entries() []Entry {
	var out []Entry
	for _, s := range ix.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			out = append(out, e.clone())
		}
		s.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.ContentHash, b.ContentHash) })
	return out
}

// CrossRepoDuplicates returns entries seen in more than one repository,
// sorted by hash.
func (ix *Index) CrossRepoDuplicates() []Entry {
	var out []Entry
	for _, e := range ix.Entries() {
		if len(e.Repos()) > 1 {
			out = append(out, e)
		}
	}
	return out
}

// UniqueCount is the number of distinct hashes.
func (ix *Index) UniqueCount() int {
	n := 0
	for _, s := range ix.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// DuplicatesSaved counts locations beyond the first of each entry: the
// downstream operations avoided by deduplication.
func (ix *Index) DuplicatesSaved() int {
	n := 0
	for _, s := range ix.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			n += len(e.Locations) - 1
		}
		s.mu.RUnlock()
	}
	return n
}

// Stats summarizes an index.
type Stats struct {
	Unique          int `json:"unique"`
	Locations       int `json:"locations"`
	DuplicatesSaved int `json:"duplicatesSaved"`
	CrossRepo       int `json:"crossRepo"`
	WithPayload     int `json:"withPayload"`
}

// Stats computes a consistent snapshot summary.
func (ix *Index) Stats() Stats {
	var st Stats
	for _, e := range ix.Entries() {
		st.Unique++
		st.Locations += len(e.Locations)
		st.DuplicatesSaved += len(e.Locations) - 1
		if len(e.Repos()) > 1 {
			st.CrossRepo++
		}
		if e.Payload != nil {
			st.WithPayload++
		}
	}
	return st
}
