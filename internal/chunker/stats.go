package chunker

import (
	"fmt"
	"sort"
	"strings"
)

// Stats summarizes a set of chunks.
type Stats struct {
	Total        int          `json:"total"`
	ByKind       map[Kind]int `json:"byKind"`
	UniqueHashes int          `json:"uniqueHashes"`
	Duplicates   int          `json:"duplicates"`
	TotalWords   int          `json:"totalWords"`
	AvgLines     float64      `json:"avgLines"`
}

// ComputeStats tallies chunks by kind and counts repeated content hashes.
func ComputeStats(chunks []Chunk) Stats {
	st := Stats{Total: len(chunks), ByKind: make(map[Kind]int)}
	seen := make(map[string]bool, len(chunks))
	lines := 0
	for _, c := range chunks {
		st.ByKind[c.Kind]++
		st.TotalWords += c.WordCount
		lines += c.Lines()
		if seen[c.ContentHash] {
			st.Duplicates++
			continue
		}
		seen[c.ContentHash] = true
	}
	st.UniqueHashes = len(seen)
	if st.Total > 0 {
		st.AvgLines = float64(lines) / float64(st.Total)
	}
	return st
}

// Summary renders stats as one line, kinds in name order.
func (s Stats) Summary() string {
	kinds := make([]string, 0, len(s.ByKind))
	for k, n := range s.ByKind {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(kinds)
	return fmt.Sprintf("%d chunks (%s) | %d unique, %d duplicate | avg %.1f lines",
		s.Total, strings.Join(kinds, " "), s.UniqueHashes, s.Duplicates, s.AvgLines)
}
