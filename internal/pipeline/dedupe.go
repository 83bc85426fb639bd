package pipeline

import (
	"maps"
	"slices"

	"github.com/sells-group/bbb-collector/internal/model"
)

// Dedupe keeps the first candidate per business identifier, in input order.
// Candidates without an identifier are always kept, even when textually
// identical. seen holds identifiers already claimed; it is not modified and
// the extended set is returned alongside the kept candidates.
func Dedupe(candidates []model.CandidateURL, seen map[string]struct{}) ([]model.CandidateURL, map[string]struct{}) {
	next := make(map[string]struct{}, len(seen)+len(candidates))
	maps.Copy(next, seen)

	kept := make([]model.CandidateURL, 0, len(candidates))
	for _, c := range candidates {
		id, ok := BusinessID(c.URL)
		if !ok {
			kept = append(kept, c)
			continue
		}
		if _, dup := next[id]; dup {
			continue
		}
		next[id] = struct{}{}
		kept = append(kept, c)
	}
	return kept, next
}

// Chunk splits items into consecutive slices of at most size elements. A
// non-positive size falls back to DefaultBusinessesPerSession.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBusinessesPerSession
	}
	return slices.Collect(slices.Chunk(items, size))
}
