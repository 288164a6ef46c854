// Package fusion merges ranked result lists from heterogeneous search
// backends into one ordered, deduplicated list using weighted Reciprocal
// Rank Fusion (RRF).
//
// RRF is rank-based rather than score-based: it never compares raw scores
// across backends, so incomparable scales (BM25 scores, cosine similarities,
// edit distances) need no calibration. Results surfaced by more than one
// backend are promoted to Hybrid and boosted.
package fusion

import (
	"fmt"
)

// MatchType identifies which kind of backend produced a result.
type MatchType string

const (
	// MatchTypeText is a BM25 / statistical keyword match.
	MatchTypeText MatchType = "text"
	// MatchTypeVector is a vector-similarity match.
	MatchTypeVector MatchType = "vector"
	// MatchTypeSymbol is a symbol / AST match.
	MatchTypeSymbol MatchType = "symbol"
	// MatchTypeFuzzy is a fuzzy full-text match.
	MatchTypeFuzzy MatchType = "fuzzy"
	// MatchTypeHybrid marks a result surfaced by more than one backend.
	// Assigned during fusion, never by a backend.
	MatchTypeHybrid MatchType = "hybrid"
)

// SearchResult is the shape of a ranked match exchanged with backends.
// The fusion engine depends only on this shape, not on how any backend
// computed it. Backend lists must already be ranked best-first.
type SearchResult struct {
	// Content is the matched snippet.
	Content string `json:"content"`

	// FilePath locates the match.
	FilePath string `json:"file_path"`

	// Score is the backend's own score before fusion, and the combined
	// RRF score after fusion. Always finite.
	Score float64 `json:"score"`

	// MatchType tags the producing backend (or Hybrid after fusion).
	MatchType MatchType `json:"match_type"`

	// LineNumber is the 1-indexed match line, 0 when unknown.
	LineNumber int `json:"line_number"`

	// Symbols are associated symbol names, if the backend knows any.
	Symbols []string `json:"symbols,omitempty"`

	// MatchCount is how many backend lists contributed this result.
	// Populated during fusion.
	MatchCount int `json:"match_count"`
}

// fusedResult accumulates RRF contributions for one canonical identity.
// Instances are transient: created fresh per fusion call and discarded
// after the final ranked list is produced.
type fusedResult struct {
	content       string
	filePath      string
	combinedScore float64
	matchCount    int
	primaryType   MatchType
	lineNumber    int
	symbols       []string
}

// keyContentPrefix bounds canonical key size. Backends reporting the same
// snippet truncated differently still collide on the first 50 bytes.
const keyContentPrefix = 50

// resultKey derives the canonical identity of a result:
// (file path, line number or 0, first 50 bytes of content).
// Every insert and lookup into the fusion accumulator goes through this one
// function so the two paths can never disagree on identity.
func resultKey(r *SearchResult) string {
	prefix := r.Content
	if len(prefix) > keyContentPrefix {
		prefix = prefix[:keyContentPrefix]
	}
	return fmt.Sprintf("%s:%d:%s", r.FilePath, r.LineNumber, prefix)
}

// mergeSymbols appends the symbols from src not already present in dst.
func mergeSymbols(dst []string, src []string) []string {
	for _, s := range src {
		found := false
		for _, existing := range dst {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
