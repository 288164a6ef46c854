package bm25

import (
	"math"
	"sort"
	"strings"

	"github.com/Aman-CERP/rankfuse/internal/errors"
)

// Engine maintains an inverted index and corpus statistics, and answers
// ranked term queries using the BM25 formula.
//
// All state is owned and explicit: no globals, no hidden caches. An Engine
// is cheap to construct and multiple instances can coexist in one process.
type Engine struct {
	k1 float64
	b  float64

	totalDocs   int
	totalLength int64
	avgLength   float64

	terms    map[string]*termStats
	docs     map[string]*docEntry
	postings map[string]map[string]*Posting
}

// NewEngine creates an engine with the standard k1=1.2, b=0.75 parameters.
func NewEngine() *Engine {
	return NewEngineWithParams(DefaultK1, DefaultB)
}

// NewEngineWithParams creates an engine with explicit BM25 parameters.
func NewEngineWithParams(k1, b float64) *Engine {
	return &Engine{
		k1:       k1,
		b:        b,
		terms:    make(map[string]*termStats),
		docs:     make(map[string]*docEntry),
		postings: make(map[string]map[string]*Posting),
	}
}

// AddDocument inserts a new document and updates the inverted index and
// corpus statistics. Adds are strict: an existing ID is rejected with
// ErrCodeDuplicateDocument rather than silently replaced; use
// UpdateDocument for replacement.
func (e *Engine) AddDocument(doc Document) error {
	if doc.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "document ID must not be empty", nil)
	}
	if _, exists := e.docs[doc.ID]; exists {
		return errors.Newf(errors.ErrCodeDuplicateDocument,
			"document %q already indexed; use UpdateDocument to replace it", doc.ID)
	}

	length := len(doc.Tokens)

	// Aggregate per-term frequency, weighted frequency, and positions.
	perTerm := make(map[string]*Posting)
	for pos, tok := range doc.Tokens {
		term := strings.ToLower(tok.Text)
		if term == "" {
			continue
		}
		p, ok := perTerm[term]
		if !ok {
			p = &Posting{}
			perTerm[term] = p
		}
		p.TermFrequency++
		weight := tok.ImportanceWeight
		if weight == 0 {
			weight = 1.0
		}
		if weight < 0 {
			weight = 0
		}
		p.WeightedFrequency += weight
		p.Positions = append(p.Positions, pos)
	}

	entry := &docEntry{length: length, terms: make([]string, 0, len(perTerm))}
	for term, posting := range perTerm {
		stats, ok := e.terms[term]
		if !ok {
			stats = &termStats{}
			e.terms[term] = stats
		}
		stats.documentFrequency++
		stats.totalFrequency += posting.TermFrequency

		byDoc, ok := e.postings[term]
		if !ok {
			byDoc = make(map[string]*Posting)
			e.postings[term] = byDoc
		}
		byDoc[doc.ID] = posting

		entry.terms = append(entry.terms, term)
	}

	e.docs[doc.ID] = entry
	e.totalDocs++
	e.totalLength += int64(length)
	e.recomputeAvgLength()

	return nil
}

// UpdateDocument replaces an existing document: its stale terms are removed
// from the index and the new token set is indexed under the same ID.
// Returns ErrCodeDocumentNotFound if the ID was never indexed.
func (e *Engine) UpdateDocument(doc Document) error {
	if _, exists := e.docs[doc.ID]; !exists {
		return errors.Newf(errors.ErrCodeDocumentNotFound,
			"document %q not found; cannot update", doc.ID)
	}
	e.removeEntry(doc.ID)
	return e.AddDocument(doc)
}

// RemoveDocument deletes a document, decrements postings for every term it
// contributed, drops empty term entries, and recomputes statistics.
// Returns ErrCodeDocumentNotFound if the ID was never indexed.
func (e *Engine) RemoveDocument(id string) error {
	if _, exists := e.docs[id]; !exists {
		return errors.Newf(errors.ErrCodeDocumentNotFound,
			"document %q not found; cannot remove", id)
	}
	e.removeEntry(id)
	return nil
}

// removeEntry deletes the document's postings and statistics.
// The caller has verified the document exists.
func (e *Engine) removeEntry(id string) {
	entry := e.docs[id]

	for _, term := range entry.terms {
		byDoc := e.postings[term]
		posting := byDoc[id]
		delete(byDoc, id)
		if len(byDoc) == 0 {
			// No live document references the term: drop the vocabulary
			// entry entirely so nothing dangles.
			delete(e.postings, term)
		}

		stats := e.terms[term]
		stats.documentFrequency--
		stats.totalFrequency -= posting.TermFrequency
		if stats.documentFrequency <= 0 {
			delete(e.terms, term)
		}
	}

	delete(e.docs, id)
	e.totalDocs--
	e.totalLength -= int64(entry.length)
	e.recomputeAvgLength()
}

// recomputeAvgLength keeps avgLength consistent with the live corpus.
// avgLength is zero iff the corpus is empty.
func (e *Engine) recomputeAvgLength() {
	if e.totalDocs > 0 {
		e.avgLength = float64(e.totalLength) / float64(e.totalDocs)
	} else {
		e.avgLength = 0
	}
}

// CalculateIDF returns the smoothed Inverse Document Frequency for a term:
//
//	idf = ln((N - df + 0.5) / (df + 0.5) + 1)
//
// The +1 smoothing keeps IDF strictly positive even when a term appears in
// more than half of all documents (the classic formula goes negative there,
// which inverts ranking), while remaining strictly decreasing in document
// frequency. A term absent from the corpus gets the df=0 value, the maximum
// for the current corpus size.
func (e *Engine) CalculateIDF(term string) float64 {
	var df float64
	if stats, ok := e.terms[strings.ToLower(term)]; ok {
		df = float64(stats.documentFrequency)
	}
	n := float64(e.totalDocs)
	return math.Log((n-df+0.5)/(df+0.5) + 1.0)
}

// CalculateScore computes the BM25 score of a document for the given query
// terms. Terms absent from the document contribute zero. Exposed directly
// for diagnostics and tests; Search uses it for ranking.
//
// The combined score is never negative: IDF is strictly positive and the
// weighted term frequency is floored at zero during indexing, so every
// per-term contribution is >= 0.
func (e *Engine) CalculateScore(terms []string, docID string) (float64, error) {
	entry, ok := e.docs[docID]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeDocumentNotFound,
			"document %q not indexed; cannot score", docID)
	}

	docLen := float64(entry.length)
	avgLen := e.avgLength
	if avgLen == 0 {
		// Only reachable when every live document is empty.
		avgLen = 1.0
	}

	var score float64
	for _, term := range terms {
		lower := strings.ToLower(term)
		byDoc, ok := e.postings[lower]
		if !ok {
			continue
		}
		posting, ok := byDoc[docID]
		if !ok {
			continue
		}
		tf := posting.WeightedFrequency
		if tf <= 0 {
			continue
		}

		idf := e.CalculateIDF(lower)
		norm := 1.0 - e.b + e.b*(docLen/avgLen)
		score += idf * (tf * (e.k1 + 1.0)) / (tf + e.k1*norm)
	}

	return score, nil
}

// Search tokenizes the query by whitespace, lowercases it, and returns the
// top limit documents ranked by summed BM25 contributions. Ties are broken
// by document ID ascending for deterministic ordering.
//
// A blank query is rejected with ErrCodeQueryEmpty. A query that matches no
// documents returns an empty slice, not an error. A non-positive limit
// returns all matches.
func (e *Engine) Search(query string, limit int) ([]Match, error) {
	queryTerms := strings.Fields(strings.ToLower(query))
	if len(queryTerms) == 0 {
		return nil, errors.New(errors.ErrCodeQueryEmpty,
			"query is empty or whitespace-only", nil)
	}

	// Gather candidates: every document containing at least one query term.
	candidates := make(map[string][]string)
	for _, term := range queryTerms {
		for docID := range e.postings[term] {
			candidates[docID] = append(candidates[docID], term)
		}
	}

	matches := make([]Match, 0, len(candidates))
	for docID, matched := range candidates {
		score, err := e.CalculateScore(queryTerms, docID)
		if err != nil {
			return nil, err
		}
		if score <= 0 || math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}

		termScores := make(map[string]float64, len(matched))
		for _, term := range matched {
			ts, err := e.CalculateScore([]string{term}, docID)
			if err != nil {
				return nil, err
			}
			if ts > 0 {
				termScores[term] = ts
			}
		}

		matches = append(matches, Match{
			DocID:        docID,
			Score:        score,
			TermScores:   termScores,
			MatchedTerms: matched,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].DocID < matches[j].DocID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Contains reports whether a document ID is indexed.
func (e *Engine) Contains(id string) bool {
	_, ok := e.docs[id]
	return ok
}

// Stats returns a read-only snapshot of corpus statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		TotalDocuments:    e.totalDocs,
		TotalTerms:        len(e.terms),
		AvgDocumentLength: e.avgLength,
		K1:                e.k1,
		B:                 e.b,
	}
}

// Clear drops all documents and statistics.
func (e *Engine) Clear() {
	e.totalDocs = 0
	e.totalLength = 0
	e.avgLength = 0
	e.terms = make(map[string]*termStats)
	e.docs = make(map[string]*docEntry)
	e.postings = make(map[string]map[string]*Posting)
}
