package search

import (
	"context"
	"strings"
	"sync"

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

// KeywordBackend serves the text match type from an owned BM25 engine.
//
// The BM25 engine is a plain lock-free structure; this wrapper provides the
// single-writer reader-writer lock, so index mutations serialize against
// each other and against Search while concurrent Searches against a stable
// index run in parallel.
type KeywordBackend struct {
	mu     sync.RWMutex
	engine *bm25.Engine
	meta   map[string]docMeta
}

// docMeta carries what the BM25 engine does not keep: where the chunk lives
// and its raw content for snippets.
type docMeta struct {
	filePath  string
	startLine int
	content   string
}

// Verify interface implementation at compile time.
var _ Backend = (*KeywordBackend)(nil)

// NewKeywordBackend creates a keyword backend around a fresh BM25 engine.
func NewKeywordBackend() *KeywordBackend {
	return NewKeywordBackendWithParams(bm25.DefaultK1, bm25.DefaultB)
}

// NewKeywordBackendWithParams creates a keyword backend with explicit BM25
// tuning parameters.
func NewKeywordBackendWithParams(k1, b float64) *KeywordBackend {
	return &KeywordBackend{
		engine: bm25.NewEngineWithParams(k1, b),
		meta:   make(map[string]docMeta),
	}
}

// Name implements Backend.
func (k *KeywordBackend) Name() string { return "keyword" }

// MatchType implements Backend.
func (k *KeywordBackend) MatchType() fusion.MatchType { return fusion.MatchTypeText }

// Index adds a document and its raw content to the backend.
func (k *KeywordBackend) Index(doc bm25.Document, content string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.engine.AddDocument(doc); err != nil {
		return err
	}
	k.meta[doc.ID] = docMeta{
		filePath:  doc.FilePath,
		startLine: doc.StartLine,
		content:   content,
	}
	return nil
}

// Update replaces an existing document.
func (k *KeywordBackend) Update(doc bm25.Document, content string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.engine.UpdateDocument(doc); err != nil {
		return err
	}
	k.meta[doc.ID] = docMeta{
		filePath:  doc.FilePath,
		startLine: doc.StartLine,
		content:   content,
	}
	return nil
}

// Remove deletes a document.
func (k *KeywordBackend) Remove(id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.engine.RemoveDocument(id); err != nil {
		return err
	}
	delete(k.meta, id)
	return nil
}

// Search implements Backend. The query goes through the same code-aware
// tokenizer as indexed documents, so "connectDatabase" finds chunks indexed
// under "connect database". Errors from the BM25 engine (empty query)
// propagate unchanged.
func (k *KeywordBackend) Search(ctx context.Context, query string, limit int) ([]fusion.SearchResult, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	matches, err := k.engine.Search(normalizeQuery(query), limit)
	if err != nil {
		return nil, err
	}

	results := make([]fusion.SearchResult, 0, len(matches))
	for _, m := range matches {
		meta := k.meta[m.DocID]
		results = append(results, fusion.SearchResult{
			Content:    meta.content,
			FilePath:   meta.filePath,
			Score:      m.Score,
			MatchType:  fusion.MatchTypeText,
			LineNumber: meta.startLine,
		})
	}
	return results, nil
}

// normalizeQuery splits query identifiers the way indexing does. A query
// reduced to nothing by the tokenizer (stop words, punctuation) passes
// through unchanged so the engine's own validation applies.
func normalizeQuery(query string) string {
	tokens := bm25.TokenizeCode(query)
	if len(tokens) == 0 {
		return query
	}
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Text
	}
	return strings.Join(terms, " ")
}

// Stats returns a snapshot of the BM25 corpus statistics.
func (k *KeywordBackend) Stats() bm25.Stats {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.engine.Stats()
}

// Matches exposes raw BM25 matches with per-term diagnostics.
func (k *KeywordBackend) Matches(query string, limit int) ([]bm25.Match, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.engine.Search(query, limit)
}
