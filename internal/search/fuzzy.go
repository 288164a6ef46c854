package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

const (
	// codeTokenizerName is the name of our custom code tokenizer.
	codeTokenizerName = "rankfuse_code_tokenizer"

	// codeAnalyzerName is the name of our custom code analyzer.
	codeAnalyzerName = "rankfuse_code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
}

// FuzzyBackend serves the fuzzy match type from an in-memory Bleve index.
// Match queries run with edit-distance fuzziness so near-miss identifiers
// (typos, singular/plural) still surface.
type FuzzyBackend struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// fuzzyDocument is the document structure for Bleve indexing.
type fuzzyDocument struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Line    int    `json:"line"`
}

// Verify interface implementation at compile time.
var _ Backend = (*FuzzyBackend)(nil)

// NewFuzzyBackend creates an in-memory fuzzy full-text backend.
func NewFuzzyBackend() (*FuzzyBackend, error) {
	indexMapping, err := createFuzzyMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &FuzzyBackend{index: idx}, nil
}

// createFuzzyMapping creates the Bleve index mapping with the code analyzer.
func createFuzzyMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(codeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = codeAnalyzerName
	return indexMapping, nil
}

// Name implements Backend.
func (f *FuzzyBackend) Name() string { return "fuzzy" }

// MatchType implements Backend.
func (f *FuzzyBackend) MatchType() fusion.MatchType { return fusion.MatchTypeFuzzy }

// Index adds documents to the backend in one batch.
func (f *FuzzyBackend) Index(docs []bm25.Document, contents map[string]string) error {
	if len(docs) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("index is closed")
	}

	batch := f.index.NewBatch()
	for _, doc := range docs {
		fd := fuzzyDocument{
			Path:    doc.FilePath,
			Content: contents[doc.ID],
			Line:    doc.StartLine,
		}
		if err := batch.Index(doc.ID, fd); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}

	if err := f.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Delete removes documents from the backend.
func (f *FuzzyBackend) Delete(docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("index is closed")
	}

	batch := f.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}
	return f.index.Batch(batch)
}

// Search implements Backend.
func (f *FuzzyBackend) Search(ctx context.Context, queryStr string, limit int) ([]fusion.SearchResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []fusion.SearchResult{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")
	matchQuery.SetFuzziness(1)

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"path", "content", "line"}

	result, err := f.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]fusion.SearchResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		sr := fusion.SearchResult{
			Score:     hit.Score,
			MatchType: fusion.MatchTypeFuzzy,
		}
		if path, ok := hit.Fields["path"].(string); ok {
			sr.FilePath = path
		}
		if content, ok := hit.Fields["content"].(string); ok {
			sr.Content = content
		}
		if line, ok := hit.Fields["line"].(float64); ok {
			sr.LineNumber = int(line)
		}
		results = append(results, sr)
	}
	return results, nil
}

// Close closes the underlying index. Idempotent.
func (f *FuzzyBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.index.Close()
}

// codeTokenizerConstructor creates the code tokenizer for Bleve.
func codeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

// bleveCodeTokenizer implements analysis.Tokenizer using the same
// camelCase/snake_case splitting as the BM25 indexing path, so both
// backends agree on what a term is.
type bleveCodeTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := bm25.TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		// Find the token in the original text (case-insensitive).
		start := strings.Index(strings.ToLower(text[offset:]), token.Text)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token.Text)

		result = append(result, &analysis.Token{
			Term:     []byte(token.Text),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}
