package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/errors"
	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

func keywordDoc(id, path string, startLine int, content string) (bm25.Document, string) {
	return bm25.Document{
		ID:        id,
		FilePath:  path,
		Tokens:    bm25.TokenizeCode(content),
		StartLine: startLine,
		EndLine:   startLine + 10,
	}, content
}

func TestKeywordBackend_IndexAndSearch(t *testing.T) {
	k := NewKeywordBackend()
	doc, content := keywordDoc("a.go#0", "a.go", 1, "func connectDatabase() error")
	require.NoError(t, k.Index(doc, content))

	results, err := k.Search(context.Background(), "database", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "a.go", r.FilePath)
	assert.Equal(t, 1, r.LineNumber)
	assert.Equal(t, content, r.Content)
	assert.Equal(t, fusion.MatchTypeText, r.MatchType)
	assert.Greater(t, r.Score, 0.0)
}

func TestKeywordBackend_UpdateAndRemove(t *testing.T) {
	k := NewKeywordBackend()
	doc, content := keywordDoc("a.go#0", "a.go", 1, "func connectDatabase() error")
	require.NoError(t, k.Index(doc, content))

	updated, newContent := keywordDoc("a.go#0", "a.go", 1, "func flushQueue() error")
	require.NoError(t, k.Update(updated, newContent))

	results, err := k.Search(context.Background(), "database", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = k.Search(context.Background(), "queue", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, newContent, results[0].Content)

	require.NoError(t, k.Remove("a.go#0"))
	results, err = k.Search(context.Background(), "queue", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestKeywordBackend_DuplicateIndexRejected(t *testing.T) {
	k := NewKeywordBackend()
	doc, content := keywordDoc("a.go#0", "a.go", 1, "alpha beta")
	require.NoError(t, k.Index(doc, content))

	err := k.Index(doc, content)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDuplicateDocument))
}

func TestKeywordBackend_EmptyQueryPropagates(t *testing.T) {
	k := NewKeywordBackend()
	_, err := k.Search(context.Background(), "  ", 10)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeQueryEmpty))
}

func TestKeywordBackend_Stats(t *testing.T) {
	k := NewKeywordBackendWithParams(1.4, 0.5)
	doc, content := keywordDoc("a.go#0", "a.go", 1, "connectDatabase flushQueue")
	require.NoError(t, k.Index(doc, content))

	stats := k.Stats()
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1.4, stats.K1)
	assert.Equal(t, 0.5, stats.B)
}

func TestKeywordBackend_ConcurrentSearches(t *testing.T) {
	k := NewKeywordBackend()
	doc, content := keywordDoc("a.go#0", "a.go", 1, "func connectDatabase() error")
	require.NoError(t, k.Index(doc, content))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				_, err := k.Search(context.Background(), "database", 10)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
