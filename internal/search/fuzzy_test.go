package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/fusion"
)

func newTestFuzzyBackend(t *testing.T) *FuzzyBackend {
	t.Helper()
	f, err := NewFuzzyBackend()
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func fuzzyDocs() ([]bm25.Document, map[string]string) {
	docs := []bm25.Document{
		{ID: "db.go#0", FilePath: "db.go", StartLine: 1},
		{ID: "http.go#0", FilePath: "http.go", StartLine: 20},
	}
	contents := map[string]string{
		"db.go#0":   "func connectDatabase() error { return dialPostgres() }",
		"http.go#0": "func serveRequests(listener net.Listener) error",
	}
	return docs, contents
}

func TestFuzzyBackend_IndexAndSearch(t *testing.T) {
	f := newTestFuzzyBackend(t)
	docs, contents := fuzzyDocs()
	require.NoError(t, f.Index(docs, contents))

	results, err := f.Search(context.Background(), "database", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "db.go", top.FilePath)
	assert.Equal(t, 1, top.LineNumber)
	assert.Equal(t, fusion.MatchTypeFuzzy, top.MatchType)
	assert.Greater(t, top.Score, 0.0)
	assert.Contains(t, top.Content, "connectDatabase")
}

func TestFuzzyBackend_ToleratesTypos(t *testing.T) {
	f := newTestFuzzyBackend(t)
	docs, contents := fuzzyDocs()
	require.NoError(t, f.Index(docs, contents))

	// One edit away from "database".
	results, err := f.Search(context.Background(), "databse", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "db.go", results[0].FilePath)
}

func TestFuzzyBackend_BlankQueryIsEmptyResult(t *testing.T) {
	f := newTestFuzzyBackend(t)
	docs, contents := fuzzyDocs()
	require.NoError(t, f.Index(docs, contents))

	results, err := f.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFuzzyBackend_Delete(t *testing.T) {
	f := newTestFuzzyBackend(t)
	docs, contents := fuzzyDocs()
	require.NoError(t, f.Index(docs, contents))

	require.NoError(t, f.Delete([]string{"db.go#0"}))

	results, err := f.Search(context.Background(), "database", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFuzzyBackend_CloseIdempotent(t *testing.T) {
	f, err := NewFuzzyBackend()
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Search(context.Background(), "anything", 10)
	assert.Error(t, err)
}
