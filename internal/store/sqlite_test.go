package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/errors"
)

func testDocs() ([]bm25.Document, map[string]string) {
	docs := []bm25.Document{
		{
			ID:         "a.go#0",
			FilePath:   "a.go",
			ChunkIndex: 0,
			StartLine:  1,
			EndLine:    40,
			Language:   "go",
			Tokens: []bm25.Token{
				{Text: "connect", Position: 0, ImportanceWeight: 1.0},
				{Text: "database", Position: 1, ImportanceWeight: 2.0},
			},
		},
		{
			ID:         "a.go#1",
			FilePath:   "a.go",
			ChunkIndex: 1,
			StartLine:  41,
			EndLine:    60,
			Language:   "go",
			Tokens: []bm25.Token{
				{Text: "flush", Position: 0, ImportanceWeight: 1.0},
			},
		},
	}
	contents := map[string]string{
		"a.go#0": "func connectDatabase() error",
		"a.go#1": "func flush() error",
	}
	return docs, contents
}

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAndLoadRoundtrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	s := openTestStore(t, path)

	docs, contents := testDocs()
	require.NoError(t, s.SaveDocuments(ctx, docs, contents))
	require.NoError(t, s.Close())

	reopened := openTestStore(t, path)
	loaded, loadedContents, err := reopened.LoadAll(ctx)
	require.NoError(t, err)

	require.Len(t, loaded, 2)
	assert.Equal(t, docs, loaded)
	assert.Equal(t, contents, loadedContents)
}

func TestStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	docs, contents := testDocs()
	require.NoError(t, s.SaveDocuments(ctx, docs, contents))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_SaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	docs, contents := testDocs()
	require.NoError(t, s.SaveDocuments(ctx, docs, contents))

	// Re-save the first chunk with new tokens and content.
	updated := docs[0]
	updated.Tokens = []bm25.Token{{Text: "reconnect", Position: 0, ImportanceWeight: 1.0}}
	newContents := map[string]string{updated.ID: "func reconnect() error"}
	require.NoError(t, s.SaveDocuments(ctx, []bm25.Document{updated}, newContents))

	loaded, loadedContents, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, updated.Tokens, loaded[0].Tokens)
	assert.Equal(t, "func reconnect() error", loadedContents[updated.ID])
}

func TestStore_DeleteDocuments(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	docs, contents := testDocs()
	require.NoError(t, s.SaveDocuments(ctx, docs, contents))
	require.NoError(t, s.DeleteDocuments(ctx, []string{"a.go#0"}))

	loaded, loadedContents, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a.go#1", loaded[0].ID)
	assert.NotContains(t, loadedContents, "a.go#0")
}

func TestStore_LockRejectsSecondOpener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s := openTestStore(t, path)
	_ = s

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexLocked))
}

func TestStore_ReadersShareLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	writer, err := Open(path)
	require.NoError(t, err)
	docs, contents := testDocs()
	require.NoError(t, writer.SaveDocuments(ctx, docs, contents))
	require.NoError(t, writer.Close())

	// Two read-only stores coexist.
	r1, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer r1.Close()
	r2, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer r2.Close()

	loaded, _, err := r1.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	// A writer cannot grab the exclusive lock while readers hold shares.
	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexLocked))
}

func TestStore_ReadOnlyRejectsMutations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	writer, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	r, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer r.Close()

	docs, contents := testDocs()
	assert.Error(t, r.SaveDocuments(ctx, docs, contents))
	assert.Error(t, r.DeleteDocuments(ctx, []string{"a.go#0"}))
}

func TestStore_LockReleasedOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Close())
}

func TestStore_ClosedStoreRejectsOperations(t *testing.T) {
	ctx := context.Background()
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	docs, contents := testDocs()
	assert.Error(t, s.SaveDocuments(ctx, docs, contents))
	_, _, err = s.LoadAll(ctx)
	assert.Error(t, err)

	// Close stays idempotent.
	assert.NoError(t, s.Close())
}

func TestStore_EmptyBatchesAreNoOps(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	require.NoError(t, s.SaveDocuments(ctx, nil, nil))
	require.NoError(t, s.DeleteDocuments(ctx, nil))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
