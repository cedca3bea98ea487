package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seedChunks(t *testing.T, idx *BleveIndex) {
	t.Helper()
	err := idx.Index(context.Background(), []Chunk{
		{ChunkID: "d1__0", DocID: "d1", OwnerID: "alice", Text: "invoices are processed by the billing pipeline"},
		{ChunkID: "d1__1", DocID: "d1", OwnerID: "alice", Text: "refunds require manager approval"},
		{ChunkID: "d2__0", DocID: "d2", OwnerID: "bob", Text: "the billing pipeline retries failed invoices"},
	})
	require.NoError(t, err)
}

func TestBleveSearch(t *testing.T) {
	idx := newMemIndex(t)
	seedChunks(t, idx)

	results, err := idx.Search(context.Background(), "billing invoices", 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)

	ids := make([]string, 0, len(results))
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.NotEmpty(t, r.DocID)
		ids = append(ids, r.ChunkID)
	}
	assert.Contains(t, ids, "d1__0")
	assert.Contains(t, ids, "d2__0")
	assert.NotContains(t, ids, "d1__1")
}

func TestBleveSearchOwnerFilter(t *testing.T) {
	idx := newMemIndex(t)
	seedChunks(t, idx)

	results, err := idx.Search(context.Background(), "billing", 10, "bob")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d2__0", results[0].ChunkID)
	assert.Equal(t, "d2", results[0].DocID)
}

func TestBleveSearchEmptyQuery(t *testing.T) {
	idx := newMemIndex(t)
	seedChunks(t, idx)

	results, err := idx.Search(context.Background(), "   ", 10, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveReindexReplacesChunk(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []Chunk{
		{ChunkID: "d1__0", DocID: "d1", OwnerID: "alice", Text: "original wording"},
	}))
	require.NoError(t, idx.Index(ctx, []Chunk{
		{ChunkID: "d1__0", DocID: "d1", OwnerID: "alice", Text: "replacement wording"},
	}))

	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, "original", 10, "")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(ctx, "replacement", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestBleveDeleteDocument(t *testing.T) {
	idx := newMemIndex(t)
	seedChunks(t, idx)
	ctx := context.Background()

	require.NoError(t, idx.DeleteDocument(ctx, "d1"))
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, "refunds", 10, "")
	require.NoError(t, err)
	assert.Empty(t, results)

	// Deleting an absent document is a no-op.
	require.NoError(t, idx.DeleteDocument(ctx, "missing"))
}

func TestBlevePersistence(t *testing.T) {
	path := t.TempDir() + "/lexical.bleve"

	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	seedChunks(t, idx)
	require.NoError(t, idx.Close())

	reopened, err := NewBleveIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 3, reopened.Count())
	results, err := reopened.Search(context.Background(), "refunds", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1__1", results[0].ChunkID)
}
