package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

func testChunks(docID string, n int) []*store.Chunk {
	chunks := make([]*store.Chunk, n)
	for i := range chunks {
		chunks[i] = &store.Chunk{
			ChunkID:  docID + "__" + string(rune('0'+i)),
			DocID:    docID,
			Sequence: i,
		}
	}
	return chunks
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	chunks := testChunks("d1", 3)
	embeddings := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	n, err := idx.Upsert(ctx, "alice", "d1", chunks, embeddings)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, idx.Count())
	assert.Equal(t, 4, idx.Dimensions())

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d1__0", hits[0].ChunkID)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestUpsertReplacesSameChunkID(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	chunks := testChunks("d1", 1)
	_, err := idx.Upsert(ctx, "alice", "d1", chunks, [][]float32{{1, 0, 0, 0}})
	require.NoError(t, err)

	// Same chunk ID, new embedding. Exactly one entry must remain and
	// search must see the new vector.
	_, err = idx.Upsert(ctx, "alice", "d1", chunks, [][]float32{{0, 1, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{0, 1, 0, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1__0", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.Upsert(ctx, "alice", "d1", testChunks("d1", 2), [][]float32{
		{1, 0, 0, 0}, {0, 1, 0, 0},
	})
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, "alice", "d2", testChunks("d2", 1), [][]float32{
		{0, 0, 1, 0},
	})
	require.NoError(t, err)

	removed, err := idx.DeleteDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 10, "")
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "d1", h.DocID)
	}

	// Idempotent: a second delete is a no-op with zero count.
	removed, err = idx.DeleteDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSearchOwnerFilter(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.Upsert(ctx, "alice", "d1", testChunks("d1", 1), [][]float32{{1, 0, 0, 0}})
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, "bob", "d2", testChunks("d2", 1), [][]float32{{1, 0.1, 0, 0}})
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 10, "bob")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d2", hits[0].DocID)
}

func TestDimensionPolicy(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	// First upsert adopts the dimensionality.
	_, err := idx.Upsert(ctx, "alice", "d1", testChunks("d1", 1), [][]float32{
		make([]float32, 768),
	})
	require.NoError(t, err)
	assert.Equal(t, 768, idx.Dimensions())

	// A different dimensionality on a non-empty index is refused, for
	// both upsert and search.
	_, err = idx.Upsert(ctx, "alice", "d2", testChunks("d2", 1), [][]float32{
		make([]float32, 384),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
	assert.Equal(t, 1, idx.Count())

	_, err = idx.Search(ctx, make([]float32, 384), 5, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))

	// Once the index drains, a new dimensionality is adopted.
	_, err = idx.DeleteDocument(ctx, "d1")
	require.NoError(t, err)

	emb := make([]float32, 384)
	emb[0] = 1
	_, err = idx.Upsert(ctx, "alice", "d3", testChunks("d3", 1), [][]float32{emb})
	require.NoError(t, err)
	assert.Equal(t, 384, idx.Dimensions())
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchInvalidK(t *testing.T) {
	idx := newTestIndex(t)
	_, err := idx.Search(context.Background(), []float32{1, 0}, 0, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	idx, err := New(Config{Path: path})
	require.NoError(t, err)

	_, err = idx.Upsert(ctx, "alice", "d1", testChunks("d1", 2), [][]float32{
		{1, 0, 0, 0}, {0, 1, 0, 0},
	})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := New(Config{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.Count())
	assert.Equal(t, 4, reopened.Dimensions())

	hits, err := reopened.Search(ctx, []float32{0, 1, 0, 0}, 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1__1", hits[0].ChunkID)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.Upsert(ctx, "alice", "d1", testChunks("d1", 1), [][]float32{{1, 0}})
	require.NoError(t, err)

	entry, ok := idx.Resolve("d1__0")
	require.True(t, ok)
	assert.Equal(t, "alice", entry.OwnerID)

	_, ok = idx.Resolve("missing__0")
	assert.False(t, ok)
}

func TestDeleteThenReingest(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	chunks := testChunks("d1", 2)
	embeddings := [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}

	_, err := idx.Upsert(ctx, "alice", "d1", chunks, embeddings)
	require.NoError(t, err)

	// Chunk keys are deterministic, so the re-ingested document lands on
	// the exact keys just deleted. The graph must accept them again.
	_, err = idx.DeleteDocument(ctx, "d1")
	require.NoError(t, err)

	n, err := idx.Upsert(ctx, "alice", "d1", chunks, embeddings)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, idx.Count())

	hits, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d1__0", hits[0].ChunkID)
}

func TestDeleteKeepsRemainingDocSearchable(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.Upsert(ctx, "alice", "d1", testChunks("d1", 2), [][]float32{
		{1, 0, 0, 0}, {0, 1, 0, 0},
	})
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, "alice", "d2", testChunks("d2", 1), [][]float32{
		{0, 0, 1, 0},
	})
	require.NoError(t, err)

	_, err = idx.DeleteDocument(ctx, "d1")
	require.NoError(t, err)

	stats := idx.Stats()
	assert.Equal(t, 1, stats.Vectors)
	assert.Equal(t, 1, stats.GraphNodes)

	hits, err := idx.Search(ctx, []float32{0, 0, 1, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d2", hits[0].DocID)
}

func TestSearchAfterFullDelete(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	_, err := idx.Upsert(ctx, "alice", "d1", testChunks("d1", 1), [][]float32{{1, 0, 0}})
	require.NoError(t, err)
	_, err = idx.DeleteDocument(ctx, "d1")
	require.NoError(t, err)

	assert.Equal(t, 0, idx.Stats().GraphNodes)

	// A drained index accepts any query dimensionality and returns no
	// hits, including after an embedding model change.
	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, []float32{1, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
