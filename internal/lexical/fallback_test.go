package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/store"
)

func newFallback(t *testing.T) (*SubstringProvider, store.DocumentStore) {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for _, doc := range []*store.Document{
		{ID: "d1", OwnerID: "alice", Filename: "a.txt"},
		{ID: "d2", OwnerID: "bob", Filename: "b.txt"},
	} {
		require.NoError(t, s.CreateDocument(ctx, doc))
	}
	require.NoError(t, s.SaveChunks(ctx, []*store.Chunk{
		{ChunkID: "d1__0", DocID: "d1", OwnerID: "alice", Text: "the Billing pipeline handles billing retries"},
		{ChunkID: "d2__0", DocID: "d2", OwnerID: "bob", Text: "billing happens nightly"},
	}))

	return NewSubstringProvider(s), s
}

func TestSubstringSearch(t *testing.T) {
	p, _ := newFallback(t)

	results, err := p.Search(context.Background(), "billing", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]float64{}
	for _, r := range results {
		byID[r.ChunkID] = r.Score
	}
	// Two case-insensitive occurrences in d1__0, one in d2__0.
	assert.Equal(t, 2.0, byID["d1__0"])
	assert.Equal(t, 1.0, byID["d2__0"])
}

func TestSubstringSearchOwnerFilter(t *testing.T) {
	p, _ := newFallback(t)

	results, err := p.Search(context.Background(), "billing", 10, "bob")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d2__0", results[0].ChunkID)
}

func TestSubstringSearchEmptyQuery(t *testing.T) {
	p, _ := newFallback(t)

	results, err := p.Search(context.Background(), "", 10, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}
