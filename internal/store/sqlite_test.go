package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedDocument(t *testing.T, s *SQLiteStore, docID, ownerID string) {
	t.Helper()
	require.NoError(t, s.CreateDocument(context.Background(), &Document{
		ID:       docID,
		OwnerID:  ownerID,
		Filename: docID + ".txt",
		Path:     "/uploads/" + docID + ".txt",
	}))
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, s, "d1", "u1")

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, doc.Status)
	assert.Equal(t, "u1", doc.OwnerID)

	require.NoError(t, s.SetDocumentStatus(ctx, "d1", StatusIndexed, ""))
	doc, err = s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, doc.Status)

	require.NoError(t, s.DeleteDocument(ctx, "d1"))
	_, err = s.GetDocument(ctx, "d1")
	assert.True(t, errors.IsNotFound(err))
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestSetDocumentStatus_RecordsError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "d1", "u1")

	require.NoError(t, s.SetDocumentStatus(ctx, "d1", StatusError, "embedding provider unreachable"))

	doc, err := s.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, doc.Status)
	assert.Equal(t, "embedding provider unreachable", doc.Error)
}

func TestListDocuments_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "d1", "u1")
	seedDocument(t, s, "d2", "u1")
	seedDocument(t, s, "d3", "u2")

	docs, err := s.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, "u1", d.OwnerID)
	}
}

func TestSaveChunks_ReplaceNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "d1", "u1")

	chunk := &Chunk{ChunkID: "d1__0", DocID: "d1", OwnerID: "u1", Text: "first", Sequence: 0, TokenCount: 1}
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{chunk}))

	chunk.Text = "second"
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{chunk}))

	chunks, err := s.ChunksByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "second", chunks[0].Text)
}

func TestGetChunks_PreservesInputOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "d1", "u1")

	var chunks []*Chunk
	for i := 0; i < 3; i++ {
		chunks = append(chunks, &Chunk{
			ChunkID:    fmt.Sprintf("d1__%d", i),
			DocID:      "d1",
			OwnerID:    "u1",
			Text:       fmt.Sprintf("chunk %d", i),
			Sequence:   i,
			TokenCount: 2,
		})
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	got, err := s.GetChunks(ctx, []string{"d1__2", "d1__0", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1__2", got[0].ChunkID)
	assert.Equal(t, "d1__0", got[1].ChunkID)
}

func TestDeleteDocument_CascadesToChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "d1", "u1")
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ChunkID: "d1__0", DocID: "d1", OwnerID: "u1", Text: "hello", Sequence: 0, TokenCount: 1},
	}))

	require.NoError(t, s.DeleteDocument(ctx, "d1"))

	chunks, err := s.ChunksByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestScanChunks_SubstringFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "d1", "u1")
	seedDocument(t, s, "d2", "u2")

	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{ChunkID: "d1__0", DocID: "d1", OwnerID: "u1", Text: "Invoices are due in thirty days", Sequence: 0, TokenCount: 6},
		{ChunkID: "d1__1", DocID: "d1", OwnerID: "u1", Text: "unrelated content", Sequence: 1, TokenCount: 2},
		{ChunkID: "d2__0", DocID: "d2", OwnerID: "u2", Text: "invoices from another owner", Sequence: 0, TokenCount: 4},
	}))

	// Case-insensitive match, owner filtered.
	got, err := s.ScanChunks(ctx, "invoices", "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1__0", got[0].ChunkID)

	// No owner filter sees both.
	got, err = s.ScanChunks(ctx, "invoices", "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
