// Package chunk splits document text into overlapping word windows for
// indexing. Chunk IDs are derived from the document ID and the window
// sequence number, so re-chunking the same text yields the same IDs.
package chunk

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docrag/internal/store"
)

// Chunker produces fixed-size word windows with overlap.
type Chunker struct {
	size    int // words per chunk
	overlap int // words shared between consecutive chunks
}

// New creates a chunker. Non-positive size falls back to 500 words and
// the overlap is clamped below the size.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks text into word windows. Whitespace of any kind separates
// words; empty or whitespace-only text yields no chunks.
func (c *Chunker) Split(docID, ownerID, text string) []*store.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	chunks := make([]*store.Chunk, 0, (len(words)+stride-1)/stride)

	for start, seq := 0, 0; start < len(words); start, seq = start+stride, seq+1 {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		window := words[start:end]
		chunks = append(chunks, &store.Chunk{
			ChunkID:    ChunkID(docID, seq),
			DocID:      docID,
			OwnerID:    ownerID,
			Text:       strings.Join(window, " "),
			Sequence:   seq,
			TokenCount: len(window),
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

// ChunkID builds the canonical chunk identifier for a document window.
func ChunkID(docID string, seq int) string {
	return fmt.Sprintf("%s__%d", docID, seq)
}
