// Package lexical provides keyword-based retrieval over chunk text,
// complementing dense vector search.
package lexical

import "context"

// Result is one scored lexical match.
type Result struct {
	ChunkID string
	DocID   string
	Score   float64
}

// Provider is the keyword search surface the retrieval pipeline uses.
type Provider interface {
	// Index adds or replaces chunks in the keyword index.
	Index(ctx context.Context, chunks []Chunk) error

	// Search returns up to limit scored matches for the query. An empty
	// ownerFilter matches all owners.
	Search(ctx context.Context, query string, limit int, ownerFilter string) ([]Result, error)

	// DeleteDocument removes all chunks of a document from the index.
	DeleteDocument(ctx context.Context, docID string) error

	// Close releases resources.
	Close() error
}

// Chunk is the indexable unit handed to a Provider.
type Chunk struct {
	ChunkID string
	DocID   string
	OwnerID string
	Text    string
}
