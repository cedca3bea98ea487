package lexical

import (
	"context"
	"strings"

	"github.com/Aman-CERP/docrag/internal/store"
)

// SubstringProvider is a degraded-mode keyword searcher backed by the
// document store. It scans chunk text for case-insensitive substring
// matches and scores hits by occurrence count. Used when the real
// keyword index is unavailable.
type SubstringProvider struct {
	store store.DocumentStore
}

var _ Provider = (*SubstringProvider)(nil)

// NewSubstringProvider creates a store-backed fallback searcher.
func NewSubstringProvider(s store.DocumentStore) *SubstringProvider {
	return &SubstringProvider{store: s}
}

// Index is a no-op: the store already holds the chunk text.
func (p *SubstringProvider) Index(ctx context.Context, chunks []Chunk) error {
	return nil
}

// Search scans stored chunks for the query as a substring. Scores are
// occurrence counts, so multi-hit chunks rank first.
func (p *SubstringProvider) Search(ctx context.Context, query string, limit int, ownerFilter string) ([]Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []Result{}, nil
	}

	chunks, err := p.store.ScanChunks(ctx, trimmed, ownerFilter, limit)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(trimmed)
	results := make([]Result, 0, len(chunks))
	for _, ch := range chunks {
		count := strings.Count(strings.ToLower(ch.Text), needle)
		if count == 0 {
			count = 1
		}
		results = append(results, Result{
			ChunkID: ch.ChunkID,
			DocID:   ch.DocID,
			Score:   float64(count),
		})
	}
	return results, nil
}

// DeleteDocument is a no-op: deletion happens in the store.
func (p *SubstringProvider) DeleteDocument(ctx context.Context, docID string) error {
	return nil
}

// Close is a no-op: the store is owned elsewhere.
func (p *SubstringProvider) Close() error {
	return nil
}
