package query

import (
	"github.com/Aman-CERP/docrag/internal/lexical"
	"github.com/Aman-CERP/docrag/internal/vector"
)

// candidate is a merged retrieval result before text hydration.
type candidate struct {
	ChunkID string
	DocID   string
	Score   float64
}

// mergeCandidates deduplicates dense and sparse hits by chunk ID,
// keeping the higher raw score for chunks both retrievers found. Dense
// hits enter first, so on equal scores the dense entry wins. Output
// order is first-seen order.
func mergeCandidates(dense []vector.Hit, sparse []lexical.Result) []candidate {
	order := make([]string, 0, len(dense)+len(sparse))
	best := make(map[string]candidate, len(dense)+len(sparse))

	add := func(c candidate) {
		existing, seen := best[c.ChunkID]
		if !seen {
			order = append(order, c.ChunkID)
			best[c.ChunkID] = c
			return
		}
		if c.Score > existing.Score {
			best[c.ChunkID] = c
		}
	}

	for _, h := range dense {
		add(candidate{ChunkID: h.ChunkID, DocID: h.DocID, Score: float64(h.Score)})
	}
	for _, r := range sparse {
		add(candidate{ChunkID: r.ChunkID, DocID: r.DocID, Score: r.Score})
	}

	merged := make([]candidate, 0, len(order))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	return merged
}
