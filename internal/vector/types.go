// Package vector owns the approximate-nearest-neighbor index, its
// chunk-ID mapping table, and the dimension-reconciliation policy.
package vector

// Hit is a single vector search result, ordered by descending score.
type Hit struct {
	ChunkID string
	DocID   string
	// Score is the inner product between the normalized query and the
	// stored vector (equivalent to cosine similarity, higher is better).
	Score float32
}

// Entry is a mapping-table record tying an int64 graph key back to the
// chunk it indexes. Every key present in the graph has exactly one Entry
// and vice versa (live keys; lazily deleted graph nodes excepted).
type Entry struct {
	ChunkID string
	DocID   string
	OwnerID string
}

// Config configures the vector index.
type Config struct {
	// Path is where the snapshot is persisted. Empty disables persistence
	// (in-memory index for tests).
	Path string

	// M is the HNSW max connections per layer (default: 16).
	M int

	// EfSearch is the HNSW query-time search width (default: 20).
	EfSearch int
}

// Stats describes the index state for status reporting.
type Stats struct {
	Vectors    int // Live mapping entries
	GraphNodes int // Total nodes in the graph, including lazily deleted ones
	Dimensions int // Active dimensionality, 0 when uninitialized
}
