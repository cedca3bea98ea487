package vector

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// Index is the vector index manager. It owns the HNSW graph and the
// chunk-ID mapping table, and serializes all mutating operations against
// each other and against snapshot persistence.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[int64]
	mapping map[int64]Entry
	dims    int // 0 until the first vector fixes the dimensionality
	config  Config
	closed  bool
}

// snapshotMeta is the gob sidecar persisted next to the graph export.
type snapshotMeta struct {
	Mapping    map[int64]Entry
	Dimensions int
	Config     Config
}

// New creates a vector index. If cfg.Path points at an existing snapshot,
// it is loaded.
func New(cfg Config) (*Index, error) {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	idx := &Index{
		mapping: make(map[int64]Entry),
		config:  cfg,
	}
	idx.graph = idx.newGraph()

	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); err == nil {
			if err := idx.load(cfg.Path); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCorruptIndex,
					fmt.Errorf("load vector snapshot %s: %w", cfg.Path, err))
			}
		}
	}

	return idx, nil
}

func (x *Index) newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.Distance = hnsw.CosineDistance
	g.M = x.config.M
	g.EfSearch = x.config.EfSearch
	g.Ml = 0.25
	return g
}

// Upsert normalizes and indexes one embedding per chunk, writing the
// mapping entry for each. The snapshot is persisted after the batch.
// Returns the number of vectors inserted or replaced.
//
// A dimensionality change while the index holds vectors is refused: an
// upsert never silently drops existing vectors. Re-embedding with a
// different model requires deleting the snapshot and reingesting.
func (x *Index) Upsert(ctx context.Context, ownerID, docID string, chunks []*store.Chunk, embeddings [][]float32) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, errors.InvalidInput(
			fmt.Sprintf("chunks and embeddings length mismatch: %d vs %d", len(chunks), len(embeddings)))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return 0, fmt.Errorf("index is closed")
	}

	for i, emb := range embeddings {
		if err := x.reconcileDims(len(emb)); err != nil {
			return 0, err
		}

		vec := make([]float32, len(emb))
		copy(vec, emb)
		normalizeInPlace(vec)

		key := IntKey(chunks[i].ChunkID)
		x.replaceNode(key, vec)
		x.mapping[key] = Entry{
			ChunkID: chunks[i].ChunkID,
			DocID:   docID,
			OwnerID: ownerID,
		}
	}

	if err := x.save(); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// replaceNode inserts a vector under key, replacing any existing node.
// Holding the sole remaining node, a delete can leave the graph in a bad
// state, so a single-node graph is rebuilt instead of deleted from.
func (x *Index) replaceNode(key int64, vec []float32) {
	if _, exists := x.mapping[key]; exists {
		if len(x.mapping) == 1 {
			x.graph = x.newGraph()
		} else {
			x.graph.Delete(key)
		}
	}
	x.graph.Add(hnsw.MakeNode(key, vec))
}

// Search returns up to k nearest neighbors of the query embedding,
// resolved through the mapping table and filtered by owner when a filter
// is given.
func (x *Index) Search(ctx context.Context, embedding []float32, k int, ownerFilter string) ([]Hit, error) {
	if k <= 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("k must be positive, got %d", k))
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, fmt.Errorf("index is closed")
	}

	// Search semantics never reset a non-empty index; with an empty or
	// uninitialized index the incoming dimensionality is simply adopted.
	if err := x.reconcileDimsLocked(len(embedding)); err != nil {
		return nil, err
	}

	if len(x.mapping) == 0 || x.graph.Len() == 0 {
		return []Hit{}, nil
	}

	query := make([]float32, len(embedding))
	copy(query, embedding)
	normalizeInPlace(query)

	nodes := x.graph.Search(query, k)

	hits := make([]Hit, 0, len(nodes))
	for _, node := range nodes {
		entry, ok := x.mapping[node.Key]
		if !ok {
			continue
		}
		if ownerFilter != "" && entry.OwnerID != ownerFilter {
			continue
		}
		hits = append(hits, Hit{
			ChunkID: entry.ChunkID,
			DocID:   entry.DocID,
			Score:   dot(query, node.Value),
		})
	}
	return hits, nil
}

// DeleteDocument removes all vectors and mapping entries for a document
// and persists the snapshot. Returns the count removed; zero with no
// error when the document had no vectors.
//
// Nodes are removed from the graph as well as the mapping: chunk keys
// are deterministic hashes, so a re-ingested document reuses the same
// keys and the graph must not still hold them.
func (x *Index) DeleteDocument(ctx context.Context, docID string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return 0, fmt.Errorf("index is closed")
	}

	keys := make([]int64, 0)
	for key, entry := range x.mapping {
		if entry.DocID == docID {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	for _, key := range keys {
		delete(x.mapping, key)
	}
	if len(x.mapping) == 0 {
		// Deleting the last nodes one by one can leave the graph in a
		// bad state, and the empty graph should not pin the old
		// dimensionality either. Start fresh.
		x.graph = x.newGraph()
	} else {
		for _, key := range keys {
			x.graph.Delete(key)
		}
	}
	removed := len(keys)

	if err := x.save(); err != nil {
		return 0, err
	}
	return removed, nil
}

// reconcileDims applies the dimensionality policy under the write lock.
func (x *Index) reconcileDims(dim int) error {
	if dim <= 0 {
		return errors.InvalidInput("embedding vector dimension must be positive")
	}

	if x.dims == 0 {
		x.dims = dim
		return nil
	}
	if x.dims == dim {
		return nil
	}
	if len(x.mapping) == 0 {
		// Idle reconfiguration: no vectors to lose, adopt the new
		// dimensionality and start a fresh graph.
		slog.Info("vector_index_reinitialized",
			slog.Int("old_dim", x.dims), slog.Int("new_dim", dim))
		x.graph = x.newGraph()
		x.dims = dim
		return nil
	}
	return errors.DimensionMismatch(x.dims, dim)
}

// reconcileDimsLocked is the read-path variant: it only succeeds when the
// incoming dimensionality needs no index mutation, or the index is empty
// (searching an empty index of any dimensionality returns no hits).
func (x *Index) reconcileDimsLocked(dim int) error {
	if dim <= 0 {
		return errors.InvalidInput("embedding vector dimension must be positive")
	}
	if x.dims == 0 || x.dims == dim || len(x.mapping) == 0 {
		return nil
	}
	return errors.DimensionMismatch(x.dims, dim)
}

// Count returns the number of live vectors (mapping entries).
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.mapping)
}

// Dimensions returns the active dimensionality, 0 when uninitialized.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dims
}

// Resolve looks up the mapping entry for a chunk ID, reporting whether
// the chunk is currently indexed.
func (x *Index) Resolve(chunkID string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	entry, ok := x.mapping[IntKey(chunkID)]
	return entry, ok && entry.ChunkID == chunkID
}

// Stats returns index statistics for status reporting.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Stats{
		Vectors:    len(x.mapping),
		GraphNodes: x.graph.Len(),
		Dimensions: x.dims,
	}
}

// save persists the full snapshot: graph export plus gob mapping sidecar,
// each written to a temp file and renamed. Callers hold the write lock.
func (x *Index) save() error {
	if x.config.Path == "" {
		return nil
	}

	dir := filepath.Dir(x.config.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := x.config.Path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := x.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, x.config.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	return x.saveMeta(x.config.Path + ".meta")
}

func (x *Index) saveMeta(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create meta file: %w", err)
	}

	meta := snapshotMeta{
		Mapping:    x.mapping,
		Dimensions: x.dims,
		Config:     x.config,
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close meta file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// load restores the snapshot from disk. Mapping sidecar first (it carries
// the dimensionality), then the graph export.
func (x *Index) load(path string) error {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open meta file: %w", err)
	}
	defer metaFile.Close()

	var meta snapshotMeta
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}
	x.mapping = meta.Mapping
	if x.mapping == nil {
		x.mapping = make(map[int64]Entry)
	}
	x.dims = meta.Dimensions

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	// hnsw Import requires an io.ByteReader.
	if err := x.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

// Close releases resources. The index is unusable afterwards.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	x.graph = nil
	return nil
}

// normalizeInPlace scales a vector to unit length. Zero vectors are left
// untouched.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
