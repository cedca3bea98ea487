package lexical

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/docrag/internal/errors"
)

// BleveIndex wraps Bleve v2 for BM25-scored keyword search over chunks.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ Provider = (*BleveIndex)(nil)

// bleveChunk is the document shape stored in the index. Owner and doc
// IDs use the keyword analyzer so filters match exactly.
type bleveChunk struct {
	Content string `json:"content"`
	DocID   string `json:"doc_id"`
	OwnerID string `json:"owner_id"`
}

// NewBleveIndex opens or creates a keyword index. Empty path means an
// in-memory index. A snapshot that fails integrity checks is cleared and
// recreated; the caller is expected to reindex.
func NewBleveIndex(path string) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create directory: %w", mkErr)
		}

		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("lexical_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, errors.Wrap(errors.ErrCodeCorruptIndex,
					fmt.Errorf("clear corrupted index at %s: %w", path, removeErr))
			}
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil && isCorruptionError(err) {
			slog.Warn("lexical_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, errors.Wrap(errors.ErrCodeCorruptIndex,
					fmt.Errorf("clear corrupted index at %s: %w", path, removeErr))
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	return &BleveIndex{index: idx, path: path}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	chunkMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	chunkMapping.AddFieldMappingsAt("content", contentField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	chunkMapping.AddFieldMappingsAt("doc_id", idField)
	chunkMapping.AddFieldMappingsAt("owner_id", idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = chunkMapping
	return indexMapping, nil
}

// validateIndexIntegrity checks the snapshot metadata before opening.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "unexpected end of JSON") ||
		strings.Contains(errStr, "error parsing mapping JSON") ||
		strings.Contains(errStr, "failed to load segment") ||
		strings.Contains(errStr, "error opening bolt") ||
		err == bleve.ErrorIndexMetaCorrupt
}

// Index adds or replaces chunks in a single batch.
func (b *BleveIndex) Index(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, ch := range chunks {
		doc := bleveChunk{
			Content: ch.Text,
			DocID:   ch.DocID,
			OwnerID: ch.OwnerID,
		}
		if err := batch.Index(ch.ChunkID, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", ch.ChunkID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return errors.Wrap(errors.ErrCodeLexicalFailed, fmt.Errorf("execute batch: %w", err))
	}
	return nil
}

// Search runs a BM25-scored match query, optionally conjoined with an
// exact owner filter.
func (b *BleveIndex) Search(ctx context.Context, queryStr string, limit int, ownerFilter string) ([]Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	var searchQuery = bleve.NewConjunctionQuery(matchQuery)
	if ownerFilter != "" {
		ownerQuery := bleve.NewTermQuery(ownerFilter)
		ownerQuery.SetField("owner_id")
		searchQuery.AddQuery(ownerQuery)
	}

	req := bleve.NewSearchRequest(searchQuery)
	req.Size = limit
	req.Fields = []string{"doc_id"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLexicalFailed, fmt.Errorf("search: %w", err))
	}

	results := make([]Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		docID, _ := hit.Fields["doc_id"].(string)
		results = append(results, Result{
			ChunkID: hit.ID,
			DocID:   docID,
			Score:   hit.Score,
		})
	}
	return results, nil
}

// DeleteDocument removes every chunk belonging to a document.
func (b *BleveIndex) DeleteDocument(ctx context.Context, docID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	docQuery := bleve.NewTermQuery(docID)
	docQuery.SetField("doc_id")

	req := bleve.NewSearchRequest(docQuery)
	docCount, _ := b.index.DocCount()
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLexicalFailed, fmt.Errorf("find chunks of %s: %w", docID, err))
	}

	if len(result.Hits) == 0 {
		return nil
	}

	batch := b.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := b.index.Batch(batch); err != nil {
		return errors.Wrap(errors.ErrCodeLexicalFailed, fmt.Errorf("delete chunks of %s: %w", docID, err))
	}
	return nil
}

// Count returns the number of indexed chunks.
func (b *BleveIndex) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	n, _ := b.index.DocCount()
	return int(n)
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}
