// Package store provides document and chunk persistence in SQLite.
// This is the durable metadata layer behind ingestion and retrieval.
package store

import (
	"context"
	"time"
)

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusIndexed    DocumentStatus = "indexed"
	StatusError      DocumentStatus = "error"
)

// Document represents an uploaded document tracked by the system.
type Document struct {
	ID        string         // Collision-resistant identifier assigned at upload
	OwnerID   string         // Opaque owner identifier for partitioning
	Filename  string         // Original filename
	Path      string         // Location of the stored upload
	Status    DocumentStatus // Ingestion status (polling is the only feedback channel)
	Error     string         // Failure detail when Status == error
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a contiguous slice of a document's text, the unit of
// embedding, indexing, and retrieval. Immutable after ingestion.
type Chunk struct {
	ChunkID    string // doc_id + "__" + sequence, globally unique
	DocID      string
	OwnerID    string
	Text       string
	Sequence   int
	TokenCount int
}

// DocumentStore persists documents and chunks.
type DocumentStore interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, docID string) (*Document, error)

	// ListDocuments returns an owner's documents newest first. An empty
	// ownerID lists every owner's documents (status reporting).
	ListDocuments(ctx context.Context, ownerID string) ([]*Document, error)
	SetDocumentStatus(ctx context.Context, docID string, status DocumentStatus, errMsg string) error
	DeleteDocument(ctx context.Context, docID string) error

	// Chunk operations
	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*Chunk, error)
	GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error)
	ChunksByDocument(ctx context.Context, docID string) ([]*Chunk, error)

	// ScanChunks returns up to limit chunks whose text contains the query
	// substring, case-insensitive, optionally filtered by owner. Used as
	// the lexical-search fallback when no full-text index exists.
	ScanChunks(ctx context.Context, query, ownerID string, limit int) ([]*Chunk, error)

	// Lifecycle
	Close() error
}
