package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/docrag/internal/errors"
)

// SQLiteStore implements DocumentStore using SQLite.
// WAL mode enables concurrent readers alongside the single writer.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Verify interface implementation at compile time
var _ DocumentStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id     TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	filename   TEXT NOT NULL,
	path       TEXT NOT NULL,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id    TEXT PRIMARY KEY,
	doc_id      TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	text        TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	token_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_owner ON chunks(owner_id);
`

// Open creates or opens a SQLite store at the given path.
// An empty path opens an in-memory database for testing.
func Open(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// Single connection: modernc.org/sqlite serializes writes per
	// connection, which gives us the single-writer discipline for free.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle so other packages (session storage)
// can share the same database file and connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// CreateDocument inserts a new document record.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = StatusQueued
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (doc_id, owner_id, filename, path, status, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.OwnerID, doc.Filename, doc.Path, string(doc.Status), doc.Error,
		doc.CreatedAt.UnixMilli(), doc.UpdatedAt.UnixMilli())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, fmt.Errorf("insert document: %w", err))
	}
	return nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, docID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, owner_id, filename, path, status, error, created_at, updated_at
		 FROM documents WHERE doc_id = ?`, docID)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(errors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %s not found", docID))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	return doc, nil
}

// ListDocuments returns all documents for an owner, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, ownerID string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	query := `SELECT doc_id, owner_id, filename, path, status, error, created_at, updated_at
		 FROM documents WHERE owner_id = ? ORDER BY created_at DESC`
	args := []any{ownerID}
	if ownerID == "" {
		query = `SELECT doc_id, owner_id, filename, path, status, error, created_at, updated_at
		 FROM documents ORDER BY created_at DESC`
		args = nil
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer rows.Close()

	docs := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SetDocumentStatus updates a document's ingestion status.
func (s *SQLiteStore) SetDocumentStatus(ctx context.Context, docID string, status DocumentStatus, errMsg string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE doc_id = ?`,
		string(status), errMsg, time.Now().UTC().UnixMilli(), docID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound(errors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %s not found", docID))
	}
	return nil
}

// DeleteDocument removes a document and all its chunks.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID); err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound(errors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %s not found", docID))
	}
	return tx.Commit()
}

// SaveChunks inserts or replaces chunk records in one transaction.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (chunk_id, doc_id, owner_id, text, seq, token_count)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ChunkID, c.DocID, c.OwnerID, c.Text, c.Sequence, c.TokenCount); err != nil {
			return errors.Wrap(errors.ErrCodeStorageFailed, fmt.Errorf("insert chunk %s: %w", c.ChunkID, err))
		}
	}
	return tx.Commit()
}

// GetChunk returns a single chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT chunk_id, doc_id, owner_id, text, seq, token_count FROM chunks WHERE chunk_id = ?`,
		chunkID)

	c := &Chunk{}
	err := row.Scan(&c.ChunkID, &c.DocID, &c.OwnerID, &c.Text, &c.Sequence, &c.TokenCount)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(errors.ErrCodeChunkNotFound,
			fmt.Sprintf("chunk %s not found", chunkID))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	return c, nil
}

// GetChunks returns chunks for the given IDs, preserving input order.
// Missing IDs are skipped, not errors.
func (s *SQLiteStore) GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(chunkIDs) == 0 {
		return []*Chunk{}, nil
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, doc_id, owner_id, text, seq, token_count FROM chunks
		 WHERE chunk_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer rows.Close()

	byID := make(map[string]*Chunk, len(chunkIDs))
	for rows.Next() {
		c := &Chunk{}
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.OwnerID, &c.Text, &c.Sequence, &c.TokenCount); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
		}
		byID[c.ChunkID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}

	out := make([]*Chunk, 0, len(byID))
	for _, id := range chunkIDs {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// ChunksByDocument returns all chunks of a document in sequence order.
func (s *SQLiteStore) ChunksByDocument(ctx context.Context, docID string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, doc_id, owner_id, text, seq, token_count FROM chunks
		 WHERE doc_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer rows.Close()

	chunks := []*Chunk{}
	for rows.Next() {
		c := &Chunk{}
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.OwnerID, &c.Text, &c.Sequence, &c.TokenCount); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ScanChunks is the lexical fallback: a case-insensitive substring scan
// over stored chunk text. Slow but always available.
func (s *SQLiteStore) ScanChunks(ctx context.Context, query, ownerID string, limit int) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		limit = 10
	}

	// LIKE is case-insensitive for ASCII in SQLite by default.
	q := `SELECT chunk_id, doc_id, owner_id, text, seq, token_count FROM chunks
	      WHERE text LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(query) + "%"}
	if ownerID != "" {
		q += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer rows.Close()

	chunks := []*Chunk{}
	for rows.Next() {
		c := &Chunk{}
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.OwnerID, &c.Text, &c.Sequence, &c.TokenCount); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	doc := &Document{}
	var status string
	var created, updated int64
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.Path, &status, &doc.Error, &created, &updated); err != nil {
		return nil, err
	}
	doc.Status = DocumentStatus(status)
	doc.CreatedAt = time.UnixMilli(created).UTC()
	doc.UpdatedAt = time.UnixMilli(updated).UTC()
	return doc, nil
}
