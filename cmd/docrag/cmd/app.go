package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/docrag/internal/chunk"
	"github.com/Aman-CERP/docrag/internal/config"
	"github.com/Aman-CERP/docrag/internal/embed"
	"github.com/Aman-CERP/docrag/internal/ingest"
	"github.com/Aman-CERP/docrag/internal/lexical"
	"github.com/Aman-CERP/docrag/internal/llm"
	"github.com/Aman-CERP/docrag/internal/query"
	"github.com/Aman-CERP/docrag/internal/rerank"
	"github.com/Aman-CERP/docrag/internal/session"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/vector"
)

// app holds the wired components every command operates on. openApp
// builds them in dependency order; Close tears them down in reverse.
type app struct {
	cfg      *config.Config
	lock     *flock.Flock
	store    *store.SQLiteStore
	vectors  *vector.Index
	lexical  lexical.Provider
	embedder embed.Embedder
	sessions *session.Manager
	orch     *query.Orchestrator
	pipeline *ingest.Pipeline
	logger   *slog.Logger
}

// openApp loads configuration, acquires the data-directory lock, and
// wires the stores, indexes, providers, orchestrator, and pipeline.
func openApp(ctx context.Context) (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if offlineMode {
		cfg.Embeddings.Provider = "static"
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.Paths.DataDir, err)
	}
	if err := os.MkdirAll(cfg.Paths.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", cfg.Paths.UploadDir, err)
	}

	// One process per data directory. Concurrent writers would corrupt
	// the vector snapshot and the bleve index.
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", cfg.LockPath(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another docrag process is using %s", cfg.Paths.DataDir)
	}

	a := &app{cfg: cfg, lock: lock, logger: slog.Default()}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	st, err := store.Open(cfg.MetadataDBPath())
	if err != nil {
		return err
	}
	a.store = st

	vectors, err := vector.New(vector.Config{Path: cfg.VectorIndexPath()})
	if err != nil {
		return err
	}
	a.vectors = vectors

	bleveIdx, err := lexical.NewBleveIndex(cfg.LexicalIndexPath())
	if err != nil {
		a.logger.Warn("lexical_index_unavailable",
			slog.String("path", cfg.LexicalIndexPath()),
			slog.String("error", err.Error()))
		a.lexical = lexical.NewSubstringProvider(st)
	} else {
		a.lexical = bleveIdx
	}

	embedder, err := embed.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	a.embedder = embedder

	var reranker rerank.Reranker = rerank.NoOp{}
	if cfg.Reranker.Endpoint != "" {
		reranker = rerank.NewHTTPReranker(cfg.Reranker.Endpoint, time.Duration(cfg.Reranker.Timeout))
	}

	var generator llm.Generator
	if offlineMode {
		generator = llm.Static{}
	} else {
		generator = llm.NewOllamaGenerator(llm.OllamaConfig{
			Host:    cfg.Generation.OllamaHost,
			Model:   cfg.Generation.Model,
			Timeout: time.Duration(cfg.Generation.Timeout),
		})
	}

	sessions, err := session.NewManager(st.DB())
	if err != nil {
		return err
	}
	a.sessions = sessions

	a.orch = query.New(st, vectors, a.lexical, embedder, reranker, generator, sessions,
		query.Options{
			DenseK:        cfg.Retrieval.DenseK,
			SparseK:       cfg.Retrieval.SparseK,
			ContextChunks: cfg.Retrieval.ContextChunks,
			HistoryTurns:  cfg.Retrieval.HistoryTurns,
		}, a.logger)

	chunker := chunk.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	a.pipeline = ingest.New(st, vectors, a.lexical, embedder, chunker, cfg.Ingest.QueueSize, a.logger)

	return nil
}

// Close releases components in reverse dependency order. Safe to call
// after a partial openApp failure.
func (a *app) Close() {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.lexical != nil {
		_ = a.lexical.Close()
	}
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.lock != nil {
		_ = a.lock.Unlock()
	}
}
