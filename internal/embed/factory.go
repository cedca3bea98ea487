package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/Aman-CERP/docrag/internal/config"
)

// NewFromConfig builds the configured embedder wrapped in an LRU cache.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)

	switch cfg.Embeddings.Provider {
	case "ollama":
		inner, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:      cfg.Embeddings.OllamaHost,
			Model:     cfg.Embeddings.Model,
			BatchSize: cfg.Embeddings.BatchSize,
			Timeout:   time.Duration(cfg.Embeddings.Timeout),
		})
		if err != nil {
			return nil, err
		}
	case "static":
		inner = NewStaticEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embeddings.Provider)
	}

	return NewCachedEmbedder(inner, cfg.Embeddings.CacheSize), nil
}
