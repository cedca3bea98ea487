// Package config provides configuration loading for docrag.
// Configuration is read from a YAML file with environment variable
// overrides for deployment-specific settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use human-readable
// values like "60s" or "2m".
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config represents the complete docrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Reranker   RerankerConfig   `yaml:"reranker" json:"reranker"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig configures where docrag keeps its state.
type PathsConfig struct {
	// DataDir holds the SQLite store, vector snapshot, and lexical index.
	// Defaults to ~/.docrag
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// UploadDir is where uploaded documents are stored and watched.
	// Defaults to <data_dir>/uploads
	UploadDir string `yaml:"upload_dir" json:"upload_dir"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama" (default) or "static"
	// (deterministic hash embeddings, offline).
	Provider   string   `yaml:"provider" json:"provider"`
	Model      string   `yaml:"model" json:"model"`
	OllamaHost string   `yaml:"ollama_host" json:"ollama_host"`
	BatchSize  int      `yaml:"batch_size" json:"batch_size"`
	Timeout    Duration `yaml:"timeout" json:"timeout"`
	CacheSize  int      `yaml:"cache_size" json:"cache_size"`
}

// GenerationConfig configures the answer generation provider.
type GenerationConfig struct {
	Model      string   `yaml:"model" json:"model"`
	OllamaHost string   `yaml:"ollama_host" json:"ollama_host"`
	Timeout    Duration `yaml:"timeout" json:"timeout"`
}

// RerankerConfig configures the cross-encoder reranking service.
type RerankerConfig struct {
	// Endpoint is the rerank service URL. Empty disables reranking
	// (candidates keep their merged order).
	Endpoint string   `yaml:"endpoint" json:"endpoint"`
	Timeout  Duration `yaml:"timeout" json:"timeout"`
}

// RetrievalConfig configures the hybrid retrieval pipeline.
type RetrievalConfig struct {
	// DenseK is the number of vector search candidates (default: 10).
	DenseK int `yaml:"dense_k" json:"dense_k"`

	// SparseK is the number of lexical search candidates (default: 10).
	SparseK int `yaml:"sparse_k" json:"sparse_k"`

	// ContextChunks is how many reranked candidates feed generation
	// (default: 3).
	ContextChunks int `yaml:"context_chunks" json:"context_chunks"`

	// HistoryTurns bounds the conversational context by turn pairs
	// (default: 5).
	HistoryTurns int `yaml:"history_turns" json:"history_turns"`
}

// IngestConfig configures the background ingestion pipeline.
type IngestConfig struct {
	// ChunkSize is the word-window size per chunk (default: 500).
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// ChunkOverlap is the word overlap between consecutive chunks
	// (default: 100).
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`

	// QueueSize is the ingestion job queue capacity (default: 64).
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dataDir := filepath.Join(home, ".docrag")

	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:   dataDir,
			UploadDir: filepath.Join(dataDir, "uploads"),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			OllamaHost: "http://localhost:11434",
			BatchSize:  32,
			Timeout:    Duration(60 * time.Second),
			CacheSize:  1000,
		},
		Generation: GenerationConfig{
			Model:      "llama3.2",
			OllamaHost: "http://localhost:11434",
			Timeout:    Duration(120 * time.Second),
		},
		Reranker: RerankerConfig{
			Endpoint: "",
			Timeout:  Duration(30 * time.Second),
		},
		Retrieval: RetrievalConfig{
			DenseK:        10,
			SparseK:       10,
			ContextChunks: 3,
			HistoryTurns:  5,
		},
		Ingest: IngestConfig{
			ChunkSize:    500,
			ChunkOverlap: 100,
			QueueSize:    64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// Load reads configuration from the given YAML file, applies environment
// overrides, and validates the result. A missing file is not an error:
// defaults are used.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docrag", "config.yaml")
}

// applyEnvOverrides applies DOCRAG_* environment variables on top of the
// loaded configuration.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCRAG_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("DOCRAG_UPLOAD_DIR"); v != "" {
		c.Paths.UploadDir = v
	}
	if v := os.Getenv("DOCRAG_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
		c.Generation.OllamaHost = v
	}
	if v := os.Getenv("DOCRAG_EMBED_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCRAG_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCRAG_GENERATION_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("DOCRAG_RERANKER_URL"); v != "" {
		c.Reranker.Endpoint = v
	}
	if v := os.Getenv("DOCRAG_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCRAG_CONTEXT_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.ContextChunks = n
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return fmt.Errorf("embeddings.provider must be ollama or static, got %q", c.Embeddings.Provider)
	}
	if c.Retrieval.DenseK <= 0 || c.Retrieval.SparseK <= 0 {
		return fmt.Errorf("retrieval.dense_k and retrieval.sparse_k must be positive")
	}
	if c.Retrieval.ContextChunks <= 0 {
		return fmt.Errorf("retrieval.context_chunks must be positive")
	}
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive")
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size)")
	}
	return nil
}

// VectorIndexPath returns the vector snapshot path within the data dir.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.Paths.DataDir, "vectors.hnsw")
}

// MetadataDBPath returns the SQLite database path within the data dir.
func (c *Config) MetadataDBPath() string {
	return filepath.Join(c.Paths.DataDir, "docrag.db")
}

// LexicalIndexPath returns the bleve index path within the data dir.
func (c *Config) LexicalIndexPath() string {
	return filepath.Join(c.Paths.DataDir, "lexical.bleve")
}

// LockPath returns the process lock file path within the data dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "docrag.lock")
}
