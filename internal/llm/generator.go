// Package llm produces grounded answers from retrieved context.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Aman-CERP/docrag/internal/errors"
)

// Generator produces an answer to a question given supporting context
// passages and optional prior conversation.
type Generator interface {
	Generate(ctx context.Context, question string, contexts []string, conversation string) (string, error)
}

// DefaultModel is the default generation model.
const DefaultModel = "llama3.2"

// DefaultTimeout bounds one generation round-trip. Generation is the
// slowest provider call in the pipeline.
const DefaultTimeout = 120 * time.Second

// OllamaConfig configures the Ollama generator.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// OllamaGenerator calls Ollama's /api/generate endpoint.
type OllamaGenerator struct {
	config OllamaConfig
	client *http.Client
}

var _ Generator = (*OllamaGenerator)(nil)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewOllamaGenerator creates a generator against an Ollama host.
func NewOllamaGenerator(cfg OllamaConfig) *OllamaGenerator {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")

	return &OllamaGenerator{
		config: cfg,
		client: &http.Client{},
	}
}

// Generate builds the grounded prompt and returns the model's answer.
func (g *OllamaGenerator) Generate(ctx context.Context, question string, contexts []string, conversation string) (string, error) {
	prompt := BuildPrompt(question, contexts, conversation)

	body, err := json.Marshal(generateRequest{
		Model:  g.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		g.config.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", errors.ProviderFailure(errors.ErrCodeProviderTimeout,
				"generation request timed out", err)
		}
		return "", errors.ProviderFailure(errors.ErrCodeGenerationFailed,
			"generation service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.ProviderFailure(errors.ErrCodeGenerationFailed,
			fmt.Sprintf("generation returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.ProviderFailure(errors.ErrCodeGenerationFailed,
			"decode generation response", err)
	}
	return strings.TrimSpace(result.Response), nil
}

// BuildPrompt assembles the grounded prompt: prior conversation first
// when present, then the context passages, then the question.
func BuildPrompt(question string, contexts []string, conversation string) string {
	var sb strings.Builder
	if conversation != "" {
		sb.WriteString(conversation)
		if !strings.HasSuffix(conversation, "\n") {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("CONTEXTS:\n")
	sb.WriteString(strings.Join(contexts, "\n\n"))
	sb.WriteString("\n\nQUESTION: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer concisely.")
	return sb.String()
}

// Static is a canned-answer generator for tests and offline mode. It
// echoes the first context so callers can assert grounding.
type Static struct{}

var _ Generator = Static{}

func (Static) Generate(ctx context.Context, question string, contexts []string, conversation string) (string, error) {
	if len(contexts) == 0 {
		return "No relevant context was found for: " + question, nil
	}
	return contexts[0], nil
}
