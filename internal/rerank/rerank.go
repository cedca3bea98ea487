// Package rerank reorders retrieval candidates with a cross-encoder
// service before context assembly.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/Aman-CERP/docrag/internal/errors"
)

// Candidate is one retrieval result submitted for reranking. Score
// carries the retrieval score in and the cross-encoder score out.
type Candidate struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Reranker reorders candidates by relevance to the query, best first.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error)
}

// DefaultTimeout bounds one rerank round-trip.
const DefaultTimeout = 30 * time.Second

// HTTPReranker calls an external cross-encoder scoring service.
type HTTPReranker struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

var _ Reranker = (*HTTPReranker)(nil)

type rerankRequest struct {
	Query      string      `json:"query"`
	Candidates []Candidate `json:"candidates"`
}

type rerankResponse struct {
	Ranked []Candidate `json:"ranked"`
}

// NewHTTPReranker creates a reranker against the given /rerank endpoint.
func NewHTTPReranker(endpoint string, timeout time.Duration) *HTTPReranker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPReranker{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  timeout,
	}
}

// Rerank submits candidates for cross-encoder scoring and returns them
// reordered best first. The service's ordering is trusted as-is.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Candidates: candidates})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, errors.ProviderFailure(errors.ErrCodeProviderTimeout,
				"rerank request timed out", err)
		}
		return nil, errors.ProviderFailure(errors.ErrCodeRerankFailed,
			"rerank service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.ProviderFailure(errors.ErrCodeRerankFailed,
			fmt.Sprintf("rerank service returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.ProviderFailure(errors.ErrCodeRerankFailed,
			"decode rerank response", err)
	}
	return result.Ranked, nil
}

// NoOp orders candidates by their retrieval score. Used when no rerank
// service is configured.
type NoOp struct{}

var _ Reranker = NoOp{}

// Rerank sorts candidates by descending retrieval score, preserving the
// incoming order among equal scores.
func (NoOp) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error) {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
