package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/errors"
)

func fakeOllama(t *testing.T, dims int, fail *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[{"name":"embeddinggemma"}]}`))
			return
		}
		require.Equal(t, "/api/embed", r.URL.Path)

		if fail != nil && atomic.AddInt32(fail, -1) >= 0 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[i%dims] = 1
			resp.Embeddings[i] = vec
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestOllamaEmbedBatch(t *testing.T) {
	srv := fakeOllama(t, 8, nil)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "embeddinggemma",
	})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 8, e.Dimensions())

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
}

func TestOllamaEmbedRetriesTransientFailure(t *testing.T) {
	failures := int32(1)
	srv := fakeOllama(t, 4, &failures)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		SkipHealthCheck: true,
		MaxRetries:      3,
	})
	require.NoError(t, err)
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"text"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
}

func TestOllamaEmbedExhaustsRetries(t *testing.T) {
	failures := int32(100)
	srv := fakeOllama(t, 4, &failures)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		SkipHealthCheck: true,
		MaxRetries:      2,
	})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.EmbedBatch(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmbeddingFailed, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestOllamaEmbedEmptyText(t *testing.T) {
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            "http://localhost:1",
		SkipHealthCheck: true,
		Dimensions:      16,
	})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.Embed(context.Background(), "  \n ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestOllamaHealthCheckFailure(t *testing.T) {
	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:    "http://localhost:1",
		Timeout: 2 * time.Second,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmbeddingFailed, errors.GetCode(err))
}

func TestOllamaAvailable(t *testing.T) {
	srv := fakeOllama(t, 4, nil)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)

	assert.True(t, e.Available(context.Background()))
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
}
