package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/errors"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("what is the policy", []string{"ctx one", "ctx two"}, "")
	assert.Equal(t, "CONTEXTS:\nctx one\n\nctx two\n\nQUESTION: what is the policy\nAnswer concisely.", prompt)
}

func TestBuildPromptWithConversation(t *testing.T) {
	conversation := "PREVIOUS CONVERSATION:\nUSER: hello\nASSISTANT: hi\n"
	prompt := BuildPrompt("follow up", []string{"ctx"}, conversation)

	assert.True(t, strings.HasPrefix(prompt, "PREVIOUS CONVERSATION:\n"))
	assert.Contains(t, prompt, "ASSISTANT: hi\nCONTEXTS:\nctx")
	assert.True(t, strings.HasSuffix(prompt, "QUESTION: follow up\nAnswer concisely."))
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "QUESTION: what is covered")
		require.NoError(t, json.NewEncoder(w).Encode(generateResponse{Response: " The policy covers X.\n"}))
	}))
	defer srv.Close()

	g := NewOllamaGenerator(OllamaConfig{Host: srv.URL})
	answer, err := g.Generate(context.Background(), "what is covered", []string{"some context"}, "")
	require.NoError(t, err)
	assert.Equal(t, "The policy covers X.", answer)
}

func TestOllamaGenerateServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewOllamaGenerator(OllamaConfig{Host: srv.URL})
	_, err := g.Generate(context.Background(), "q", []string{"ctx"}, "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeGenerationFailed, errors.GetCode(err))
}

func TestStaticGenerator(t *testing.T) {
	answer, err := Static{}.Generate(context.Background(), "q", []string{"grounded text", "other"}, "")
	require.NoError(t, err)
	assert.Equal(t, "grounded text", answer)

	answer, err = Static{}.Generate(context.Background(), "unanswerable", nil, "")
	require.NoError(t, err)
	assert.Contains(t, answer, "unanswerable")
}
