package session

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m, err := NewManager(s.DB())
	require.NoError(t, err)
	return m
}

func TestCreateAndGet(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "what is the refund policy")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s, err := m.Get(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.OwnerID)
	assert.Equal(t, 1, s.TotalQueries)

	history, err := m.History(ctx, id, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "what is the refund policy", history[0].Content)
}

func TestGetWrongOwner(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "")
	require.NoError(t, err)

	_, err = m.Get(ctx, id, "bob")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.GetCode(err))
}

func TestAddMessage(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "")
	require.NoError(t, err)

	ok, err := m.AddMessage(ctx, id, "alice", RoleUser, "hello", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.AddMessage(ctx, id, "alice", RoleAssistant, "hi there", nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := m.History(ctx, id, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, RoleAssistant, history[1].Role)

	s, err := m.Get(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalQueries)
}

func TestAddMessageWrongOwnerOrSession(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "")
	require.NoError(t, err)

	ok, err := m.AddMessage(ctx, id, "bob", RoleUser, "intrusion", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.AddMessage(ctx, "no-such-session", "alice", RoleUser, "hello", nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := m.History(ctx, id, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAddMessageInvalidRole(t *testing.T) {
	m := newManager(t)
	id, err := m.Create(context.Background(), "alice", "")
	require.NoError(t, err)

	_, err = m.AddMessage(context.Background(), id, "alice", "system", "nope", nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "")
	require.NoError(t, err)

	for _, content := range []string{"q1", "a1", "q2", "a2", "q3", "a3"} {
		role := RoleUser
		if strings.HasPrefix(content, "a") {
			role = RoleAssistant
		}
		ok, err := m.AddMessage(ctx, id, "alice", role, content, nil, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}

	history, err := m.History(ctx, id, "alice", 4)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "q2", history[0].Content)
	assert.Equal(t, "a3", history[3].Content)
}

func TestBuildContext(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "what is covered")
	require.NoError(t, err)
	ok, err := m.AddMessage(ctx, id, "alice", RoleAssistant, "dental and vision", nil, nil)
	require.NoError(t, err)
	require.True(t, ok)

	prompt, err := m.BuildContext(ctx, id, "alice", 5)
	require.NoError(t, err)
	assert.Equal(t, "PREVIOUS CONVERSATION:\nUSER: what is covered\nASSISTANT: dental and vision\n", prompt)
}

func TestBuildContextEmptySession(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "")
	require.NoError(t, err)

	prompt, err := m.BuildContext(ctx, id, "alice", 5)
	require.NoError(t, err)
	assert.Empty(t, prompt)

	// Foreign session reads as empty, never as an error.
	prompt, err = m.BuildContext(ctx, id, "bob", 5)
	require.NoError(t, err)
	assert.Empty(t, prompt)
}

func TestBuildContextBounded(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "")
	require.NoError(t, err)

	// Six exchanges; with five turns of history the first exchange
	// falls out of the prompt.
	for i := 0; i < 6; i++ {
		q := "question " + string(rune('0'+i))
		ok, err := m.AddMessage(ctx, id, "alice", RoleUser, q, nil, nil)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = m.AddMessage(ctx, id, "alice", RoleAssistant, "answer "+string(rune('0'+i)), nil, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}

	prompt, err := m.BuildContext(ctx, id, "alice", 5)
	require.NoError(t, err)
	assert.NotContains(t, prompt, "question 0")
	assert.Contains(t, prompt, "question 1")
	assert.Contains(t, prompt, "answer 5")
	assert.Equal(t, 11, strings.Count(prompt, "\n"))
}

func TestListSessions(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	long := strings.Repeat("x", 150)
	first, err := m.Create(ctx, "alice", long)
	require.NoError(t, err)
	second, err := m.Create(ctx, "alice", "short opener")
	require.NoError(t, err)
	_, err = m.Create(ctx, "bob", "other tenant")
	require.NoError(t, err)

	// Touch the first session so it sorts to the top.
	ok, err := m.AddMessage(ctx, first, "alice", RoleAssistant, "reply", nil, nil)
	require.NoError(t, err)
	require.True(t, ok)

	summaries, err := m.List(ctx, "alice", 50, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, first, summaries[0].ID)
	assert.Equal(t, strings.Repeat("x", 100)+"...", summaries[0].Preview)
	assert.Equal(t, second, summaries[1].ID)
	assert.Equal(t, "short opener", summaries[1].Preview)
}

func TestDeleteSession(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "hello")
	require.NoError(t, err)

	// Wrong owner cannot delete.
	ok, err := m.Delete(ctx, id, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Delete(ctx, id, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Delete(ctx, id, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Get(ctx, id, "alice")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.GetCode(err))
}

func TestAddMessageSourcesRoundTrip(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "what does the handbook say")
	require.NoError(t, err)

	sources := []SourceRef{
		{DocID: "d1", ChunkID: "d1__0", Score: 0.91},
		{DocID: "d2", ChunkID: "d2__3", Score: 0.44},
	}
	ok, err := m.AddMessage(ctx, id, "alice", RoleAssistant, "it says...", sources, []string{"d1", "d2"})
	require.NoError(t, err)
	require.True(t, ok)

	history, err := m.History(ctx, id, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Empty(t, history[0].Sources)
	assert.Equal(t, sources, history[1].Sources)
}

func TestDocumentReferencesUnion(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "first question")
	require.NoError(t, err)

	ok, err := m.AddMessage(ctx, id, "alice", RoleAssistant, "a1", nil, []string{"d1", "d2"})
	require.NoError(t, err)
	require.True(t, ok)

	// Repeats do not duplicate; new IDs append.
	ok, err = m.AddMessage(ctx, id, "alice", RoleAssistant, "a2", nil, []string{"d2", "d3"})
	require.NoError(t, err)
	require.True(t, ok)

	s, err := m.Get(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3"}, s.DocumentReferences)
}

func TestGetEmptyDocumentReferences(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx, "alice", "")
	require.NoError(t, err)

	s, err := m.Get(ctx, id, "alice")
	require.NoError(t, err)
	assert.Empty(t, s.DocumentReferences)
}

func TestListPreviewMultiByte(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	opener := strings.Repeat("ü", 150)
	_, err := m.Create(ctx, "alice", opener)
	require.NoError(t, err)

	summaries, err := m.List(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	// Truncation counts runes, never splitting a multi-byte character.
	assert.Equal(t, strings.Repeat("ü", 100)+"...", summaries[0].Preview)
	assert.True(t, utf8.ValidString(summaries[0].Preview))
}
