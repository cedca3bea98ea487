// Package session manages multi-turn conversation state. Sessions are
// owner-scoped: every operation takes the owner ID and silently misses
// when it does not match, so one user can never read another's history.
package session

import "time"

// Roles recorded in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is a conversation with accumulated history. DocumentReferences
// is the set of documents any turn has cited, without duplicates.
type Session struct {
	ID                 string    `json:"session_id"`
	OwnerID            string    `json:"owner_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	TotalQueries       int       `json:"total_queries"`
	DocumentReferences []string  `json:"document_references"`
}

// SourceRef cites a retrieved chunk backing an assistant turn.
type SourceRef struct {
	DocID   string  `json:"doc_id"`
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Message is one conversation turn entry. Sources is populated on
// assistant turns only.
type Message struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Sources   []SourceRef `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"timestamp"`
}

// Summary is a session listing row with a first-turn preview.
type Summary struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TotalQueries int       `json:"total_queries"`
	Preview      string    `json:"preview"`
}
