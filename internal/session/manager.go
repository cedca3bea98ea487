package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/docrag/internal/errors"
)

// previewLength is how much of the opening turn a listing shows.
const previewLength = 100

// DefaultHistoryTurns is how many prior turns feed the prompt.
const DefaultHistoryTurns = 5

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	total_queries INTEGER NOT NULL DEFAULT 0,
	doc_refs      TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS session_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	sources    TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON session_messages(session_id, id);
`

// Manager stores sessions and conversation history in SQLite. It shares
// the document store's database handle.
type Manager struct {
	db *sql.DB
}

// NewManager initializes the session tables on the given database.
func NewManager(db *sql.DB) (*Manager, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed,
			fmt.Errorf("create session schema: %w", err))
	}
	return &Manager{db: db}, nil
}

// Create starts a new session and returns its ID. A non-empty initial
// query is recorded as the first user turn.
func (m *Manager) Create(ctx context.Context, ownerID, initialQuery string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", errors.InvalidInput("owner_id is required")
	}

	sessionID := uuid.NewString()
	now := time.Now().UTC()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	totalQueries := 0
	if initialQuery != "" {
		totalQueries = 1
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, owner_id, created_at, updated_at, total_queries)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, ownerID, now, now, totalQueries); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageFailed,
			fmt.Errorf("create session: %w", err))
	}

	if initialQuery != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_messages (session_id, role, content, sources, created_at)
			 VALUES (?, ?, ?, NULL, ?)`,
			sessionID, RoleUser, initialQuery, now); err != nil {
			return "", errors.Wrap(errors.ErrCodeStorageFailed,
				fmt.Errorf("record initial query: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	return sessionID, nil
}

// Get returns a session only when it exists and belongs to the owner.
func (m *Manager) Get(ctx context.Context, sessionID, ownerID string) (*Session, error) {
	var s Session
	var docRefs string
	err := m.db.QueryRowContext(ctx,
		`SELECT session_id, owner_id, created_at, updated_at, total_queries, doc_refs
		 FROM sessions WHERE session_id = ? AND owner_id = ?`,
		sessionID, ownerID).
		Scan(&s.ID, &s.OwnerID, &s.CreatedAt, &s.UpdatedAt, &s.TotalQueries, &docRefs)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(errors.ErrCodeSessionNotFound,
			fmt.Sprintf("session %s not found", sessionID))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	if err := json.Unmarshal([]byte(docRefs), &s.DocumentReferences); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed,
			fmt.Errorf("decode document references: %w", err))
	}
	return &s, nil
}

// AddMessage appends a conversation turn entry. Assistant turns may cite
// sources; docIDs are unioned into the session's document references.
// Returns false when the session does not exist or the owner does not
// match; that is not an error, callers treat history recording as
// best-effort.
func (m *Manager) AddMessage(ctx context.Context, sessionID, ownerID, role, content string, sources []SourceRef, docIDs []string) (bool, error) {
	if role != RoleUser && role != RoleAssistant {
		return false, errors.InvalidInput(fmt.Sprintf("unknown message role %q", role))
	}

	now := time.Now().UTC()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	var docRefs string
	err = tx.QueryRowContext(ctx,
		`SELECT doc_refs FROM sessions WHERE session_id = ? AND owner_id = ?`,
		sessionID, ownerID).Scan(&docRefs)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}

	merged, err := unionDocRefs(docRefs, docIDs)
	if err != nil {
		return false, err
	}

	queryInc := 0
	if role == RoleUser {
		queryInc = 1
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ?, total_queries = total_queries + ?, doc_refs = ?
		 WHERE session_id = ? AND owner_id = ?`,
		now, queryInc, merged, sessionID, ownerID); err != nil {
		return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}

	var sourcesJSON any
	if len(sources) > 0 {
		data, err := json.Marshal(sources)
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
		}
		sourcesJSON = string(data)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_messages (session_id, role, content, sources, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, role, content, sourcesJSON, now); err != nil {
		return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	return true, nil
}

// unionDocRefs merges new doc IDs into the stored JSON set, preserving
// first-seen order.
func unionDocRefs(stored string, docIDs []string) (string, error) {
	var refs []string
	if err := json.Unmarshal([]byte(stored), &refs); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageFailed,
			fmt.Errorf("decode document references: %w", err))
	}

	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		seen[r] = struct{}{}
	}
	for _, id := range docIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, id)
	}

	data, err := json.Marshal(refs)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	return string(data), nil
}

// History returns the most recent limit messages in chronological order.
// limit <= 0 returns the full history. A missing or foreign session
// yields an empty history.
func (m *Manager) History(ctx context.Context, sessionID, ownerID string, limit int) ([]Message, error) {
	if _, err := m.Get(ctx, sessionID, ownerID); err != nil {
		if errors.IsNotFound(err) {
			return []Message{}, nil
		}
		return nil, err
	}

	query := `SELECT role, content, sources, created_at FROM session_messages
		 WHERE session_id = ? ORDER BY id`
	args := []any{sessionID}
	if limit > 0 {
		// Take the newest rows, then flip back to chronological order.
		query = `SELECT role, content, sources, created_at FROM (
			SELECT id, role, content, sources, created_at FROM session_messages
			WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer func() { _ = rows.Close() }()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		var sourcesJSON sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &sourcesJSON, &msg.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
		}
		if sourcesJSON.Valid && sourcesJSON.String != "" {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &msg.Sources); err != nil {
				return nil, errors.Wrap(errors.ErrCodeStorageFailed,
					fmt.Errorf("decode turn sources: %w", err))
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// List returns the owner's sessions, most recently active first, with a
// preview of the opening turn.
func (m *Manager) List(ctx context.Context, ownerID string, limit, skip int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT s.session_id, s.created_at, s.updated_at, s.total_queries,
			COALESCE((SELECT content FROM session_messages
				WHERE session_id = s.session_id AND role = ?
				ORDER BY id LIMIT 1), '')
		 FROM sessions s WHERE s.owner_id = ?
		 ORDER BY s.updated_at DESC, s.created_at DESC
		 LIMIT ? OFFSET ?`,
		RoleUser, ownerID, limit, skip)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		var preview string
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.TotalQueries, &preview); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageFailed, err)
		}
		s.Preview = truncatePreview(preview)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a session and its history. Returns false when nothing
// matched; deleting twice is not an error.
func (m *Manager) Delete(ctx context.Context, sessionID, ownerID string) (bool, error) {
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_id = ? AND owner_id = ?`,
		sessionID, ownerID)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeStorageFailed, err)
	}

	if affected > 0 {
		// CASCADE handles this on most setups; run it anyway in case
		// foreign keys are off on this connection.
		_, _ = m.db.ExecContext(ctx,
			`DELETE FROM session_messages WHERE session_id = ?`, sessionID)
	}
	return affected > 0, nil
}

// BuildContext formats recent history as a prompt preamble. Empty string
// when the session has no history. maxTurns counts exchanges, so the
// preamble holds up to maxTurns*2 entries.
func (m *Manager) BuildContext(ctx context.Context, sessionID, ownerID string, maxTurns int) (string, error) {
	if maxTurns <= 0 {
		maxTurns = DefaultHistoryTurns
	}

	history, err := m.History(ctx, sessionID, ownerID, maxTurns*2)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(history)+2)
	lines = append(lines, "PREVIOUS CONVERSATION:")
	for _, msg := range history {
		lines = append(lines, strings.ToUpper(msg.Role)+": "+msg.Content)
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n"), nil
}

// truncatePreview cuts on rune boundaries so multi-byte content never
// yields an invalid prefix.
func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return content
}
