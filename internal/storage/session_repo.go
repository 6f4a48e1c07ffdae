package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionStore defines the interface for conversation storage operations.
type SessionStore interface {
	// Create starts a new session with the given title and returns it.
	Create(ctx context.Context, title string) (*SessionRecord, error)
	// GetByID gets a session by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*SessionRecord, error)
	// AppendMessage stores one message in a session.
	AppendMessage(ctx context.Context, sessionID int64, role, content string) (*MessageRecord, error)
	// ListMessages returns a session's messages in chronological order.
	ListMessages(ctx context.Context, sessionID int64) ([]*MessageRecord, error)
}

// SessionRepo provides methods for session and message operations.
// It implements the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create starts a new session with the given title and returns it.
func (r *SessionRepo) Create(ctx context.Context, title string) (*SessionRecord, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (title) VALUES (?)", title,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get session id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID gets a session by ID. Returns ErrNotFound if absent.
func (r *SessionRepo) GetByID(ctx context.Context, id int64) (*SessionRecord, error) {
	var session SessionRecord
	var title sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, created_at FROM sessions WHERE id = ?", id,
	).Scan(&session.ID, &title, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	session.Title = title.String

	return &session, nil
}

// AppendMessage stores one message in a session.
func (r *SessionRepo) AppendMessage(ctx context.Context, sessionID int64, role, content string) (*MessageRecord, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (session_id, role, content) VALUES (?, ?, ?)",
		sessionID, role, content,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message id: %w", err)
	}

	var msg MessageRecord
	err = r.db.QueryRowContext(ctx,
		"SELECT id, session_id, role, content, created_at FROM messages WHERE id = ?", id,
	).Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns a session's messages in chronological order.
func (r *SessionRepo) ListMessages(ctx context.Context, sessionID int64) ([]*MessageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var msgs []*MessageRecord
	for rows.Next() {
		var msg MessageRecord
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return msgs, nil
}
