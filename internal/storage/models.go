package storage

import "time"

// DocumentRecord is an ingested document. Documents are created on
// ingestion and never mutated afterwards.
type DocumentRecord struct {
	ID        string // UUID
	Title     string
	CreatedAt time.Time
}

// ChunkRecord is one retrievable segment of a document. VectorID is the
// chunk's position in the vector index and the join key back to it;
// exactly one chunk exists per appended vector.
type ChunkRecord struct {
	ID         string // UUID
	DocumentID string // UUID (foreign key to documents.id)
	Text       string
	VectorID   int
	CreatedAt  time.Time
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionRecord is one conversation.
type SessionRecord struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

// MessageRecord is one turn half (user or assistant) in a session.
type MessageRecord struct {
	ID        int64
	SessionID int64
	Role      string
	Content   string
	CreatedAt time.Time
}
