package model

import (
	"database/sql"
	"time"
)

// Conversation is one completed chat exchange as persisted after the fact.
type Conversation struct {
	ID        string       `db:"id"`
	Provider  string       `db:"provider"`
	Model     string       `db:"model"`
	RequestID string       `db:"request_id"`
	CreatedAt time.Time    `db:"created_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
}

// Message is one turn belonging to a conversation. Model is only set on
// assistant turns.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	Role           string    `db:"role"`
	Content        string    `db:"content"`
	Model          string    `db:"model"`
	CreatedAt      time.Time `db:"created_at"`
}
