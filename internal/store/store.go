package store

import (
	"context"
	"time"

	"github.com/convoke-ai/convoke/internal/store/model"
)

type contextKey string

// ContextKeyRequestID carries the transport's correlation identifier. The
// core only reads it for log correlation; it neither generates nor requires
// one.
const ContextKeyRequestID contextKey = "request_id"

// RequestIDFrom returns the request correlation id, or "" when absent.
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID attaches a correlation id for downstream log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// Repository is the contract for the conversation data layer.
type Repository interface {
	Conversations() ConversationRepository
	Close() error
}

type ConversationRepository interface {
	// Create records the start of a conversation.
	Create(ctx context.Context, conv *model.Conversation) error
	// AppendMessage stores one turn of a conversation.
	AppendMessage(ctx context.Context, msg *model.Message) error
	// End marks a conversation finished.
	End(ctx context.Context, id string, at time.Time) error
	// GetRecent returns the latest conversations for a provider, newest first.
	GetRecent(ctx context.Context, provider string, limit int) ([]model.Conversation, error)
	// GetMessages returns a conversation's turns in insertion order.
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}
