package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/internal/store/model"
)

// Repository implements store.Repository over sqlite.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Conversations() store.ConversationRepository {
	return &conversationRepo{db: r.db}
}

type conversationRepo struct {
	db *sqlx.DB
}

func (r *conversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO conversations (id, provider, model, request_id, created_at)
		VALUES (:id, :provider, :model, :request_id, :created_at)`, conv)
	return err
}

func (r *conversationRepo) AppendMessage(ctx context.Context, msg *model.Message) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, model, created_at)
		VALUES (:id, :conversation_id, :role, :content, :model, :created_at)`, msg)
	return err
}

func (r *conversationRepo) End(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations SET ended_at = ? WHERE id = ?`, at, id)
	return err
}

func (r *conversationRepo) GetRecent(ctx context.Context, provider string, limit int) ([]model.Conversation, error) {
	var out []model.Conversation
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, provider, model, request_id, created_at, ended_at
		FROM conversations
		WHERE provider = ?
		ORDER BY created_at DESC
		LIMIT ?`, provider, limit)
	return out, err
}

func (r *conversationRepo) GetMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var out []model.Message
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, conversation_id, role, content, model, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY rowid`, conversationID)
	return out, err
}
