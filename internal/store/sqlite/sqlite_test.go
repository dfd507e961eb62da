package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoke-ai/convoke/internal/store/model"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	repo, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo.(*Repository)
}

func TestConversationRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	convs := repo.Conversations()

	conv := &model.Conversation{
		ID:        uuid.NewString(),
		Provider:  "gpt",
		Model:     "gpt-4o",
		RequestID: "req-1",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, convs.Create(ctx, conv))

	for i, m := range []struct{ role, content, mdl string }{
		{"user", "Hello!", ""},
		{"assistant", "Hi there", "gpt-4o"},
	} {
		require.NoError(t, convs.AppendMessage(ctx, &model.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Role:           m.role,
			Content:        m.content,
			Model:          m.mdl,
			CreatedAt:      time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}))
	}
	require.NoError(t, convs.End(ctx, conv.ID, time.Now().UTC()))

	recent, err := convs.GetRecent(ctx, "gpt", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, conv.ID, recent[0].ID)
	assert.Equal(t, "gpt-4o", recent[0].Model)
	assert.True(t, recent[0].EndedAt.Valid)

	msgs, err := convs.GetMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Hello!", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "gpt-4o", msgs[1].Model)
}

func TestGetRecent_FiltersByProvider(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	convs := repo.Conversations()

	for _, p := range []string{"gpt", "claude", "gpt"} {
		require.NoError(t, convs.Create(ctx, &model.Conversation{
			ID:        uuid.NewString(),
			Provider:  p,
			CreatedAt: time.Now().UTC(),
		}))
	}

	recent, err := convs.GetRecent(ctx, "gpt", 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
