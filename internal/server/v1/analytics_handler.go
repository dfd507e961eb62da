package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/internal/store/model"
	"github.com/convoke-ai/convoke/pkg/api"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// AnalyticsHandler exposes the persisted conversation history the ingestor
// writes.
type AnalyticsHandler struct {
	repo store.Repository
}

func NewAnalyticsHandler(repo store.Repository) *AnalyticsHandler {
	return &AnalyticsHandler{repo: repo}
}

type conversationResponse struct {
	ID        string     `json:"id"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
	RequestID string     `json:"request_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type messageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// Recent handles GET /conversations/:provider.
func (h *AnalyticsHandler) Recent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = c.Error(api.Errorf(api.KindValidation, "invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	convs, err := h.repo.Conversations().GetRecent(c.Request.Context(), c.Param("provider"), limit)
	if err != nil {
		_ = c.Error(api.Wrap(api.KindUnexpected, err, "listing conversations"))
		return
	}

	out := make([]conversationResponse, len(convs))
	for i, conv := range convs {
		out[i] = toConversationResponse(conv)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// Messages handles GET /conversations/:provider/:id.
func (h *AnalyticsHandler) Messages(c *gin.Context) {
	id := c.Param("id")

	msgs, err := h.repo.Conversations().GetMessages(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(api.Wrap(api.KindUnexpected, err, "loading conversation %s", id))
		return
	}
	if len(msgs) == 0 {
		err := api.Errorf(api.KindNotFound, "conversation %q not found", id)
		c.JSON(http.StatusNotFound, api.NewErrorResponse(err, store.RequestIDFrom(c.Request.Context())))
		return
	}

	out := make([]messageResponse, len(msgs))
	for i, msg := range msgs {
		out[i] = messageResponse{Role: msg.Role, Content: msg.Content, Model: msg.Model}
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "messages": out})
}

func toConversationResponse(conv model.Conversation) conversationResponse {
	resp := conversationResponse{
		ID:        conv.ID,
		Provider:  conv.Provider,
		Model:     conv.Model,
		RequestID: conv.RequestID,
		CreatedAt: conv.CreatedAt,
	}
	if conv.EndedAt.Valid {
		at := conv.EndedAt.Time
		resp.EndedAt = &at
	}
	return resp
}
