package v1

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/internal/gateway"
	"github.com/convoke-ai/convoke/internal/server/validator"
	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/pkg/api"
)

type ChatHandler struct {
	logger  *zap.Logger
	service gateway.Service
	timeout time.Duration
}

func NewChatHandler(logger *zap.Logger, service gateway.Service, timeout time.Duration) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		service: service,
		timeout: timeout,
	}
}

// StreamChat handles POST /chat/:provider. Failures before the first byte
// map to an HTTP status; once the stream is committed, errors travel in-band
// and the terminal frame tells success from failure.
func (h *ChatHandler) StreamChat(c *gin.Context) {
	providerID := c.Param("provider")

	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := api.NewErrorResponse(
			api.Wrap(api.KindValidation, err, "invalid chat request"),
			store.RequestIDFrom(c.Request.Context()),
		)
		resp.Error.Details = validator.ParseError(err)
		c.JSON(api.KindValidation.HTTPStatus(), resp)
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	results, err := h.service.StreamChat(ctx, providerID, req.Messages)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	frames := gateway.NewNormalizer(providerID).Frames(results)
	defer func() {
		// On early disconnect the producers still hold buffered frames;
		// drain so they observe the cancelled context and exit.
		go func() {
			for range frames {
			}
		}()
	}()
	c.Stream(func(w io.Writer) bool {
		frame, ok := <-frames
		if !ok {
			return false
		}
		if _, err := io.WriteString(w, frame); err != nil {
			h.logger.Debug("client disconnected mid-stream",
				zap.String("provider", providerID),
				zap.Error(err),
			)
			return false
		}
		return true
	})
}
