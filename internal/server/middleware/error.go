package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/pkg/api"
)

// ErrorHandler turns errors attached by handlers into the standard JSON
// error envelope. The full error goes to the log; the response carries only
// the public message for its kind.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		if c.Writer.Written() {
			// A streaming handler already committed the response; errors
			// from that point travel in-band.
			return
		}

		err := c.Errors.Last().Err
		requestID := store.RequestIDFrom(c.Request.Context())
		kind := api.KindOf(err)

		logger.Error("request failed",
			zap.String("request_id", requestID),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)

		c.AbortWithStatusJSON(kind.HTTPStatus(), api.NewErrorResponse(err, requestID))
	}
}
