package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID assigns a request id when the client did not send one, and
// echoes it on the response.
func RequestID() Factory {
	return func(next Handler) Handler {
		return func(c *gin.Context) {
			id := c.GetHeader(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set("request_id", id)
			c.Writer.Header().Set(RequestIDHeader, id)
			next(c)
		}
	}
}
