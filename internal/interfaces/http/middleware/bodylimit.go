package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopmetrics/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request body size. Webhook payloads are single orders
// or events; anything larger is rejected before it is read.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
