// Package middleware provides the gin middleware chain of the HTTP API:
// request identity, structured request logging, panic recovery, and CORS.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the header the request ID is read from and echoed to.
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID assigns every request a unique ID, honoring one supplied by the
// caller so IDs propagate across service hops.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(HeaderRequestID, requestID)
		c.Set(contextKeyRequestID, requestID)

		c.Next()
	}
}

// GetRequestID returns the request's ID, or "" outside the middleware chain.
func GetRequestID(c *gin.Context) string {
	if v, exists := c.Get(contextKeyRequestID); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
