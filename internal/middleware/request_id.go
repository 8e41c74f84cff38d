package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the gin context key the request ID is stored under.
	RequestIDKey = "request_id"
	// RequestIDHeader is the HTTP header the request ID travels in.
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an ID that flows through logging, error
// envelopes, and the prediction audit trail. An ID supplied by an upstream
// proxy is honored; otherwise a fresh UUID is generated. The ID is echoed
// back in the response headers so clients can quote it when reporting a bad
// valuation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from the gin context, or an empty
// string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
