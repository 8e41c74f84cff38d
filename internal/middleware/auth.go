package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuth creates a middleware that requires a bearer token on the request.
// It compares the presented token against the configured token in constant time.
// When the configured token is empty the protected routes are disabled entirely.
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := GetRequestID(c)

		if token == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":       "FORBIDDEN",
					"message":    "This endpoint is disabled",
					"request_id": requestID,
				},
			})
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			if log := GetLogger(c); log != nil {
				log.Warn("Rejected request with invalid bearer token", map[string]interface{}{
					"request_id": requestID,
					"path":       c.Request.URL.Path,
				})
			}

			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":       "UNAUTHORIZED",
					"message":    "Missing or invalid bearer token",
					"request_id": requestID,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
