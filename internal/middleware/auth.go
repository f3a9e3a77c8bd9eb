package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyAuth creates a Gin middleware that checks the static API key. The
// key is accepted either as an X-API-Key header or as a Bearer token. An
// empty configured key disables the check.
func APIKeyAuth(apiKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			authHeader := c.GetHeader("Authorization")
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				provided = parts[1]
			}
		}

		if provided != apiKey {
			logger.Warn("Rejected request with invalid API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "invalid or missing API key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
