package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"coastal-alert-service/config"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware guards operator routes (status override, responses,
// verification) with the configured bearer token. When no token is
// configured the routes are open, which is the expected mode in local
// development.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.OperatorToken == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warnf("Missing authorization header from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		token := extractToken(authHeader)
		if token == "" {
			log.Warnf("Invalid authorization format from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.OperatorToken)) != 1 {
			log.Warnf("Invalid operator token from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
