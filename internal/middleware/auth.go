package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// tokenValidator is the slice of the auth service the middleware needs.
type tokenValidator interface {
	Configured() bool
	ValidateToken(tokenString string) error
}

// RequireAuth creates middleware guarding the private household routes.
// Until a password hash is provisioned the routes answer 503 rather than
// silently letting everything through.
func RequireAuth(auth tokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Auth not provisioned"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		if err := auth.ValidateToken(headerParts[1]); err != nil {
			logger.Debug("token validation failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
