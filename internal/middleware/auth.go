package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quocanhngo/firechat/pkg/auth"
)

// Context keys set for downstream handlers
const (
	KeyUID   = "uid"
	KeyEmail = "email"
	KeyToken = "token"
)

// Authenticator validates a session token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthMiddleware validates the bearer token and injects the viewer into context
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format. Use: Bearer <token>"})
			return
		}

		claims, err := authn.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "message": err.Error()})
			return
		}

		c.Set(KeyUID, claims.UID)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyToken, parts[1])
		c.Next()
	}
}

// UID returns the authenticated viewer
func UID(c *gin.Context) string {
	return c.GetString(KeyUID)
}

// Token returns the raw session token of the request
func Token(c *gin.Context) string {
	return c.GetString(KeyToken)
}
