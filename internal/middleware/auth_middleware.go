package middleware

import (
	"net/http"
	"strings"

	"botiquin_backend/internal/models"
	"botiquin_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format. Use Bearer <token>"})
			c.Abort()
			return
		}

		tokenString := parts[1]
		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token: " + err.Error()})
			c.Abort()
			return
		}

		// Set user information in the context for downstream handlers
		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("userRole", claims.Role)

		c.Next()
	}
}

// CurrentPrincipal rebuilds the acting principal from the claims the auth
// middleware stored in the context. The second return is false when the
// middleware did not run (misconfigured route).
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	username, okName := c.Get("username")
	role, okRole := c.Get("userRole")
	if !okName || !okRole {
		return models.Principal{}, false
	}
	name, okName := username.(string)
	roleStr, okRole := role.(string)
	if !okName || !okRole {
		return models.Principal{}, false
	}
	return models.Principal{Identifier: name, Role: roleStr}, true
}
