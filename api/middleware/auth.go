package middleware

import (
	"net/http"
	"strings"

	"clipcast/services"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware резолвит Bearer токен в id зрителя и кладет его в
// контекст. Валидация сессии - забота auth-коллаборатора, здесь только
// его интерфейс.
func AuthMiddleware(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := accounts.ResolveToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
