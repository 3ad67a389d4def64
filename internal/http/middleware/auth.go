package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/auth"
	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Unauthenticated(c, "требуется авторизация")
			return
		}
		authenticate(c, tokens, strings.TrimPrefix(header, "Bearer "))
	}
}

// WSAuthMiddleware принимает токен ещё и из ?token=, браузер не даёт
// выставить заголовок при открытии websocket.
func WSAuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			raw = strings.TrimPrefix(header, "Bearer ")
		}
		if raw == "" {
			response.Unauthenticated(c, "требуется авторизация")
			return
		}
		authenticate(c, tokens, raw)
	}
}

func authenticate(c *gin.Context, tokens *auth.TokenManager, raw string) {
	identity, err := tokens.ParseAccess(raw)
	if err != nil || identity.UserID == uuid.Nil {
		response.Unauthenticated(c, "токен невалиден")
		return
	}

	c.Set(ContextUserIDKey, identity.UserID)
	c.Set(ContextRoleKey, identity.Role)
	c.Next()
}
