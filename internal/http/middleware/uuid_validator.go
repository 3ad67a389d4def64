package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
)

// UUIDValidator проверяет, что параметр пути является валидным UUID.
// Использование: api.POST("/escrow/:id/fund", UUIDValidator("id"), h.Fund)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			response.BadRequest(c, "параметр "+paramName+" обязателен")
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			response.BadRequest(c, "параметр "+paramName+" должен быть валидным UUID")
			return
		}

		c.Next()
	}
}
