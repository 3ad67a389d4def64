package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/gigmarket/internal/http/middleware"
	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
)

// currentUser достаёт пользователя, положенного AuthMiddleware.
// При отсутствии сразу отвечает 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		response.Unauthenticated(c, "требуется авторизация")
		return uuid.Nil, false
	}

	userID, ok := value.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		response.Unauthenticated(c, "требуется авторизация")
		return uuid.Nil, false
	}

	return userID, true
}

func currentRole(c *gin.Context) string {
	return c.GetString(middleware.ContextRoleKey)
}

func pathID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "некорректный ID "+what)
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON разбирает необязательное тело. Длина может быть неизвестна
// (chunked), поэтому пустое тело распознаётся по io.EOF, а не по ContentLength.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "некорректные данные запроса")
		return false
	}
	return true
}

// fail передаёт ошибку в ErrorHandler, он пишет ответ и лог.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
