package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/interface/http/response"
	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

// ErrorHandler логирует ошибки, прикреплённые через c.Error, и отвечает за
// обработчик, если тот ничего не записал. Внутренние ошибки клиенту не раскрываются.
func ErrorHandler(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		entry := log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.FullPath(),
			"method": c.Request.Method,
			"code":   apperror.CodeOf(err),
		})

		status := c.Writer.Status()
		if !c.Writer.Written() {
			response.Error(c, err)
			status = c.Writer.Status()
		}

		if status >= http.StatusInternalServerError {
			entry.Error("ошибка обработки запроса")
		} else {
			entry.Debug("запрос отклонён")
		}
	}
}
