package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

// Error пишет AppError с его статусом; всё прочее маскируется как внутренняя ошибка.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		abort(c, appErr.HTTPStatus, appErr.Code, appErr.Message)
		return
	}
	abort(c, http.StatusInternalServerError, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
}

func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, apperror.ErrCodeBadRequest, message)
}

func Unauthenticated(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthenticated, message)
}

func TooManyRequests(c *gin.Context, message string) {
	abort(c, http.StatusTooManyRequests, apperror.ErrCodeRateLimited, message)
}

func abort(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	})
}
