package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeUnauthenticated      ErrorCode = "UNAUTHENTICATED"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeBadRequest           ErrorCode = "BAD_REQUEST"
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidState         ErrorCode = "INVALID_STATE"
	ErrCodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrCodeDuplicateProposal    ErrorCode = "DUPLICATE_PROPOSAL"
	ErrCodeMilestonesIncomplete ErrorCode = "MILESTONES_INCOMPLETE"
	ErrCodePersistenceFailure   ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeRateLimited          ErrorCode = "RATE_LIMITED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidState, ErrCodeInvalidTransition, ErrCodeDuplicateProposal, ErrCodeMilestonesIncomplete:
		return http.StatusConflict
	case ErrCodePersistenceFailure:
		return http.StatusServiceUnavailable
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или пустую строку для ошибок вне таксономии.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsUnauthorized(err error) bool {
	return Is(err, ErrCodeUnauthorized)
}

func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

func IsInvalidState(err error) bool {
	return Is(err, ErrCodeInvalidState)
}

func IsInvalidTransition(err error) bool {
	return Is(err, ErrCodeInvalidTransition)
}

func IsPersistenceFailure(err error) bool {
	return Is(err, ErrCodePersistenceFailure)
}

var (
	ErrGigNotFound          = New(ErrCodeNotFound, "заказ не найден")
	ErrProposalNotFound     = New(ErrCodeNotFound, "предложение не найдено")
	ErrContractNotFound     = New(ErrCodeNotFound, "контракт не найден")
	ErrMilestoneNotFound    = New(ErrCodeNotFound, "этап не найден")
	ErrEscrowNotFound       = New(ErrCodeNotFound, "эскроу-транзакция не найдена")
	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
	ErrUnauthenticated      = New(ErrCodeUnauthenticated, "требуется авторизация")
	ErrOpenEscrow           = New(ErrCodeInvalidTransition, "в этой области уже есть незавершённое эскроу")
)
