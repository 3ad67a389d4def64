package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MapsHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:             http.StatusNotFound,
		ErrCodeUnauthenticated:      http.StatusUnauthorized,
		ErrCodeUnauthorized:         http.StatusForbidden,
		ErrCodeValidation:           http.StatusBadRequest,
		ErrCodeInvalidState:         http.StatusConflict,
		ErrCodeInvalidTransition:    http.StatusConflict,
		ErrCodeDuplicateProposal:    http.StatusConflict,
		ErrCodeMilestonesIncomplete: http.StatusConflict,
		ErrCodePersistenceFailure:   http.StatusServiceUnavailable,
		ErrCodeInternal:             http.StatusInternalServerError,
	}

	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, string(code))
	}
}

func TestCodeOf_UnwrapsChain(t *testing.T) {
	base := New(ErrCodeInvalidState, "заказ больше не открыт")
	wrapped := fmt.Errorf("accept: %w", base)

	assert.Equal(t, ErrCodeInvalidState, CodeOf(wrapped))
	assert.True(t, IsInvalidState(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodePersistenceFailure, "не удалось сохранить контракт")

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsPersistenceFailure(err))
	assert.Contains(t, err.Error(), "connection refused")
}
