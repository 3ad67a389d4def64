package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

func TestNewPercent_ValidatesRoundedValue(t *testing.T) {
	for _, raw := range []string{"0.001", "0.004", "0", "-1", "100.01"} {
		_, err := NewPercent(decimal.RequireFromString(raw))
		require.Error(t, err, raw)
		assert.True(t, apperror.IsValidation(err), raw)
	}

	p, err := NewPercent(decimal.RequireFromString("0.005"))
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("0.01")), p.String())

	p, err = NewPercent(decimal.RequireFromString("100.004"))
	require.NoError(t, err)
	assert.True(t, p.Equal(hundred))
}

func TestNewRate_ValidatesRoundedValue(t *testing.T) {
	_, err := NewRate(decimal.RequireFromString("0.004"))
	assert.True(t, apperror.IsValidation(err))

	r, err := NewRate(decimal.RequireFromString("450.499"))
	require.NoError(t, err)
	assert.Equal(t, "450.5", r.String())
}

func TestNewAmount_RoundsToCents(t *testing.T) {
	a, err := NewAmount(decimal.RequireFromString("-0.001"))
	require.NoError(t, err)
	assert.True(t, a.IsZero())

	_, err = NewAmount(decimal.RequireFromString("-0.01"))
	assert.True(t, apperror.IsValidation(err))
}
