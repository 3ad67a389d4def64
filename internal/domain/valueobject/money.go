package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/gigmarket/internal/pkg/apperror"
)

var hundred = decimal.NewFromInt(100)

// NewAmount проверяет неотрицательную денежную сумму и округляет до копеек.
func NewAmount(v decimal.Decimal) (decimal.Decimal, error) {
	v = v.Round(2)
	if v.IsNegative() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return v, nil
}

// NewRate проверяет ставку отклика: после округления до копеек она должна быть больше нуля.
func NewRate(v decimal.Decimal) (decimal.Decimal, error) {
	v = v.Round(2)
	if !v.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "предложенная ставка должна быть положительной")
	}
	return v, nil
}

// NewPercent проверяет долю оплаты этапа: (0; 100] с точностью до сотых.
func NewPercent(v decimal.Decimal) (decimal.Decimal, error) {
	v = v.Round(2)
	if !v.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "процент оплаты этапа должен быть не меньше 0.01")
	}
	if v.GreaterThan(hundred) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "процент оплаты этапа не может превышать 100")
	}
	return v, nil
}

// SumWithinHundred проверяет, что сумма процентов не больше 100.
func SumWithinHundred(percents []decimal.Decimal) (decimal.Decimal, bool) {
	sum := decimal.Sum(decimal.Zero, percents...)
	return sum, sum.LessThanOrEqual(hundred)
}

// ShareOf возвращает долю percent от total с округлением до копеек.
func ShareOf(total, percent decimal.Decimal) decimal.Decimal {
	return total.Mul(percent).Div(hundred).Round(2)
}
