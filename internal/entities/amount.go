package entities

import (
	"github.com/shopspring/decimal"

	apperrors "tax-portal/pkg/errors"
)

// MaxAmount is the first value a NUMERIC(12,2) column cannot hold.
var MaxAmount = decimal.New(1, 10)

// NormalizeAmount rounds to cents and checks the result against the stored range.
func NormalizeAmount(field string, amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := amount.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, apperrors.NewValidationError(field, "must be at least 0.01")
	}
	if rounded.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, apperrors.NewValidationError(field, "must be less than %s", MaxAmount.String())
	}
	return rounded, nil
}
