package usecase

import (
	"fmt"

	"economy-service/internal/xerrors"

	"github.com/shopspring/decimal"
)

// parsePositiveAmount parses a decimal amount from its string form and
// rejects zero or negative values. Amounts travel as strings end to end
// so they never pass through floats.
func parsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, xerrors.ErrInvalidInput)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive: %w", xerrors.ErrInvalidInput)
	}
	return d, nil
}
