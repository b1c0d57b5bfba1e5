package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount the numeric(14,2) ledger columns hold
var MaxAmount = decimal.RequireFromString("999999999999.99")

// ParseAmount accepts a positive decimal with at most two fractional digits
// and normalizes it to two places.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errors.New("amount is required")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("amount must be a decimal number")
	}
	if !amount.IsPositive() {
		return decimal.Zero, errors.New("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, errors.New("amount must have at most two decimal places")
	}
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, errors.New("amount must not exceed " + MaxAmount.StringFixed(2))
	}
	return amount.Round(2), nil
}
