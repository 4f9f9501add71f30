package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	errNegativeAmount = errors.New("amount must not be negative")
	errTooPrecise     = errors.New("amount must have at most 2 decimal places")
)

// ToMinorUnits converts a currency amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// FromMinorUnits converts cents back to a 2-place amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ParseAmount parses a non-negative amount with at most two decimal places.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if err := checkAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func checkAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return errNegativeAmount
	}
	if !d.Equal(d.Round(2)) {
		return errTooPrecise
	}
	return nil
}
