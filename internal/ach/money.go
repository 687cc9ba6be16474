package ach

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const minorUnitPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	// int64 cents ceiling expressed in major units
	maxMajor = decimal.New(math.MaxInt64, -minorUnitPlaces)
)

// ToMinorUnits converts a display amount in major units (dollars) to cents.
// This is the only place a decimal amount becomes an integer amount.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount.String())
	}
	if !amount.Equal(amount.Truncate(minorUnitPlaces)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount.String(), minorUnitPlaces)
	}
	if amount.GreaterThan(maxMajor) {
		return 0, fmt.Errorf("%w: %s overflows", ErrInvalidAmount, amount.String())
	}
	return amount.Mul(hundred).IntPart(), nil
}

// ParseAmount parses a decimal string such as "2500.00" into cents.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return ToMinorUnits(d)
}

// FormatMinorUnits renders cents as a two-place decimal string.
func FormatMinorUnits(cents int64) string {
	return decimal.New(cents, -minorUnitPlaces).StringFixed(minorUnitPlaces)
}
