package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the fixed number of fractional digits used on the gateway wire.
const MinorUnitExponent = 2

var (
	// ErrAmountPrecision is returned for amounts that cannot be expressed in minor units.
	ErrAmountPrecision = errors.New("amount has more than two decimal places")
	// ErrAmountRange is returned for amounts outside the gateway's minor-unit range.
	ErrAmountRange = errors.New("amount out of range")
)

var (
	// MaxAmount is the exclusive ceiling of NUMERIC(20,2), the ledger column type.
	MaxAmount = decimal.New(1, 18)

	minMinorUnits = decimal.NewFromInt(1)
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
)

// IsValidAmount reports whether d is positive, has at most two decimal
// places and is below MaxAmount.
func IsValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() &&
		d.Equal(d.Truncate(MinorUnitExponent)) &&
		d.LessThan(MaxAmount)
}

// ToMinorUnits converts a decimal amount to gateway minor units. The result
// is always in [1, math.MaxInt64].
func ToMinorUnits(d decimal.Decimal) (int64, error) {
	if !d.Equal(d.Truncate(MinorUnitExponent)) {
		return 0, fmt.Errorf("%w: %s", ErrAmountPrecision, d.String())
	}
	minor := d.Shift(MinorUnitExponent)
	if minor.LessThan(minMinorUnits) || minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: %s", ErrAmountRange, d.String())
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts gateway minor units to a decimal amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitExponent)
}
