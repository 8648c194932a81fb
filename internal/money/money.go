// Package money converts user-facing amounts into the gateways' minor units.
//
// Gateways accept integers with two implied decimal places, so 100.50 is sent as 10050.
// Every conversion in the service goes through this package.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Number of implied decimal places in a minor-unit amount
const MinorUnitExp = 2

// Largest amount the ledger can hold, NUMERIC(14, 2)
var MaxAmount = decimal.New(99999999999999, -MinorUnitExp)

var (
	ErrEmptyAmount    = errors.New("amount is empty")
	ErrAmountTooLarge = errors.New("amount exceeds the largest supported amount")
)

// formatting characters tolerated in amounts: "1,000.50", " 100 "
var formatStripper = strings.NewReplacer(",", "", " ", "", "_", "")

// Parse reads a decimal amount, ignoring thousands separators and spaces
func Parse(value string) (decimal.Decimal, error) {
	cleaned := formatStripper.Replace(value)
	if cleaned == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't parse amount %q: %w", value, err)
	}

	return d, nil
}

// ToMinorUnits returns round(amount * 100), half away from zero.
// Amount has to be within MaxAmount, see CheckedMinorUnits
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(MinorUnitExp).Round(0).IntPart()
}

// CheckedMinorUnits is ToMinorUnits for untrusted amounts.
// Returns ErrAmountTooLarge if rounded amount does not fit the ledger
func CheckedMinorUnits(amount decimal.Decimal) (int64, error) {
	if Round(amount).Abs().GreaterThan(MaxAmount) {
		return 0, ErrAmountTooLarge
	}
	return ToMinorUnits(amount), nil
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitExp)
}

// Round amount to the precision stored in the ledger
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MinorUnitExp)
}
