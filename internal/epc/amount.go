// =============================================================================
// EPC QR Code Generator - Amount Value
// =============================================================================
//
// Amount is the AT-04 "Amount of the Credit Transfer in Euro" field. It is
// held as a euro/cent pair rather than a float so that the wire text can be
// reproduced exactly:
//
//   "12.5"  -> EUR12.5
//   "12.50" -> EUR12.50
//   "12.05" -> EUR12.05
//
// The number of fraction digits the caller wrote is part of the value and is
// carried through formatting, never normalised.
//
// RANGE:
//   0.01 <= amount <= 999999999.99
//
// =============================================================================

package epc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxEuro is the largest whole-euro part an EPC amount may carry.
	MaxEuro = 999999999

	// MaxCent is the largest cent part.
	MaxCent = 99
)

var (
	// ErrNoSeparator is returned when an amount string has no '.'.
	ErrNoSeparator = errors.New("invalid format, expected #.##, but couldn't find '.'")

	// ErrAmountParse is returned when either side of the separator is not a
	// non-negative base-10 integer.
	ErrAmountParse = errors.New("failed to parse amount")

	// ErrAmountOutOfRange is returned when the amount is not within
	// 0.01 and 999999999.99.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// Amount is an immutable two-decimal euro quantity.
type Amount struct {
	euro uint64
	cent uint64

	// oneDigit records that the fraction was written as a single digit
	// ("12.5"); cent then holds the value multiplied by ten.
	oneDigit bool
}

// NewAmount builds an Amount from its parts. The value is not range checked
// here; the payload validator reports an out-of-range amount.
func NewAmount(euro, cent uint64) Amount {
	return Amount{euro: euro, cent: cent}
}

// ParseAmount parses "<euro>.<cent>" where the fraction has one or two digits.
func ParseAmount(s string) (Amount, error) {
	euroText, centText, found := strings.Cut(s, ".")
	if !found {
		return Amount{}, ErrNoSeparator
	}

	euro, err := parseAmountPart(euroText)
	if err != nil {
		return Amount{}, err
	}
	cent, err := parseAmountPart(centText)
	if err != nil {
		return Amount{}, err
	}

	// A third fraction digit cannot be represented in cents.
	if len(centText) > 2 {
		return Amount{}, fmt.Errorf("%w: at most two decimal places are allowed, but got %q", ErrAmountOutOfRange, s)
	}

	amount := Amount{euro: euro, cent: cent}
	if len(centText) == 1 {
		amount.cent = cent * 10
		amount.oneDigit = true
	}

	if !amount.inRange() {
		return Amount{}, amount.rangeError()
	}

	return amount, nil
}

// parseAmountPart parses one side of the separator.
func parseAmountPart(text string) (uint64, error) {
	// strconv accepts neither signs nor blanks for unsigned parsing.
	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q is too large", ErrAmountOutOfRange, text)
		}
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", ErrAmountParse, text)
	}
	return value, nil
}

// Euro returns the whole-euro part.
func (a Amount) Euro() uint64 { return a.euro }

// Cent returns the cent part in the range 0..99 for a valid amount.
func (a Amount) Cent() uint64 { return a.cent }

// inRange reports whether the amount satisfies 0.01 <= a <= 999999999.99.
func (a Amount) inRange() bool {
	if a.euro > MaxEuro || a.cent > MaxCent {
		return false
	}
	return a.euro != 0 || a.cent != 0
}

func (a Amount) rangeError() error {
	return fmt.Errorf("%w: the amount must be between 0.01 and 999999999.99, but was %d.%02d",
		ErrAmountOutOfRange, a.euro, a.cent)
}

// Value returns the amount without the currency prefix, e.g. "12.5".
func (a Amount) Value() string {
	if a.oneDigit {
		return fmt.Sprintf("%d.%d", a.euro, a.cent/10)
	}
	return fmt.Sprintf("%d.%02d", a.euro, a.cent)
}

// String returns the amount as it appears on the wire, e.g. "EUR12.50".
func (a Amount) String() string {
	return "EUR" + a.Value()
}

// Decimal returns the amount as an exact decimal, used for batch totals.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a.euro)).Add(decimal.New(int64(a.cent), -2))
}
