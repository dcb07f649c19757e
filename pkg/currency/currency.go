// Package currency converts catalog prices into the display currencies and
// formats them for humans.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultUSDToINRRate is the fixed conversion rate used when none is configured.
var DefaultUSDToINRRate = decimal.RequireFromString("83.5")

// Converter turns USD catalog prices into INR and renders both.
type Converter struct {
	rate      decimal.Decimal
	inrDigits int
}

// NewConverter builds a converter. A non-positive rate falls back to the
// default; a negative digit count falls back to the ISO scale of INR.
func NewConverter(rate decimal.Decimal, inrDigits int) Converter {
	if !rate.IsPositive() {
		rate = DefaultUSDToINRRate
	}
	if inrDigits < 0 {
		inrDigits = isoScale(currency.INR)
	}
	return Converter{rate: rate, inrDigits: inrDigits}
}

// Rate returns the USD to INR rate in use.
func (c Converter) Rate() decimal.Decimal {
	return c.rate
}

// Convert converts a USD amount into INR.
func (c Converter) Convert(usd decimal.Decimal) decimal.Decimal {
	return usd.Mul(c.rate)
}

// FormatUSD renders a USD amount, e.g. $1,234.56.
func (c Converter) FormatUSD(amount decimal.Decimal) string {
	return format(currency.USD, amount, isoScale(currency.USD), westernGrouping)
}

// FormatINR renders an INR amount with Indian digit grouping, e.g. ₹1,03,045.
func (c Converter) FormatINR(amount decimal.Decimal) string {
	return format(currency.INR, amount, c.inrDigits, indianGrouping)
}

// FormatUSDAsINR converts then renders a USD amount.
func (c Converter) FormatUSDAsINR(usd decimal.Decimal) string {
	return c.FormatINR(c.Convert(usd))
}

func isoScale(unit currency.Unit) int {
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

func symbol(unit currency.Unit) string {
	return fmt.Sprint(currency.NarrowSymbol(unit))
}

type grouping func(digits string) string

func format(unit currency.Unit, amount decimal.Decimal, digits int, group grouping) string {
	fixed := amount.StringFixed(int32(digits))

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		fixed = fixed[1:]
		if strings.Trim(fixed, "0.") != "" {
			sign = "-"
		}
	}

	intPart, fracPart, hasFrac := strings.Cut(fixed, ".")
	out := sign + symbol(unit) + group(intPart)
	if hasFrac {
		out += "." + fracPart
	}
	return out
}

// westernGrouping groups by thousands: 1,234,567.
func westernGrouping(digits string) string {
	return groupFrom(digits, 3, 3)
}

// indianGrouping groups the last three digits, then pairs: 12,34,567.
func indianGrouping(digits string) string {
	return groupFrom(digits, 3, 2)
}

func groupFrom(digits string, first, rest int) string {
	if len(digits) <= first {
		return digits
	}
	head := digits[:len(digits)-first]
	tail := digits[len(digits)-first:]

	var parts []string
	for len(head) > rest {
		parts = append([]string{head[len(head)-rest:]}, parts...)
		head = head[:len(head)-rest]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(append(parts, tail), ",")
}
