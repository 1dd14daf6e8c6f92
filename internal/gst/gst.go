// Package gst computes Goods and Services Tax amounts.
package gst

import (
	"fmt"
	"math"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/shopspring/decimal"
)

// Mode selects how an amount relates to its tax.
type Mode string

// Supported modes.
const (
	// Additive treats the amount as the pre-tax value: gst = amount * rate / 100.
	Additive Mode = "additive"
	// Inclusive treats the amount as tax-inclusive: gst = amount * rate / (100 + rate).
	Inclusive Mode = "inclusive"
)

var hundred = decimal.NewFromInt(100)

// ParseMode validates a configured mode name. Empty means Additive.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Additive:
		return Additive, nil
	case Inclusive:
		return Inclusive, nil
	default:
		return "", fmt.Errorf("%w: gst mode %q (want additive or inclusive)", common.ErrInvalidConfig, s)
	}
}

// Compute returns the GST on amount at rate percent, rounded half away from
// zero to two decimal places.
func Compute(amount, rate float64, mode Mode) float64 {
	if amount == 0 || rate == 0 || math.IsNaN(amount) || math.IsNaN(rate) {
		return 0
	}

	a := decimal.NewFromFloat(amount)
	r := decimal.NewFromFloat(rate)

	var tax decimal.Decimal
	switch mode {
	case Inclusive:
		tax = a.Mul(r).Div(hundred.Add(r))
	default:
		tax = a.Mul(r).Div(hundred)
	}

	f, _ := tax.Round(2).Float64()
	return f
}

// RoundAmount rounds a currency value half away from zero to two places.
func RoundAmount(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// Sum adds currency values without accumulating binary float error.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(2).Float64()
	return f
}
