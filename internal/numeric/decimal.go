// Package numeric centralizes the decimal conventions of the bot.
//
// All money and size math runs on shopspring decimals; binary floats are
// never used past the config boundary. Venues reject quantities rounded
// away from zero, so every scale reduction here truncates toward zero.
package numeric

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TruncWithScale drops digits below scale n toward zero. It never rounds.
func TruncWithScale(d decimal.Decimal, n int32) decimal.Decimal {
	return d.Truncate(n)
}

// DivTrunc divides a by b and truncates the quotient toward zero at
// scale n. Built on QuoRem, so the result is exact-then-truncated rather
// than rounded. Panics on a zero divisor, as plain division would.
func DivTrunc(a, b decimal.Decimal, n int32) decimal.Decimal {
	q, _ := a.QuoRem(b, n)
	return q
}

// ScaleOf returns the minimal scale needed to represent d without
// trailing zeros. Integers have scale 0.
func ScaleOf(d decimal.Decimal) int32 {
	exp := d.Exponent()
	if exp >= 0 || d.IsZero() {
		return 0
	}

	coef := new(big.Int).Abs(d.Coefficient())
	ten := big.NewInt(10)
	rem := new(big.Int)
	for exp < 0 {
		quo := new(big.Int)
		quo.QuoRem(coef, ten, rem)
		if rem.Sign() != 0 {
			break
		}
		coef = quo
		exp++
	}
	return -exp
}

// Pow10 returns 10^n as a decimal. Negative n yields increments like
// 0.001 for n = -3.
func Pow10(n int32) decimal.Decimal {
	return decimal.New(1, n)
}
