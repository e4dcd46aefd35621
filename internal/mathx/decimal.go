package mathx

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of fractional digits kept on amounts and prices.
	Scale int32 = 18
	// PreciseScale is used for intermediate square roots and powers.
	PreciseScale int32 = 36
)

// ErrOverflow reports a checked arithmetic failure: division by zero, a
// negative square root or a result outside the representable range.
var ErrOverflow = errors.New("arithmetic overflow")

var (
	maxDecimal = decimal.RequireFromString("3138550867693340381917894711603833208051.177722232017256447")
	minDecimal = decimal.RequireFromString("-3138550867693340381917894711603833208051.177722232017256448")

	One = decimal.NewFromInt(1)
	Two = decimal.NewFromInt(2)
)

// Checked returns d when it lies within the representable range.
func Checked(d decimal.Decimal) (decimal.Decimal, error) {
	if d.GreaterThan(maxDecimal) || d.LessThan(minDecimal) {
		return decimal.Zero, ErrOverflow
	}
	return d, nil
}

func Add(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Checked(a.Add(b))
}

func Sub(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Checked(a.Sub(b))
}

// Mul multiplies and truncates the product to Scale digits.
func Mul(a, b decimal.Decimal) (decimal.Decimal, error) {
	return Checked(a.Mul(b).Truncate(Scale))
}

// Div divides and truncates the quotient toward zero at Scale digits.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	return DivScale(a, b, Scale)
}

// DivScale divides and truncates the quotient toward zero at scale digits.
func DivScale(a, b decimal.Decimal, scale int32) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrOverflow
	}
	q, _ := a.QuoRem(b, scale)
	return Checked(q)
}

// Trunc drops digits beyond Scale.
func Trunc(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(Scale)
}

// PowInt raises base to an integer exponent by repeated squaring, truncating
// every intermediate product at scale digits.
func PowInt(base decimal.Decimal, exp int64, scale int32) (decimal.Decimal, error) {
	if exp == 0 {
		return One, nil
	}
	negative := exp < 0
	if negative {
		exp = -exp
	}

	result := One
	factor := base
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(factor).Truncate(scale)
			if _, err := Checked(result); err != nil {
				return decimal.Zero, err
			}
		}
		exp >>= 1
		if exp > 0 {
			factor = factor.Mul(factor).Truncate(scale)
			if _, err := Checked(factor); err != nil {
				return decimal.Zero, err
			}
		}
	}

	if negative {
		return DivScale(One, result, scale)
	}
	return result, nil
}

// Sqrt returns the square root of d truncated at scale digits.
func Sqrt(d decimal.Decimal, scale int32) (decimal.Decimal, error) {
	switch d.Sign() {
	case -1:
		return decimal.Zero, ErrOverflow
	case 0:
		return decimal.Zero, nil
	}

	work := scale + 8
	guess := math.Sqrt(d.InexactFloat64())
	x := decimal.NewFromFloat(guess)
	if math.IsInf(guess, 0) || math.IsNaN(guess) || x.Sign() <= 0 {
		x = d
	}

	for i := 0; i < 200; i++ {
		next := x.Add(d.DivRound(x, work)).DivRound(Two, work)
		if next.Equal(x) {
			break
		}
		x = next
	}

	// Newton converges from above; step down until x*x <= d.
	x = x.Truncate(scale)
	ulp := decimal.New(1, -scale)
	for x.Mul(x).GreaterThan(d) {
		x = x.Sub(ulp)
	}
	return x, nil
}

// Mean returns the arithmetic mean of a and b.
func Mean(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum, err := Add(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	return Div(sum, Two)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// NonPositive clamps d at zero from above.
func NonPositive(d decimal.Decimal) decimal.Decimal {
	if d.IsPositive() {
		return decimal.Zero
	}
	return d
}
