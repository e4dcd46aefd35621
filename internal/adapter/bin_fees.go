package adapter

import (
	"fmt"

	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/bins"
	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

type composition uint8

const (
	entirelyX composition = iota
	entirelyY
	composite
)

// expectedBinAmounts re-prices every contributed bin from the price at open
// to the current price, ignoring fees. A bin below the active bin is expected
// to hold only Y, a bin above it only X.
func expectedBinAmounts(contributed []model.BinAmount, current, atOpen decimal.Decimal, active, span uint32) ([]model.BinAmount, error) {
	out := make([]model.BinAmount, 0, len(contributed))
	for _, bin := range contributed {
		lower, upper, err := bins.BinBounds(bin.Bin, span)
		if err != nil {
			return nil, err
		}

		var then composition
		switch {
		case bin.X.IsZero() && bin.Y.IsZero():
			continue
		case bin.X.IsZero():
			then = entirelyY
		case bin.Y.IsZero():
			then = entirelyX
		default:
			then = composite
		}

		now := composite
		switch {
		case bin.Bin < active:
			now = entirelyY
		case bin.Bin > active:
			now = entirelyX
		}

		var x, y decimal.Decimal
		switch {
		case then == now && then != composite:
			x, y = bin.X, bin.Y
		case then == entirelyX && now == entirelyY:
			mid, err := geometricMean(lower, upper)
			if err != nil {
				return nil, err
			}
			x = decimal.Zero
			if y, err = mathx.Mul(mid, bin.X); err != nil {
				return nil, err
			}
		case then == entirelyY && now == entirelyX:
			mid, err := geometricMean(lower, upper)
			if err != nil {
				return nil, err
			}
			y = decimal.Zero
			if x, err = mathx.Div(bin.Y, mid); err != nil {
				return nil, err
			}
		default:
			var from, to decimal.Decimal
			switch {
			case then == entirelyX:
				from, to = lower, current
			case then == entirelyY:
				from, to = upper, current
			case now == entirelyX:
				from, to = atOpen, lower
			case now == entirelyY:
				from, to = atOpen, upper
			default:
				from, to = atOpen, current
			}
			x, y, err = repriceBin(bin, lower, upper, from, to)
			if err != nil {
				return nil, fmt.Errorf("bin %d: %w", bin.Bin, err)
			}
		}

		out = append(out, model.BinAmount{Bin: bin.Bin, X: x, Y: y})
	}
	return out, nil
}

func geometricMean(a, b decimal.Decimal) (decimal.Decimal, error) {
	product, err := mathx.Mul(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Sqrt(product, mathx.Scale)
}

// binLiquidity solves the concentrated liquidity quadratic for a bin holding
// reserves x and y between prices lower and upper.
func binLiquidity(x, y, lower, upper decimal.Decimal) (decimal.Decimal, error) {
	const scale = mathx.PreciseScale

	sqrtLower, err := mathx.Sqrt(lower, scale)
	if err != nil {
		return decimal.Zero, err
	}
	sqrtUpper, err := mathx.Sqrt(upper, scale)
	if err != nil {
		return decimal.Zero, err
	}

	ratio, err := mathx.DivScale(sqrtLower, sqrtUpper, scale)
	if err != nil {
		return decimal.Zero, err
	}
	a := ratio.Sub(mathx.One)
	yOverUpper, err := mathx.DivScale(y, sqrtUpper, scale)
	if err != nil {
		return decimal.Zero, err
	}
	b := x.Mul(sqrtLower).Add(yOverUpper).Truncate(scale)
	c := x.Mul(y)

	discriminant := b.Mul(b).Sub(decimal.NewFromInt(4).Mul(a).Mul(c)).Truncate(scale)
	root, err := mathx.Sqrt(discriminant, scale)
	if err != nil {
		return decimal.Zero, err
	}
	numerator := b.Neg().Sub(root)
	liquidity, err := mathx.DivScale(numerator, mathx.Two.Mul(a), scale)
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Checked(liquidity)
}

// repriceBin moves a bin's reserves along its liquidity curve from price
// from to price to.
func repriceBin(bin model.BinAmount, lower, upper, from, to decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	const scale = mathx.PreciseScale

	liquidity, err := binLiquidity(bin.X, bin.Y, lower, upper)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	sqrtFrom, err := mathx.Sqrt(from, scale)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	sqrtTo, err := mathx.Sqrt(to, scale)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	invFrom, err := mathx.DivScale(mathx.One, sqrtFrom, scale)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	invTo, err := mathx.DivScale(mathx.One, sqrtTo, scale)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	changeX := liquidity.Mul(invTo.Sub(invFrom))
	changeY := liquidity.Mul(sqrtTo.Sub(sqrtFrom))

	x := mathx.NonNegative(mathx.Trunc(bin.X.Add(changeX)))
	y := mathx.NonNegative(mathx.Trunc(bin.Y.Add(changeY)))
	if _, err := mathx.Checked(x); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if _, err := mathx.Checked(y); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return x, y, nil
}
