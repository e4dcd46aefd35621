package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

// SizeRange sizes a contribution over a fixed bin range. The active bin gets
// one even share of the binding asset plus the matching amount of the other
// asset at the bin's reserve ratio; what remains is spread over the outer bins.
func SizeRange(in Input) (Plan, error) {
	if err := in.validate(); err != nil {
		return Plan{}, err
	}
	if in.ActiveX.IsZero() && in.ActiveY.IsZero() {
		return Plan{}, model.ErrNoActiveAmounts
	}

	shareX, err := mathx.Div(in.AmountX, count(len(in.Bins.Higher)+1))
	if err != nil {
		return Plan{}, err
	}
	shareY, err := mathx.Div(in.AmountY, count(len(in.Bins.Lower)+1))
	if err != nil {
		return Plan{}, err
	}

	var activeX, activeY decimal.Decimal
	switch {
	case in.ActiveX.IsZero():
		activeX, activeY = decimal.Zero, shareY
	case in.ActiveY.IsZero():
		activeX, activeY = shareX, decimal.Zero
	default:
		yForX, err := mulDiv(shareX, in.ActiveY, in.ActiveX)
		if err != nil {
			return Plan{}, fmt.Errorf("y required for x: %w", err)
		}
		xForY, err := mulDiv(shareY, in.ActiveX, in.ActiveY)
		if err != nil {
			return Plan{}, fmt.Errorf("x required for y: %w", err)
		}
		if xForY.GreaterThan(shareX) {
			activeX, activeY = shareX, yForX
		} else {
			activeX, activeY = xForY, shareY
		}
	}

	perBinX := decimal.Zero
	if n := len(in.Bins.Higher); n > 0 {
		if perBinX, err = mathx.Div(in.AmountX.Sub(activeX), count(n)); err != nil {
			return Plan{}, err
		}
	}
	perBinY := decimal.Zero
	if n := len(in.Bins.Lower); n > 0 {
		if perBinY, err = mathx.Div(in.AmountY.Sub(activeY), count(n)); err != nil {
			return Plan{}, err
		}
	}

	return buildPlan(in, activeX, activeY, perBinX, perBinY)
}

func mulDiv(a, b, c decimal.Decimal) (decimal.Decimal, error) {
	product, err := mathx.Mul(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Div(product, c)
}
