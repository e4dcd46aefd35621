package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/mathx"
)

// Price quotes one unit of Base in units of Quote.
type Price struct {
	Base  common.Address  `json:"base"`
	Quote common.Address  `json:"quote"`
	Price decimal.Decimal `json:"price"`
}

// Reciprocal swaps base and quote and inverts the price.
func (p Price) Reciprocal() (Price, error) {
	inv, err := mathx.Div(mathx.One, p.Price)
	if err != nil {
		return Price{}, fmt.Errorf("reciprocal of %s: %w", p.Price, err)
	}
	return Price{Base: p.Quote, Quote: p.Base, Price: inv}, nil
}

// Exchange converts amount of asset into the other side of the pair.
func (p Price) Exchange(asset common.Address, amount decimal.Decimal) (common.Address, decimal.Decimal, error) {
	switch asset {
	case p.Base:
		out, err := mathx.Mul(amount, p.Price)
		if err != nil {
			return common.Address{}, decimal.Zero, err
		}
		return p.Quote, out, nil
	case p.Quote:
		// Exchanging at the reciprocal, divided directly to keep precision.
		out, err := mathx.Div(amount, p.Price)
		if err != nil {
			return common.Address{}, decimal.Zero, err
		}
		return p.Base, out, nil
	default:
		return common.Address{}, decimal.Zero, ErrPriceNotApplicable
	}
}

// RelativeDifference returns |other - p| / p for two quotes of the same pair,
// reciprocating other first when its base and quote are swapped.
func (p Price) RelativeDifference(other Price) (decimal.Decimal, error) {
	switch {
	case p.Base == other.Base && p.Quote == other.Quote:
		diff, err := mathx.Sub(other.Price, p.Price)
		if err != nil {
			return decimal.Zero, err
		}
		return mathx.Div(diff.Abs(), p.Price)
	case p.Base == other.Quote && p.Quote == other.Base:
		inv, err := other.Reciprocal()
		if err != nil {
			return decimal.Zero, err
		}
		return p.RelativeDifference(inv)
	default:
		return decimal.Zero, ErrPriceNotComparable
	}
}

// WithinTolerance reports whether other deviates from p by at most maxDiff.
func (p Price) WithinTolerance(other Price, maxDiff decimal.Decimal) (bool, error) {
	diff, err := p.RelativeDifference(other)
	if err != nil {
		return false, err
	}
	return diff.LessThanOrEqual(maxDiff), nil
}
