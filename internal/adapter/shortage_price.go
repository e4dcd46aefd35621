package adapter

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

var minKIn = decimal.RequireFromString("0.001")

// BidAsk is the pair's quote for selling and buying the base asset.
type BidAsk struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

func invalidCurve(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrNoPrice, fmt.Sprintf(format, args...))
}

// pairPrices evaluates the pair curve at now. The reference price decays
// towards its steady state once per elapsed minute since the last outgoing
// trade.
func pairPrices(state model.PairState, cfg model.PairConfig, basePool, quotePool model.Reserves, now time.Time) (BidAsk, error) {
	if !state.P0.IsPositive() {
		return BidAsk{}, invalidCurve("p0 %s", state.P0)
	}

	// The base pool prices base in quote; the quote pool prices the inverse.
	reserves, pRef, fromBase := quotePool, decimal.Zero, false
	if state.Shortage == model.BaseShortage {
		reserves, pRef, fromBase = basePool, state.P0, true
	} else {
		inv, err := mathx.Div(mathx.One, state.P0)
		if err != nil {
			return BidAsk{}, err
		}
		pRef = inv
	}

	actual := reserves.Actual
	surplus := reserves.Surplus
	shortfall, err := mathx.Mul(state.TargetRatio, actual)
	if err != nil {
		return BidAsk{}, err
	}
	shortfall = shortfall.Sub(actual)

	minute := now.Unix() / 60 * 60
	elapsed := minute - state.LastOutgoing
	if elapsed < 0 {
		elapsed = 0
	}
	factor, err := mathx.PowInt(cfg.DecayFactor, elapsed/60, mathx.Scale)
	if err != nil {
		return BidAsk{}, err
	}
	rest := mathx.One.Sub(factor)

	steady := pRef
	if shortfall.IsPositive() {
		steady, err = p0FromCurve(shortfall, surplus, state.TargetRatio, cfg.KIn)
		if err != nil {
			return BidAsk{}, err
		}
	}
	decayed, err := blend(factor, pRef, rest, steady)
	if err != nil {
		return BidAsk{}, err
	}

	adjusted := decimal.Zero
	if actual.IsPositive() {
		adjusted, err = targetRatio(decayed, actual, surplus, cfg.KIn)
		if err != nil {
			return BidAsk{}, err
		}
	}

	lastSpot := state.LastOutSpot
	if !fromBase {
		if !lastSpot.IsPositive() {
			return BidAsk{}, invalidCurve("last outgoing spot %s", lastSpot)
		}
		if lastSpot, err = mathx.Div(mathx.One, lastSpot); err != nil {
			return BidAsk{}, err
		}
	}

	incoming, err := spotPrice(decayed, adjusted, cfg.KIn)
	if err != nil {
		return BidAsk{}, err
	}
	outgoing, err := blend(factor, lastSpot, rest, incoming)
	if err != nil {
		return BidAsk{}, err
	}

	if fromBase {
		return BidAsk{Bid: incoming, Ask: outgoing}, nil
	}
	if !incoming.IsPositive() || !outgoing.IsPositive() {
		return BidAsk{}, invalidCurve("non-positive spot")
	}
	bid, err := mathx.Div(mathx.One, outgoing)
	if err != nil {
		return BidAsk{}, err
	}
	ask, err := mathx.Div(mathx.One, incoming)
	if err != nil {
		return BidAsk{}, err
	}
	return BidAsk{Bid: bid, Ask: ask}, nil
}

// blend returns wa*a + wb*b.
func blend(wa, a, wb, b decimal.Decimal) (decimal.Decimal, error) {
	left, err := mathx.Mul(wa, a)
	if err != nil {
		return decimal.Zero, err
	}
	right, err := mathx.Mul(wb, b)
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Add(left, right)
}

// p0FromCurve solves the curve for the reference price given the current
// shortfall and surplus.
func p0FromCurve(shortfall, surplus, ratio, k decimal.Decimal) (decimal.Decimal, error) {
	if !shortfall.IsPositive() {
		return decimal.Zero, invalidCurve("shortfall %s", shortfall)
	}
	if !surplus.IsPositive() {
		return decimal.Zero, invalidCurve("surplus %s", surplus)
	}
	if ratio.LessThan(mathx.One) {
		return decimal.Zero, invalidCurve("target ratio %s", ratio)
	}
	if k.LessThan(minKIn) {
		return decimal.Zero, invalidCurve("k %s", k)
	}
	scaled, err := mathx.Mul(k, ratio.Sub(mathx.One))
	if err != nil {
		return decimal.Zero, err
	}
	perUnit, err := mathx.Div(surplus, shortfall)
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Div(perUnit, mathx.One.Add(scaled))
}

// spotPrice is the marginal price at ratio: (1 + k(ratio^2 - 1)) * p0.
func spotPrice(p0, ratio, k decimal.Decimal) (decimal.Decimal, error) {
	if !p0.IsPositive() {
		return decimal.Zero, invalidCurve("reference price %s", p0)
	}
	if ratio.LessThan(mathx.One) {
		return decimal.Zero, invalidCurve("target ratio %s", ratio)
	}
	squared, err := mathx.Mul(ratio, ratio)
	if err != nil {
		return decimal.Zero, err
	}
	scaled, err := mathx.Mul(k, squared.Sub(mathx.One))
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Mul(mathx.One.Add(scaled), p0)
}

// targetRatio solves the curve for the ratio at which actual plus surplus
// are worth their target at price p0.
func targetRatio(p0, actual, surplus, k decimal.Decimal) (decimal.Decimal, error) {
	if !p0.IsPositive() {
		return decimal.Zero, invalidCurve("reference price %s", p0)
	}
	if !actual.IsPositive() {
		return decimal.Zero, invalidCurve("actual %s", actual)
	}
	if surplus.IsNegative() {
		return decimal.Zero, invalidCurve("surplus %s", surplus)
	}
	if k.LessThan(minKIn) {
		return decimal.Zero, invalidCurve("k %s", k)
	}

	perPrice, err := mathx.Div(surplus, p0)
	if err != nil {
		return decimal.Zero, err
	}
	perActual, err := mathx.Div(perPrice, actual)
	if err != nil {
		return decimal.Zero, err
	}
	fourK, err := mathx.Mul(k, decimal.NewFromInt(4))
	if err != nil {
		return decimal.Zero, err
	}
	term, err := mathx.Mul(fourK, perActual)
	if err != nil {
		return decimal.Zero, err
	}
	root, err := mathx.Sqrt(mathx.One.Add(term), mathx.Scale)
	if err != nil {
		return decimal.Zero, err
	}
	num := k.Mul(mathx.Two).Sub(mathx.One).Add(root)
	perK, err := mathx.Div(num, k)
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Div(perK, mathx.Two)
}
