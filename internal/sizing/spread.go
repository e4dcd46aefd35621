package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

// SizeSpread spreads each asset evenly over its side of the selected bins,
// giving the active bin a share weighted by its live composition. Whichever
// asset cannot match the other at the current price is left as change.
func SizeSpread(in Input) (Plan, error) {
	if err := in.validate(); err != nil {
		return Plan{}, err
	}

	if in.ActiveX.IsZero() && in.ActiveY.IsZero() {
		return Plan{}, model.ErrNoActiveAmounts
	}

	activeValueX, err := mathx.Mul(in.ActiveX, in.Price)
	if err != nil {
		return Plan{}, fmt.Errorf("active x value: %w", err)
	}
	activeValue, err := mathx.Add(activeValueX, in.ActiveY)
	if err != nil {
		return Plan{}, fmt.Errorf("active value: %w", err)
	}
	ratioX, err := mathx.Div(activeValueX, activeValue)
	if err != nil {
		return Plan{}, fmt.Errorf("active ratio: %w", err)
	}
	ratioY := mathx.One.Sub(ratioX)

	// A side with no slots (no bins and no active share) deploys nothing
	// and is not matched against the other side.
	slotsX := count(len(in.Bins.Higher)).Add(ratioX)
	slotsY := count(len(in.Bins.Lower)).Add(ratioY)
	perBinX, err := perBin(in.AmountX, slotsX)
	if err != nil {
		return Plan{}, fmt.Errorf("per bin x: %w", err)
	}
	perBinY, err := perBin(in.AmountY, slotsY)
	if err != nil {
		return Plan{}, fmt.Errorf("per bin y: %w", err)
	}

	if slotsX.IsPositive() && slotsY.IsPositive() {
		perBinXInY, err := mathx.Mul(perBinX, in.Price)
		if err != nil {
			return Plan{}, fmt.Errorf("per bin x in y: %w", err)
		}
		if perBinXInY.GreaterThan(perBinY) {
			// Y binds.
			perBinX, err = mathx.Div(perBinY, in.Price)
			if err != nil {
				return Plan{}, fmt.Errorf("per bin x from y: %w", err)
			}
		} else {
			// X binds, ties included.
			perBinY = perBinXInY
		}
	}

	activeX, err := mathx.Mul(perBinX, ratioX)
	if err != nil {
		return Plan{}, err
	}
	activeY, err := mathx.Mul(perBinY, ratioY)
	if err != nil {
		return Plan{}, err
	}

	return buildPlan(in, activeX, activeY, perBinX, perBinY)
}

// SizeSingleBin deploys into the active bin alone at its live ratio.
func SizeSingleBin(in Input) (Plan, error) {
	in.Bins.Lower = nil
	in.Bins.Higher = nil
	return SizeSpread(in)
}

func perBin(amount, slots decimal.Decimal) (decimal.Decimal, error) {
	if slots.IsZero() {
		return decimal.Zero, nil
	}
	return mathx.Div(amount, slots)
}
