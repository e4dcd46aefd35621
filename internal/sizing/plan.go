package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/bins"
	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

// Input describes the assets to deploy and the pool's live active bin.
type Input struct {
	AmountX decimal.Decimal
	AmountY decimal.Decimal
	// ActiveX and ActiveY are the reserves currently held by the active bin.
	ActiveX decimal.Decimal
	ActiveY decimal.Decimal
	// Price is quote per base with asset X as the base.
	Price decimal.Decimal
	Bins  bins.SelectedBins
}

func (in Input) validate() error {
	for name, v := range map[string]decimal.Decimal{
		"amount x": in.AmountX,
		"amount y": in.AmountY,
		"active x": in.ActiveX,
		"active y": in.ActiveY,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative: %s", name, v)
		}
	}
	return nil
}

// Plan is the per-bin contribution derived from an Input. Deployed plus
// Change equals the supplied amount of each asset.
type Plan struct {
	Positions []model.ContributionPosition
	DeployedX decimal.Decimal
	DeployedY decimal.Decimal
	ChangeX   decimal.Decimal
	ChangeY   decimal.Decimal
}

func buildPlan(in Input, activeX, activeY, perBinX, perBinY decimal.Decimal) (Plan, error) {
	positions := make([]model.ContributionPosition, 0, 1+in.Bins.Len())
	positions = append(positions, model.ContributionPosition{
		Bin:     in.Bins.Active,
		AmountX: activeX,
		AmountY: activeY,
	})
	for _, bin := range in.Bins.Lower {
		positions = append(positions, model.ContributionPosition{Bin: bin, AmountX: decimal.Zero, AmountY: perBinY})
	}
	for _, bin := range in.Bins.Higher {
		positions = append(positions, model.ContributionPosition{Bin: bin, AmountX: perBinX, AmountY: decimal.Zero})
	}

	deployedX, err := mathx.Add(activeX, perBinX.Mul(decimal.NewFromInt(int64(len(in.Bins.Higher)))))
	if err != nil {
		return Plan{}, err
	}
	deployedY, err := mathx.Add(activeY, perBinY.Mul(decimal.NewFromInt(int64(len(in.Bins.Lower)))))
	if err != nil {
		return Plan{}, err
	}
	if deployedX.GreaterThan(in.AmountX) || deployedY.GreaterThan(in.AmountY) {
		return Plan{}, fmt.Errorf("plan deploys more than supplied (x %s > %s or y %s > %s): %w",
			deployedX, in.AmountX, deployedY, in.AmountY, model.ErrArithmeticOverflow)
	}

	return Plan{
		Positions: positions,
		DeployedX: deployedX,
		DeployedY: deployedY,
		ChangeX:   in.AmountX.Sub(deployedX),
		ChangeY:   in.AmountY.Sub(deployedY),
	}, nil
}

func count(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
