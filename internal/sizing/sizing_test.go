package sizing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/bins"
	"liquidityAdapter/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func checkPlan(t *testing.T, in Input, plan Plan) {
	t.Helper()

	sumX, sumY := decimal.Zero, decimal.Zero
	for _, pos := range plan.Positions {
		if pos.AmountX.IsNegative() || pos.AmountY.IsNegative() {
			t.Fatalf("negative amount in bin %d: %+v", pos.Bin, pos)
		}
		if pos.Bin < in.Bins.Active && !pos.AmountX.IsZero() {
			t.Fatalf("bin %d below active holds x: %s", pos.Bin, pos.AmountX)
		}
		if pos.Bin > in.Bins.Active && !pos.AmountY.IsZero() {
			t.Fatalf("bin %d above active holds y: %s", pos.Bin, pos.AmountY)
		}
		sumX = sumX.Add(pos.AmountX)
		sumY = sumY.Add(pos.AmountY)
	}

	if !sumX.Equal(plan.DeployedX) || !sumY.Equal(plan.DeployedY) {
		t.Fatalf("deployed totals mismatch: %s/%s vs %s/%s", sumX, sumY, plan.DeployedX, plan.DeployedY)
	}
	if !plan.DeployedX.Add(plan.ChangeX).Equal(in.AmountX) {
		t.Fatalf("x not conserved: %s + %s != %s", plan.DeployedX, plan.ChangeX, in.AmountX)
	}
	if !plan.DeployedY.Add(plan.ChangeY).Equal(in.AmountY) {
		t.Fatalf("y not conserved: %s + %s != %s", plan.DeployedY, plan.ChangeY, in.AmountY)
	}
	if plan.ChangeX.IsNegative() || plan.ChangeY.IsNegative() {
		t.Fatalf("negative change: %s %s", plan.ChangeX, plan.ChangeY)
	}
	if len(plan.Positions) != 1+in.Bins.Len() {
		t.Fatalf("expected %d positions, got %d", 1+in.Bins.Len(), len(plan.Positions))
	}
}

func TestSizeSpreadBalanced(t *testing.T) {
	in := Input{
		AmountX: dec("100"),
		AmountY: dec("100"),
		ActiveX: dec("1"),
		ActiveY: dec("1"),
		Price:   dec("1"),
		Bins:    bins.Select(100, 10, 4),
	}
	plan, err := SizeSpread(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)

	active := plan.Positions[0]
	if active.Bin != 100 || !active.AmountX.Equal(dec("20")) || !active.AmountY.Equal(dec("20")) {
		t.Fatalf("active position mismatch: %+v", active)
	}
	for _, pos := range plan.Positions[1:] {
		if pos.Bin < 100 && !pos.AmountY.Equal(dec("40")) {
			t.Fatalf("lower bin %d y = %s", pos.Bin, pos.AmountY)
		}
		if pos.Bin > 100 && !pos.AmountX.Equal(dec("40")) {
			t.Fatalf("higher bin %d x = %s", pos.Bin, pos.AmountX)
		}
	}
	if !plan.ChangeX.IsZero() || !plan.ChangeY.IsZero() {
		t.Fatalf("expected no change, got %s %s", plan.ChangeX, plan.ChangeY)
	}
}

func TestSizeSpreadYBinds(t *testing.T) {
	in := Input{
		AmountX: dec("100"),
		AmountY: dec("50"),
		ActiveX: dec("1"),
		ActiveY: dec("1"),
		Price:   dec("1"),
		Bins:    bins.Select(100, 10, 4),
	}
	plan, err := SizeSpread(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)

	if !plan.DeployedX.Equal(dec("50")) || !plan.ChangeX.Equal(dec("50")) {
		t.Fatalf("x deployed %s change %s", plan.DeployedX, plan.ChangeX)
	}
	if !plan.DeployedY.Equal(dec("50")) || !plan.ChangeY.IsZero() {
		t.Fatalf("y deployed %s change %s", plan.DeployedY, plan.ChangeY)
	}
}

func TestSizeSpreadTiePrefersX(t *testing.T) {
	in := Input{
		AmountX: dec("50"),
		AmountY: dec("100"),
		ActiveX: dec("1"),
		ActiveY: dec("2"),
		Price:   dec("2"),
		Bins:    bins.Select(100, 10, 4),
	}
	plan, err := SizeSpread(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)

	active := plan.Positions[0]
	if !active.AmountX.Equal(dec("10")) || !active.AmountY.Equal(dec("20")) {
		t.Fatalf("active position mismatch: %+v", active)
	}
	if !plan.ChangeX.IsZero() || !plan.ChangeY.IsZero() {
		t.Fatalf("expected full deployment, change %s %s", plan.ChangeX, plan.ChangeY)
	}
}

func TestSizeSpreadConservation(t *testing.T) {
	amounts := []string{"0", "1", "3.333333333333333333", "1000", "123456.789"}
	actives := [][2]string{{"1", "1"}, {"0", "5"}, {"7", "0"}, {"0.3", "11.1"}}
	prices := []string{"0.07", "1", "3", "1999.5"}

	for _, ax := range amounts {
		for _, ay := range amounts {
			for _, act := range actives {
				for _, p := range prices {
					in := Input{
						AmountX: dec(ax),
						AmountY: dec(ay),
						ActiveX: dec(act[0]),
						ActiveY: dec(act[1]),
						Price:   dec(p),
						Bins:    bins.Select(27000, 100, 6),
					}
					plan, err := SizeSpread(in)
					if err != nil {
						t.Fatalf("size(%s,%s,%v,%s): %v", ax, ay, act, p, err)
					}
					checkPlan(t, in, plan)
				}
			}
		}
	}
}

func TestSizeSpreadEmptyActiveBin(t *testing.T) {
	in := Input{
		AmountX: dec("10"),
		AmountY: dec("10"),
		ActiveX: decimal.Zero,
		ActiveY: decimal.Zero,
		Price:   dec("1"),
		Bins:    bins.Select(100, 10, 4),
	}
	if _, err := SizeSpread(in); !errors.Is(err, model.ErrNoActiveAmounts) {
		t.Fatalf("expected ErrNoActiveAmounts, got %v", err)
	}
	if _, err := SizeRange(in); !errors.Is(err, model.ErrNoActiveAmounts) {
		t.Fatalf("expected ErrNoActiveAmounts from range sizer, got %v", err)
	}
}

func TestSizeSpreadAtMaxTickWithYOnlyActiveBin(t *testing.T) {
	in := Input{
		AmountX: dec("10"),
		AmountY: dec("10"),
		ActiveX: decimal.Zero,
		ActiveY: dec("5"),
		Price:   dec("1"),
		Bins:    bins.Select(bins.MaxTick, 100, 4),
	}
	if len(in.Bins.Higher) != 0 || len(in.Bins.Lower) != 4 {
		t.Fatalf("unexpected selection: %+v", in.Bins)
	}
	plan, err := SizeSpread(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)
	if !plan.ChangeX.Equal(dec("10")) || !plan.DeployedY.Equal(dec("10")) {
		t.Fatalf("expected all x as change and all y deployed, got change x %s deployed y %s", plan.ChangeX, plan.DeployedY)
	}
	if !plan.Positions[0].AmountY.Equal(dec("2")) {
		t.Fatalf("unexpected active bin amount %s", plan.Positions[0].AmountY)
	}
}

func TestSizeSpreadAtBinZeroWithXOnlyActiveBin(t *testing.T) {
	in := Input{
		AmountX: dec("10"),
		AmountY: dec("10"),
		ActiveX: dec("5"),
		ActiveY: decimal.Zero,
		Price:   dec("1"),
		Bins:    bins.Select(0, 100, 4),
	}
	if len(in.Bins.Lower) != 0 || len(in.Bins.Higher) != 4 {
		t.Fatalf("unexpected selection: %+v", in.Bins)
	}
	plan, err := SizeSpread(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)
	if !plan.ChangeY.Equal(dec("10")) || !plan.DeployedX.Equal(dec("10")) {
		t.Fatalf("expected all y as change and all x deployed, got change y %s deployed x %s", plan.ChangeY, plan.DeployedX)
	}
}

func TestSizeSingleBinOneSidedActiveBin(t *testing.T) {
	in := Input{
		AmountX: dec("10"),
		AmountY: dec("10"),
		ActiveX: decimal.Zero,
		ActiveY: dec("10"),
		Price:   dec("1"),
		Bins:    bins.SelectedBins{Active: 0, Lower: []uint32{}, Higher: []uint32{}},
	}
	plan, err := SizeSingleBin(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)
	if !plan.ChangeX.Equal(dec("10")) || !plan.ChangeY.IsZero() {
		t.Fatalf("unexpected change %s %s", plan.ChangeX, plan.ChangeY)
	}
}

func TestSizeSpreadRejectsNegative(t *testing.T) {
	in := Input{
		AmountX: dec("-1"),
		AmountY: dec("10"),
		ActiveX: dec("1"),
		ActiveY: dec("1"),
		Price:   dec("1"),
		Bins:    bins.Select(100, 10, 4),
	}
	if _, err := SizeSpread(in); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestSizeSingleBin(t *testing.T) {
	in := Input{
		AmountX: dec("10"),
		AmountY: dec("10"),
		ActiveX: dec("1"),
		ActiveY: dec("1"),
		Price:   dec("1"),
		Bins:    bins.Select(100, 10, 4),
	}
	plan, err := SizeSingleBin(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Positions) != 1 {
		t.Fatalf("expected only the active bin, got %+v", plan.Positions)
	}
	if !plan.DeployedX.Equal(dec("10")) || !plan.DeployedY.Equal(dec("10")) {
		t.Fatalf("deployed %s %s", plan.DeployedX, plan.DeployedY)
	}
}

func TestSizeRange(t *testing.T) {
	selected, err := bins.SelectRange(500, 100, 300, 700)
	if err != nil {
		t.Fatalf("select range: %v", err)
	}
	in := Input{
		AmountX: dec("300"),
		AmountY: dec("300"),
		ActiveX: dec("2"),
		ActiveY: dec("1"),
		Price:   dec("1"),
		Bins:    selected,
	}
	plan, err := SizeRange(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)

	active := plan.Positions[0]
	if !active.AmountX.Equal(dec("100")) || !active.AmountY.Equal(dec("50")) {
		t.Fatalf("active position mismatch: %+v", active)
	}
	for _, pos := range plan.Positions[1:] {
		if pos.Bin > 500 && !pos.AmountX.Equal(dec("100")) {
			t.Fatalf("higher bin %d x = %s", pos.Bin, pos.AmountX)
		}
		if pos.Bin < 500 && !pos.AmountY.Equal(dec("125")) {
			t.Fatalf("lower bin %d y = %s", pos.Bin, pos.AmountY)
		}
	}
}

func TestSizeRangeOneSidedActiveBin(t *testing.T) {
	selected, err := bins.SelectRange(500, 100, 300, 700)
	if err != nil {
		t.Fatalf("select range: %v", err)
	}
	in := Input{
		AmountX: dec("30"),
		AmountY: dec("30"),
		ActiveX: decimal.Zero,
		ActiveY: dec("4"),
		Price:   dec("1"),
		Bins:    selected,
	}
	plan, err := SizeRange(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkPlan(t, in, plan)
	if !plan.Positions[0].AmountX.IsZero() {
		t.Fatalf("active bin without x reserves received x: %+v", plan.Positions[0])
	}

	in.ActiveY = decimal.Zero
	if _, err := SizeRange(in); !errors.Is(err, model.ErrNoActiveAmounts) {
		t.Fatalf("expected no active amounts, got %v", err)
	}
}
