package bins

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

const midTick = 27000

var tickBase = decimal.RequireFromString("1.0005")

// TickToSpot returns the lower price bound of tick: 1.0005^(2*(tick-27000)).
func TickToSpot(tick uint32) (decimal.Decimal, error) {
	if tick > MaxTick {
		return decimal.Zero, errActiveOutOfRange(tick, 0, MaxTick)
	}
	exp := 2 * (int64(tick) - midTick)
	spot, err := mathx.PowInt(tickBase, exp, mathx.PreciseScale)
	if err != nil {
		return decimal.Zero, err
	}
	return mathx.Trunc(spot), nil
}

// BinBounds returns the lower and upper price of the bin starting at tick.
// The upper bound of a bin at the top of the range lies past MaxTick.
func BinBounds(tick, span uint32) (decimal.Decimal, decimal.Decimal, error) {
	if tick > MaxTick {
		return decimal.Zero, decimal.Zero, errActiveOutOfRange(tick, 0, MaxTick)
	}
	lower, err := TickToSpot(tick)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	exp := 2 * (int64(tick) + int64(span) - midTick)
	upper, err := mathx.PowInt(tickBase, exp, mathx.PreciseScale)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return lower, mathx.Trunc(upper), nil
}

// SpotToTick returns the greatest tick whose lower bound does not exceed price.
func SpotToTick(price decimal.Decimal) (uint32, error) {
	if !price.IsPositive() {
		return 0, fmt.Errorf("spot to tick: %w", model.ErrNoPrice)
	}

	lowest, err := TickToSpot(0)
	if err != nil {
		return 0, err
	}
	if price.LessThan(lowest) {
		return 0, fmt.Errorf("price %s below tick 0: %w", price, model.ErrActiveTickOutOfRange)
	}

	estimate := math.Log(price.InexactFloat64())/(2*math.Log(tickBase.InexactFloat64())) + midTick
	tick := uint32(math.Max(0, math.Min(float64(MaxTick), math.Floor(estimate))))

	// The float estimate is at most a tick or two off; settle it exactly.
	for tick < MaxTick {
		next, err := TickToSpot(tick + 1)
		if err != nil {
			return 0, err
		}
		if next.GreaterThan(price) {
			break
		}
		tick++
	}
	for tick > 0 {
		spot, err := TickToSpot(tick)
		if err != nil {
			return 0, err
		}
		if spot.LessThanOrEqual(price) {
			break
		}
		tick--
	}
	return tick, nil
}

// ActiveTickForPrice snaps the tick of price down to the span grid.
func ActiveTickForPrice(price decimal.Decimal, span uint32) (uint32, error) {
	if span == 0 {
		return 0, fmt.Errorf("bin span must be positive")
	}
	tick, err := SpotToTick(price)
	if err != nil {
		return 0, err
	}
	return tick / span * span, nil
}

func errActiveOutOfRange(tick, start, end uint32) error {
	return fmt.Errorf("tick %d outside [%d, %d]: %w", tick, start, end, model.ErrActiveTickOutOfRange)
}
