package bins

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTickToSpotMidpoint(t *testing.T) {
	got, err := TickToSpot(27000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("tick 27000 spot = %s", got)
	}

	got, err = TickToSpot(27001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := decimal.RequireFromString("1.00100025"); !got.Equal(want) {
		t.Fatalf("tick 27001 spot = %s, want %s", got, want)
	}

	if _, err := TickToSpot(MaxTick + 1); err == nil {
		t.Fatalf("expected error past max tick")
	}
}

func TestSpotToTickInvertsTickToSpot(t *testing.T) {
	for _, tick := range []uint32{0, 1, 100, 26999, 27000, 27001, 40000, 53999, 54000} {
		spot, err := TickToSpot(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		got, err := SpotToTick(spot)
		if err != nil {
			t.Fatalf("spot %s: %v", spot, err)
		}
		if got != tick {
			t.Fatalf("spot_to_tick(tick_to_spot(%d)) = %d", tick, got)
		}
	}
}

func TestActiveTickForPrice(t *testing.T) {
	price := decimal.RequireFromString("1.0015")
	got, err := ActiveTickForPrice(price, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 27000 {
		t.Fatalf("active tick = %d", got)
	}

	if _, err := ActiveTickForPrice(decimal.Zero, 100); err == nil {
		t.Fatalf("expected error for zero price")
	}
}

func TestBinBounds(t *testing.T) {
	lower, upper, err := BinBounds(27000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lower.Equal(decimal.NewFromInt(1)) || !upper.Equal(decimal.RequireFromString("1.00100025")) {
		t.Fatalf("bounds mismatch: %s %s", lower, upper)
	}

	_, upper, err = BinBounds(MaxTick, 100)
	if err != nil {
		t.Fatalf("top bin bounds: %v", err)
	}
	top, _ := TickToSpot(MaxTick)
	if !upper.GreaterThan(top) {
		t.Fatalf("upper bound %s not above %s", upper, top)
	}
}
