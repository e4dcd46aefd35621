package model

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	btc = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	usd = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	eth = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReciprocal(t *testing.T) {
	p := Price{Base: btc, Quote: usd, Price: dec("4")}
	got, err := p.Reciprocal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Base != usd || got.Quote != btc || !got.Price.Equal(dec("0.25")) {
		t.Fatalf("reciprocal mismatch: %+v", got)
	}

	if _, err := (Price{Base: btc, Quote: usd}).Reciprocal(); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow for zero price, got %v", err)
	}
}

func TestRelativeDifferenceSamePrice(t *testing.T) {
	p := Price{Base: btc, Quote: usd, Price: dec("43000")}
	got, err := p.RelativeDifference(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero difference, got %s", got)
	}
}

func TestRelativeDifferenceSwappedPair(t *testing.T) {
	p1 := Price{Base: btc, Quote: usd, Price: dec("100")}
	p2 := Price{Base: usd, Quote: btc, Price: dec("0.01")}

	got, err := p1.RelativeDifference(p2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero difference, got %s", got)
	}
}

func TestRelativeDifferenceValue(t *testing.T) {
	p1 := Price{Base: btc, Quote: usd, Price: dec("100")}
	p2 := Price{Base: btc, Quote: usd, Price: dec("50")}

	got, err := p1.RelativeDifference(p2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("0.5")) {
		t.Fatalf("expected 0.5, got %s", got)
	}
}

func TestRelativeDifferenceReciprocalSymmetry(t *testing.T) {
	p1 := Price{Base: btc, Quote: usd, Price: dec("100")}
	p2 := Price{Base: btc, Quote: usd, Price: dec("80")}

	direct, err := p1.RelativeDifference(p2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r1, _ := p1.Reciprocal()
	r2, _ := p2.Reciprocal()
	inverted, err := r2.RelativeDifference(r1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !direct.Equal(inverted) {
		t.Fatalf("symmetry broken: %s != %s", direct, inverted)
	}

	// Mixing orientations on either side gives the same answer.
	mixed, err := p1.RelativeDifference(r2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mixed.Equal(direct) {
		t.Fatalf("orientation changed result: %s != %s", mixed, direct)
	}
}

func TestRelativeDifferenceNotComparable(t *testing.T) {
	p1 := Price{Base: btc, Quote: usd, Price: dec("100")}
	p2 := Price{Base: eth, Quote: usd, Price: dec("100")}
	if _, err := p1.RelativeDifference(p2); !errors.Is(err, ErrPriceNotComparable) {
		t.Fatalf("expected not comparable, got %v", err)
	}
}

func TestExchange(t *testing.T) {
	p := Price{Base: btc, Quote: usd, Price: dec("43000")}

	asset, amount, err := p.Exchange(btc, dec("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset != usd || !amount.Equal(dec("43000")) {
		t.Fatalf("base exchange mismatch: %s %s", asset.Hex(), amount)
	}

	asset, amount, err = p.Exchange(usd, dec("43000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset != btc || !amount.Equal(dec("1")) {
		t.Fatalf("quote exchange mismatch: %s %s", asset.Hex(), amount)
	}

	if _, _, err := p.Exchange(eth, dec("1")); !errors.Is(err, ErrPriceNotApplicable) {
		t.Fatalf("expected not applicable, got %v", err)
	}
}

func TestWithinTolerance(t *testing.T) {
	pool := Price{Base: btc, Quote: usd, Price: dec("100")}
	oracle := Price{Base: usd, Quote: btc, Price: dec("0.0099")}

	ok, err := pool.WithinTolerance(oracle, dec("0.05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected price within tolerance")
	}

	ok, err = pool.WithinTolerance(oracle, dec("0.001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected price outside tolerance")
	}
}
