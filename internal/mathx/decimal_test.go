package mathx

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDivTruncates(t *testing.T) {
	got, err := Div(dec("1"), dec("3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec("0.333333333333333333"); !got.Equal(want) {
		t.Fatalf("quotient mismatch: %s != %s", got, want)
	}

	got, err = Div(dec("-2"), dec("3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec("-0.666666666666666666"); !got.Equal(want) {
		t.Fatalf("negative quotient mismatch: %s != %s", got, want)
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(dec("1"), decimal.Zero); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestMulRounding(t *testing.T) {
	a := dec("0.000000000000000001")
	b := dec("0.5")

	down, err := Mul(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !down.IsZero() {
		t.Fatalf("expected truncation to zero, got %s", down)
	}
}

func TestCheckedRange(t *testing.T) {
	if _, err := Mul(dec("1e30"), dec("1e30")); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := Add(maxDecimal, dec("0.000000000000000001")); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow past max, got %v", err)
	}
}

func TestSqrt(t *testing.T) {
	got, err := Sqrt(dec("4"), Scale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("2")) {
		t.Fatalf("sqrt(4) = %s", got)
	}

	got, err = Sqrt(dec("2"), Scale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := dec("1.414213562373095048"); !got.Equal(want) {
		t.Fatalf("sqrt(2) = %s, want %s", got, want)
	}

	if _, err := Sqrt(dec("-1"), Scale); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow for negative input, got %v", err)
	}
}

func TestPowInt(t *testing.T) {
	got, err := PowInt(dec("1.5"), 3, Scale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("3.375")) {
		t.Fatalf("1.5^3 = %s", got)
	}

	got, err = PowInt(dec("2"), -2, Scale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("0.25")) {
		t.Fatalf("2^-2 = %s", got)
	}

	got, err = PowInt(dec("7"), 0, Scale)
	if err != nil || !got.Equal(One) {
		t.Fatalf("7^0 = %s, %v", got, err)
	}
}

func TestClamp(t *testing.T) {
	if !NonNegative(dec("-1")).IsZero() || !NonNegative(dec("2")).Equal(dec("2")) {
		t.Fatalf("NonNegative clamp failed")
	}
	if !NonPositive(dec("1")).IsZero() || !NonPositive(dec("-2")).Equal(dec("-2")) {
		t.Fatalf("NonPositive clamp failed")
	}
}
