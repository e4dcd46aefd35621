package postgres

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func TestAmountsRoundTrip(t *testing.T) {
	token := common.HexToAddress("0x0000000000000000000000000000000000000a01")
	in := map[common.Address]decimal.Decimal{token: decimal.RequireFromString("-0.25")}

	raw, err := marshalAmounts(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := unmarshalAmounts(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out[token].Equal(in[token]) {
		t.Fatalf("unexpected amounts: %+v", out)
	}

	if raw, _ := marshalAmounts(nil); raw != nil {
		t.Fatalf("expected nil for missing amounts, got %s", raw)
	}
	if out, _ := unmarshalAmounts(nil); out != nil {
		t.Fatalf("expected nil map, got %+v", out)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), "", 0, nil); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
