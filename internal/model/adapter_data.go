package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// AdapterDataKind tags the payload carried in an encoded AdapterData blob.
type AdapterDataKind uint8

const (
	AdapterDataNone AdapterDataKind = iota
	AdapterDataOriginalTargets
	AdapterDataBinContributions
	AdapterDataPoolShare
)

func (k AdapterDataKind) String() string {
	switch k {
	case AdapterDataNone:
		return "none"
	case AdapterDataOriginalTargets:
		return "original_targets"
	case AdapterDataBinContributions:
		return "bin_contributions"
	case AdapterDataPoolShare:
		return "pool_share"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AdapterData is the state an adapter keeps between opening and closing a position.
type AdapterData interface {
	Kind() AdapterDataKind
}

// NoData is used by adapters that need nothing at close time.
type NoData struct{}

func (NoData) Kind() AdapterDataKind { return AdapterDataNone }

// AssetTarget is the target amount recorded for one asset when contributing.
type AssetTarget struct {
	Resource common.Address  `json:"resource"`
	Target   decimal.Decimal `json:"target"`
}

// OriginalTargets holds per-asset targets in contribution order.
type OriginalTargets struct {
	Targets []AssetTarget `json:"targets"`
}

func (OriginalTargets) Kind() AdapterDataKind { return AdapterDataOriginalTargets }

// Target returns the recorded target for resource.
func (o OriginalTargets) Target(resource common.Address) (decimal.Decimal, bool) {
	for _, t := range o.Targets {
		if t.Resource == resource {
			return t.Target, true
		}
	}
	return decimal.Zero, false
}

// BinContributions records what a bin position put into each bin.
type BinContributions struct {
	ReceiptResource common.Address  `json:"receipt_resource"`
	ReceiptID       string          `json:"receipt_id"`
	PriceAtOpen     decimal.Decimal `json:"price_at_open"`
	Bins            []BinAmount     `json:"bins"`
}

func (BinContributions) Kind() AdapterDataKind { return AdapterDataBinContributions }

// PoolShare records a constant-product position's share of the pool and the
// pool invariant right after contributing.
type PoolShare struct {
	UserShare decimal.Decimal `json:"user_share"`
	PoolK     decimal.Decimal `json:"pool_k"`
}

func (PoolShare) Kind() AdapterDataKind { return AdapterDataPoolShare }

// EncodeAdapterData writes the kind tag followed by the JSON payload.
func EncodeAdapterData(data AdapterData) ([]byte, error) {
	if data == nil {
		data = NoData{}
	}
	kind := data.Kind()
	if kind == AdapterDataNone {
		return []byte{byte(kind)}, nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s adapter data: %w", kind, err)
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(kind))
	return append(out, payload...), nil
}

// DecodeAdapterData dispatches on the kind tag. Only canonical encodings are
// accepted so that re-encoding a decoded value reproduces the input exactly.
func DecodeAdapterData(raw []byte) (AdapterData, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("decode adapter data: empty blob")
	}

	kind := AdapterDataKind(raw[0])
	payload := raw[1:]

	var data AdapterData
	switch kind {
	case AdapterDataNone:
		if len(payload) != 0 {
			return nil, fmt.Errorf("decode adapter data: unexpected payload for %s", kind)
		}
		return NoData{}, nil
	case AdapterDataOriginalTargets:
		var v OriginalTargets
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		data = v
	case AdapterDataBinContributions:
		var v BinContributions
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		data = v
	case AdapterDataPoolShare:
		var v PoolShare
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		data = v
	default:
		return nil, fmt.Errorf("decode adapter data: %w: %d", ErrUnknownAdapterData, raw[0])
	}

	canonical, err := EncodeAdapterData(data)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(canonical, raw) {
		return nil, fmt.Errorf("decode %s: non-canonical encoding", kind)
	}
	return data, nil
}

// DecodeAdapterDataAs decodes raw and asserts the payload type.
func DecodeAdapterDataAs[T AdapterData](raw []byte) (T, error) {
	var zero T
	data, err := DecodeAdapterData(raw)
	if err != nil {
		return zero, err
	}
	typed, ok := data.(T)
	if !ok {
		return zero, fmt.Errorf("%w: have %s, want %s", ErrUnknownAdapterData, data.Kind(), zero.Kind())
	}
	return typed, nil
}

// AdapterDataHex renders an encoded blob as 0x-prefixed hex for storage.
func AdapterDataHex(raw []byte) string {
	return hexutil.Encode(raw)
}

// ParseAdapterDataHex reverses AdapterDataHex.
func ParseAdapterDataHex(input string) ([]byte, error) {
	raw, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("parse adapter data hex: %w", err)
	}
	return raw, nil
}
