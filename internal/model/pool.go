package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolInformation is the immutable part of a bin-based pool, cached per pool.
type PoolInformation struct {
	BinSpan   uint32         `json:"bin_span"`
	ResourceX common.Address `json:"resource_x"`
	ResourceY common.Address `json:"resource_y"`
}

// Shortage reports which asset of a target-ratio pair is under-represented.
type Shortage uint8

const (
	Equilibrium Shortage = iota
	BaseShortage
	QuoteShortage
)

func (s Shortage) String() string {
	switch s {
	case Equilibrium:
		return "equilibrium"
	case BaseShortage:
		return "base_shortage"
	case QuoteShortage:
		return "quote_shortage"
	default:
		return fmt.Sprintf("shortage(%d)", uint8(s))
	}
}

// ParseShortage is the inverse of Shortage.String.
func ParseShortage(input string) (Shortage, error) {
	for _, s := range []Shortage{Equilibrium, BaseShortage, QuoteShortage} {
		if s.String() == input {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown shortage %q", input)
}

// PairState is the live state of a target-ratio pair.
type PairState struct {
	P0          decimal.Decimal `json:"p0" yaml:"p0"`
	Shortage    Shortage        `json:"shortage" yaml:"-"`
	TargetRatio decimal.Decimal `json:"target_ratio" yaml:"target_ratio"`
	// LastOutgoing is the unix time in seconds of the last outgoing trade.
	LastOutgoing int64           `json:"last_outgoing" yaml:"last_outgoing"`
	LastOutSpot  decimal.Decimal `json:"last_out_spot" yaml:"last_out_spot"`
}

// PairConfig holds the curve parameters of a target-ratio pair.
type PairConfig struct {
	KIn         decimal.Decimal `json:"k_in" yaml:"k_in"`
	KOut        decimal.Decimal `json:"k_out" yaml:"k_out"`
	Fee         decimal.Decimal `json:"fee" yaml:"fee"`
	DecayFactor decimal.Decimal `json:"decay_factor" yaml:"decay_factor"`
}

// Reserves are the two vault amounts of a single-sided sub-pool: the pool's
// own asset first, then the surplus of the other asset.
type Reserves struct {
	Actual  decimal.Decimal `json:"actual"`
	Surplus decimal.Decimal `json:"surplus"`
}
