package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ContributionPosition is the amount of each asset placed into one bin.
type ContributionPosition struct {
	Bin     uint32          `json:"bin"`
	AmountX decimal.Decimal `json:"amount_x"`
	AmountY decimal.Decimal `json:"amount_y"`
}

// BinAmount is the amount of each asset held by one bin.
type BinAmount struct {
	Bin uint32          `json:"bin"`
	X   decimal.Decimal `json:"x"`
	Y   decimal.Decimal `json:"y"`
}

// OpenLiquidityPositionOutput is returned by an adapter after contributing to a pool.
type OpenLiquidityPositionOutput struct {
	PoolUnits   []Bucket                  `json:"pool_units"`
	Change      map[common.Address]Bucket `json:"change"`
	Others      []Bucket                  `json:"others"`
	AdapterData []byte                    `json:"adapter_data"`
}

// CloseLiquidityPositionOutput is returned by an adapter after redeeming pool units.
type CloseLiquidityPositionOutput struct {
	Resources map[common.Address]Bucket          `json:"resources"`
	Others    []Bucket                           `json:"others"`
	Fees      map[common.Address]decimal.Decimal `json:"fees"`
}
