package adapter

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	xrd        = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	usd        = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	other      = common.HexToAddress("0x0000000000000000000000000000000000000a03")
	receiptRes = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	unitsRes   = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	quoteUnits = common.HexToAddress("0x0000000000000000000000000000000000000b03")
	poolAddr   = common.HexToAddress("0x0000000000000000000000000000000000000c01")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
