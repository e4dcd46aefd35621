package storage

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/model"
)

// PositionRecord is the journal entry of one liquidity position. Closing a
// position saves the record again with ClosedAt, Resources and Fees set.
type PositionRecord struct {
	ID          string                             `json:"id"`
	Pool        common.Address                     `json:"pool"`
	Family      string                             `json:"family"`
	PoolUnits   []model.Bucket                     `json:"pool_units"`
	Lockup      model.LockupPeriod                 `json:"lockup_seconds"`
	OpenedAt    time.Time                          `json:"opened_at"`
	MaturesAt   time.Time                          `json:"matures_at"`
	AdapterData string                             `json:"adapter_data"`
	ClosedAt    *time.Time                         `json:"closed_at,omitempty"`
	Resources   map[common.Address]decimal.Decimal `json:"resources,omitempty"`
	Fees        map[common.Address]decimal.Decimal `json:"fees,omitempty"`
}

// Closed reports whether the position has been closed.
func (r PositionRecord) Closed() bool {
	return r.ClosedAt != nil
}

// PositionStore persists position records keyed by ID.
type PositionStore interface {
	SavePosition(ctx context.Context, record PositionRecord) error
	// LoadPosition returns model.ErrPositionNotFound for unknown IDs.
	LoadPosition(ctx context.Context, id string) (PositionRecord, error)
}
