package adapter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"liquidityAdapter/internal/model"
)

// Family identifies a pool model served by one adapter implementation.
type Family string

const (
	FamilyBin             Family = "bin"
	FamilyTick            Family = "tick"
	FamilyShortage        Family = "shortage"
	FamilyConstantProduct Family = "constant_product"
)

// Families lists every supported pool family.
var Families = []Family{FamilyBin, FamilyTick, FamilyShortage, FamilyConstantProduct}

// ParseFamily validates a family name.
func ParseFamily(input string) (Family, error) {
	for _, f := range Families {
		if string(f) == input {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown pool family %q", input)
}

// Adapter is the uniform contract every pool family implements. Open always
// consumes both buckets: whatever is not deposited comes back as change.
type Adapter interface {
	Family() Family
	OpenLiquidityPosition(ctx context.Context, pool common.Address, a, b model.Bucket, opts ...OpenOption) (model.OpenLiquidityPositionOutput, error)
	CloseLiquidityPosition(ctx context.Context, pool common.Address, poolUnits []model.Bucket, adapterData []byte) (model.CloseLiquidityPositionOutput, error)
	Price(ctx context.Context, pool common.Address) (model.Price, error)
	ResourceAddresses(ctx context.Context, pool common.Address) (common.Address, common.Address, error)
}

// OpenOption customizes a single OpenLiquidityPosition call.
type OpenOption func(*openOptions)

type openOptions struct {
	lockup    model.LockupPeriod
	hasLockup bool
}

// WithLockupPeriod passes the position's lockup period to adapters that
// choose bins per lockup period.
func WithLockupPeriod(period model.LockupPeriod) OpenOption {
	return func(o *openOptions) {
		o.lockup = period
		o.hasLockup = true
	}
}

func applyOpenOptions(opts []OpenOption) openOptions {
	var o openOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Resolver returns the client for the pool at address.
type Resolver[P any] func(ctx context.Context, address common.Address) (P, error)

// StaticResolver resolves pools from a fixed map.
func StaticResolver[P any](pools map[common.Address]P) Resolver[P] {
	return func(_ context.Context, address common.Address) (P, error) {
		pool, ok := pools[address]
		if !ok {
			var zero P
			return zero, fmt.Errorf("unknown pool %s", address.Hex())
		}
		return pool, nil
	}
}

func encodeData(data model.AdapterData) ([]byte, error) {
	raw, err := model.EncodeAdapterData(data)
	if err != nil {
		return nil, fmt.Errorf("encode adapter data: %w", err)
	}
	return raw, nil
}
