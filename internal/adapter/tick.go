package adapter

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

// TickPool is the surface of a logarithmic tick concentrated liquidity pool.
type TickPool interface {
	Resources(ctx context.Context) (common.Address, common.Address, error)
	ActiveTick(ctx context.Context) (int32, error)
	PriceSqrt(ctx context.Context) (decimal.Decimal, error)
	AddLiquidity(ctx context.Context, lowerTick, upperTick int32, x, y model.Bucket) (receipt, changeX, changeY model.Bucket, err error)
	TotalFees(ctx context.Context, receipt model.Bucket) (decimal.Decimal, decimal.Decimal, error)
	RemoveLiquidity(ctx context.Context, receipt model.Bucket) (model.Bucket, model.Bucket, error)
}

const (
	MinLogTick int32 = -887272
	MaxLogTick int32 = 887272
	// DefaultTickOffset is the distance of each range bound from the active tick.
	DefaultTickOffset int32 = 29959
)

// TickAdapter contributes a symmetric range around the active tick.
type TickAdapter struct {
	pools  Resolver[TickPool]
	offset int32
	logger *zap.Logger
}

func NewTickAdapter(pools Resolver[TickPool], offset int32, logger *zap.Logger) *TickAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if offset <= 0 {
		offset = DefaultTickOffset
	}
	return &TickAdapter{pools: pools, offset: offset, logger: logger}
}

func (a *TickAdapter) Family() Family { return FamilyTick }

// TickRange returns [active-offset, active+offset], failing when either bound
// leaves the pool's tick range.
func TickRange(active, offset int32) (int32, int32, error) {
	lower := int64(active) - int64(offset)
	upper := int64(active) + int64(offset)
	if lower < int64(MinLogTick) || upper > int64(MaxLogTick) {
		return 0, 0, fmt.Errorf("tick range [%d, %d]: %w", lower, upper, model.ErrArithmeticOverflow)
	}
	return int32(lower), int32(upper), nil
}

func (a *TickAdapter) OpenLiquidityPosition(ctx context.Context, address common.Address, bucketA, bucketB model.Bucket, _ ...OpenOption) (model.OpenLiquidityPositionOutput, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}
	resourceX, resourceY, err := pool.Resources(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read pool resources: %w", err)
	}
	bucketX, bucketY, err := model.OrderPair(bucketA, bucketB, resourceX, resourceY)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}

	active, err := pool.ActiveTick(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read active tick: %w", err)
	}
	lower, upper, err := TickRange(active, a.offset)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}

	a.logger.Debug("tick position range",
		zap.String("pool", address.Hex()),
		zap.Int32("active_tick", active),
		zap.Int32("lower_tick", lower),
		zap.Int32("upper_tick", upper),
	)

	receipt, changeX, changeY, err := pool.AddLiquidity(ctx, lower, upper, bucketX, bucketY)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("add liquidity: %w", err)
	}
	data, err := encodeData(model.NoData{})
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}

	return model.OpenLiquidityPositionOutput{
		PoolUnits:   []model.Bucket{receipt},
		Change:      model.IndexBuckets(changeX, changeY),
		Others:      []model.Bucket{},
		AdapterData: data,
	}, nil
}

func (a *TickAdapter) CloseLiquidityPosition(ctx context.Context, address common.Address, poolUnits []model.Bucket, _ []byte) (model.CloseLiquidityPositionOutput, error) {
	if len(poolUnits) != 1 {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("tick pool expects 1 receipt, got %d: %w", len(poolUnits), model.ErrInvalidBucketCount)
	}
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	resourceX, resourceY, err := pool.Resources(ctx)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("read pool resources: %w", err)
	}

	feesX, feesY, err := pool.TotalFees(ctx, poolUnits[0])
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("read fees: %w", err)
	}
	bucketX, bucketY, err := pool.RemoveLiquidity(ctx, poolUnits[0])
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("remove liquidity: %w", err)
	}

	return model.CloseLiquidityPositionOutput{
		Resources: model.IndexBuckets(bucketX, bucketY),
		Others:    []model.Bucket{},
		Fees: map[common.Address]decimal.Decimal{
			resourceX: feesX,
			resourceY: feesY,
		},
	}, nil
}

func (a *TickAdapter) Price(ctx context.Context, address common.Address) (model.Price, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.Price{}, err
	}
	resourceX, resourceY, err := pool.Resources(ctx)
	if err != nil {
		return model.Price{}, fmt.Errorf("read pool resources: %w", err)
	}
	sqrtPrice, err := pool.PriceSqrt(ctx)
	if err != nil {
		return model.Price{}, fmt.Errorf("read price: %w", err)
	}
	price, err := mathx.Mul(sqrtPrice, sqrtPrice)
	if err != nil {
		return model.Price{}, err
	}
	if !price.IsPositive() {
		return model.Price{}, model.ErrNoPrice
	}
	return model.Price{Base: resourceX, Quote: resourceY, Price: price}, nil
}

func (a *TickAdapter) ResourceAddresses(ctx context.Context, address common.Address) (common.Address, common.Address, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return pool.Resources(ctx)
}
