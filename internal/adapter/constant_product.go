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

// ConstantProductPool is the surface of an x*y=k pool issuing fungible units.
type ConstantProductPool interface {
	Resources(ctx context.Context) (common.Address, common.Address, error)
	Reserves(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
	UnitSupply(ctx context.Context) (decimal.Decimal, error)
	AddLiquidity(ctx context.Context, x, y model.Bucket) (model.Bucket, *model.Bucket, error)
	RemoveLiquidity(ctx context.Context, units model.Bucket) (model.Bucket, model.Bucket, error)
}

// ConstantProductAdapter records the position's share of the pool and the
// pool invariant at open, and attributes growth of the invariant to fees.
type ConstantProductAdapter struct {
	pools  Resolver[ConstantProductPool]
	logger *zap.Logger
}

func NewConstantProductAdapter(pools Resolver[ConstantProductPool], logger *zap.Logger) *ConstantProductAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConstantProductAdapter{pools: pools, logger: logger}
}

func (a *ConstantProductAdapter) Family() Family { return FamilyConstantProduct }

func (a *ConstantProductAdapter) OpenLiquidityPosition(ctx context.Context, address common.Address, bucketA, bucketB model.Bucket, _ ...OpenOption) (model.OpenLiquidityPositionOutput, error) {
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

	units, change, err := pool.AddLiquidity(ctx, bucketX, bucketY)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("add liquidity: %w", err)
	}

	supply, err := pool.UnitSupply(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read unit supply: %w", err)
	}
	share, err := mathx.DivScale(units.Amount, supply, mathx.PreciseScale)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("pool share: %w", err)
	}
	reserveX, reserveY, err := pool.Reserves(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read reserves: %w", err)
	}
	poolK, err := mathx.Checked(reserveX.Mul(reserveY))
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("pool invariant: %w", err)
	}

	a.logger.Debug("constant product position opened",
		zap.String("pool", address.Hex()),
		zap.String("share", share.String()),
		zap.String("pool_k", poolK.String()),
	)

	data, err := encodeData(model.PoolShare{UserShare: share, PoolK: poolK})
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}
	changes := map[common.Address]model.Bucket{}
	if change != nil {
		changes = model.IndexBuckets(*change)
	}
	return model.OpenLiquidityPositionOutput{
		PoolUnits:   []model.Bucket{units},
		Change:      changes,
		Others:      []model.Bucket{},
		AdapterData: data,
	}, nil
}

func (a *ConstantProductAdapter) CloseLiquidityPosition(ctx context.Context, address common.Address, poolUnits []model.Bucket, adapterData []byte) (model.CloseLiquidityPositionOutput, error) {
	if len(poolUnits) != 1 {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("constant product pool expects 1 pool unit bucket, got %d: %w", len(poolUnits), model.ErrInvalidBucketCount)
	}
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	resourceX, resourceY, err := pool.Resources(ctx)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("read pool resources: %w", err)
	}
	data, err := model.DecodeAdapterDataAs[model.PoolShare](adapterData)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}

	bucketX, bucketY, err := pool.RemoveLiquidity(ctx, poolUnits[0])
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("remove liquidity: %w", err)
	}

	// Where the open-time invariant alone would have left the position at
	// the current price; anything received above that is fees.
	price, err := mathx.DivScale(bucketY.Amount, bucketX.Amount, mathx.PreciseScale)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("close price: %w", err)
	}
	ratio, err := mathx.DivScale(data.PoolK, price, mathx.PreciseScale)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	root, err := mathx.Sqrt(ratio, mathx.PreciseScale)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	predictedX, err := mathx.Mul(root, data.UserShare)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	predictedY, err := mathx.Mul(predictedX, price)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}

	return model.CloseLiquidityPositionOutput{
		Resources: model.IndexBuckets(bucketX, bucketY),
		Others:    []model.Bucket{},
		Fees: map[common.Address]decimal.Decimal{
			resourceX: mathx.NonNegative(bucketX.Amount.Sub(predictedX)),
			resourceY: mathx.NonNegative(bucketY.Amount.Sub(predictedY)),
		},
	}, nil
}

func (a *ConstantProductAdapter) Price(ctx context.Context, address common.Address) (model.Price, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.Price{}, err
	}
	resourceX, resourceY, err := pool.Resources(ctx)
	if err != nil {
		return model.Price{}, fmt.Errorf("read pool resources: %w", err)
	}
	reserveX, reserveY, err := pool.Reserves(ctx)
	if err != nil {
		return model.Price{}, fmt.Errorf("read reserves: %w", err)
	}
	if !reserveX.IsPositive() || !reserveY.IsPositive() {
		return model.Price{}, model.ErrNoPrice
	}
	price, err := mathx.Div(reserveY, reserveX)
	if err != nil {
		return model.Price{}, err
	}
	return model.Price{Base: resourceX, Quote: resourceY, Price: price}, nil
}

func (a *ConstantProductAdapter) ResourceAddresses(ctx context.Context, address common.Address) (common.Address, common.Address, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return pool.Resources(ctx)
}
