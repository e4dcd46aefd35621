package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityAdapter/internal/bins"
	"liquidityAdapter/internal/metrics"
	"liquidityAdapter/internal/model"
	"liquidityAdapter/internal/sizing"
)

// BinPool is the surface of a bin-based concentrated liquidity pool. Price,
// ActiveTick and ActiveAmounts return model.ErrNoPrice, model.ErrNoActiveBin
// and model.ErrNoActiveAmounts when the pool cannot report them.
type BinPool interface {
	Resources(ctx context.Context) (common.Address, common.Address, error)
	BinSpan(ctx context.Context) (uint32, error)
	Price(ctx context.Context) (decimal.Decimal, error)
	ActiveTick(ctx context.Context) (uint32, error)
	ActiveAmounts(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
	AddLiquidity(ctx context.Context, x, y model.Bucket, positions []model.ContributionPosition) (receipt, changeX, changeY model.Bucket, err error)
	RedemptionBinValues(ctx context.Context, receipt model.Bucket) ([]model.BinAmount, error)
	RemoveLiquidity(ctx context.Context, receipt model.Bucket) (model.Bucket, model.Bucket, error)
}

// BinStrategy selects how bins around the active bin are chosen.
type BinStrategy string

const (
	// BinStrategySpread selects a fixed number of bins around the active bin.
	BinStrategySpread BinStrategy = "spread"
	// BinStrategyRange uses a configured range per pool and lockup period.
	BinStrategyRange BinStrategy = "range"
)

// DefaultPreferredBins is the combined count of lower and higher bins.
const DefaultPreferredBins uint32 = 60

// BinRange bounds the bins a position may use, inclusive.
type BinRange struct {
	Start uint32 `json:"start" yaml:"start"`
	End   uint32 `json:"end" yaml:"end"`
}

// BinConfig configures a BinAdapter.
type BinConfig struct {
	Strategy      BinStrategy
	PreferredBins uint32
	// RejectExhausted fails opens whose selection has no bins beside the
	// active bin instead of contributing to the active bin alone.
	RejectExhausted bool
}

// BinAdapter contributes to bin-based pools.
type BinAdapter struct {
	pools  Resolver[BinPool]
	cache  PoolInfoCache
	cfg    BinConfig
	logger *zap.Logger

	mu     sync.RWMutex
	ranges map[common.Address]map[model.LockupPeriod]BinRange
}

func NewBinAdapter(pools Resolver[BinPool], cache PoolInfoCache, cfg BinConfig, logger *zap.Logger) *BinAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryPoolInfoCache()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = BinStrategySpread
	}
	if cfg.PreferredBins == 0 {
		cfg.PreferredBins = DefaultPreferredBins
	}
	return &BinAdapter{
		pools:  pools,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		ranges: make(map[common.Address]map[model.LockupPeriod]BinRange),
	}
}

func (a *BinAdapter) Family() Family { return FamilyBin }

// UpsertBinRange sets the bin range used for pool positions with lockup.
func (a *BinAdapter) UpsertBinRange(pool common.Address, lockup model.LockupPeriod, rng BinRange) error {
	if rng.Start > rng.End || rng.End > bins.MaxTick {
		return fmt.Errorf("invalid bin range [%d, %d]", rng.Start, rng.End)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	byLockup, ok := a.ranges[pool]
	if !ok {
		byLockup = make(map[model.LockupPeriod]BinRange)
		a.ranges[pool] = byLockup
	}
	byLockup[lockup] = rng
	return nil
}

func (a *BinAdapter) binRange(pool common.Address, lockup model.LockupPeriod) (BinRange, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	rng, ok := a.ranges[pool][lockup]
	return rng, ok
}

// PoolInformation returns the cached bin span and resources of pool,
// reading and caching them on a miss.
func (a *BinAdapter) PoolInformation(ctx context.Context, address common.Address) (model.PoolInformation, error) {
	info, ok, err := a.cache.Get(ctx, address)
	if err != nil {
		a.logger.Warn("pool info cache read failed", zap.String("pool", address.Hex()), zap.Error(err))
	} else if ok {
		metrics.PoolInfoCacheLookups.WithLabelValues("hit").Inc()
		return info, nil
	}
	metrics.PoolInfoCacheLookups.WithLabelValues("miss").Inc()

	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.PoolInformation{}, err
	}
	x, y, err := pool.Resources(ctx)
	if err != nil {
		return model.PoolInformation{}, fmt.Errorf("read pool resources: %w", err)
	}
	span, err := pool.BinSpan(ctx)
	if err != nil {
		return model.PoolInformation{}, fmt.Errorf("read bin span: %w", err)
	}
	if span == 0 {
		return model.PoolInformation{}, fmt.Errorf("pool %s reports zero bin span", address.Hex())
	}

	info = model.PoolInformation{BinSpan: span, ResourceX: x, ResourceY: y}
	if err := a.cache.Set(ctx, address, info); err != nil {
		a.logger.Warn("pool info cache write failed", zap.String("pool", address.Hex()), zap.Error(err))
	}
	return info, nil
}

func (a *BinAdapter) OpenLiquidityPosition(ctx context.Context, address common.Address, bucketA, bucketB model.Bucket, opts ...OpenOption) (model.OpenLiquidityPositionOutput, error) {
	o := applyOpenOptions(opts)

	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}
	info, err := a.PoolInformation(ctx, address)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}
	bucketX, bucketY, err := model.OrderPair(bucketA, bucketB, info.ResourceX, info.ResourceY)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}

	price, err := readPrice(ctx, pool)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}
	active, err := pool.ActiveTick(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read active bin: %w", err)
	}
	activeX, activeY, err := pool.ActiveAmounts(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read active amounts: %w", err)
	}

	in := sizing.Input{
		AmountX: bucketX.Amount,
		AmountY: bucketY.Amount,
		ActiveX: activeX,
		ActiveY: activeY,
		Price:   price,
	}

	var plan sizing.Plan
	switch a.cfg.Strategy {
	case BinStrategyRange:
		if !o.hasLockup {
			return model.OpenLiquidityPositionOutput{}, fmt.Errorf("range strategy needs a lockup period: %w", model.ErrPoolHasNoBinConfig)
		}
		rng, ok := a.binRange(address, o.lockup)
		if !ok {
			return model.OpenLiquidityPositionOutput{}, fmt.Errorf("pool %s lockup %s: %w", address.Hex(), o.lockup, model.ErrPoolHasNoBinConfig)
		}
		in.Bins, err = bins.SelectRange(active, info.BinSpan, rng.Start, rng.End)
		if err != nil {
			return model.OpenLiquidityPositionOutput{}, err
		}
		plan, err = sizing.SizeRange(in)
	default:
		in.Bins = bins.Select(active, info.BinSpan, a.cfg.PreferredBins)
		if !in.Bins.Exhausted() {
			plan, err = sizing.SizeSpread(in)
			break
		}
		if a.cfg.RejectExhausted {
			return model.OpenLiquidityPositionOutput{}, fmt.Errorf("active bin %d span %d: %w", active, info.BinSpan, model.ErrBinRangeExhausted)
		}
		a.logger.Info("bin range exhausted, using active bin only",
			zap.String("pool", address.Hex()),
			zap.Uint32("active_bin", active),
			zap.Uint32("bin_span", info.BinSpan),
		)
		plan, err = sizing.SizeSingleBin(in)
	}
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("size position: %w", err)
	}

	a.logger.Debug("bin position sized",
		zap.String("pool", address.Hex()),
		zap.Uint32("active_bin", active),
		zap.Int("lower_bins", len(in.Bins.Lower)),
		zap.Int("higher_bins", len(in.Bins.Higher)),
		zap.String("deployed_x", plan.DeployedX.String()),
		zap.String("deployed_y", plan.DeployedY.String()),
	)

	receipt, changeX, changeY, err := pool.AddLiquidity(ctx, bucketX, bucketY, plan.Positions)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("add liquidity: %w", err)
	}
	contributions, err := pool.RedemptionBinValues(ctx, receipt)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read redemption values: %w", err)
	}

	data, err := encodeData(model.BinContributions{
		ReceiptResource: receipt.Resource,
		ReceiptID:       receipt.LocalID,
		PriceAtOpen:     price,
		Bins:            contributions,
	})
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

func (a *BinAdapter) CloseLiquidityPosition(ctx context.Context, address common.Address, poolUnits []model.Bucket, adapterData []byte) (model.CloseLiquidityPositionOutput, error) {
	if len(poolUnits) != 1 {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("bin pool expects 1 receipt, got %d: %w", len(poolUnits), model.ErrInvalidBucketCount)
	}

	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	info, err := a.PoolInformation(ctx, address)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	data, err := model.DecodeAdapterDataAs[model.BinContributions](adapterData)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}

	price, err := readPrice(ctx, pool)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	active, err := pool.ActiveTick(ctx)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("read active bin: %w", err)
	}

	bucketX, bucketY, err := pool.RemoveLiquidity(ctx, poolUnits[0])
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("remove liquidity: %w", err)
	}

	expected, err := expectedBinAmounts(data.Bins, price, data.PriceAtOpen, active, info.BinSpan)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("expected bin amounts: %w", err)
	}
	expectedX, expectedY := decimal.Zero, decimal.Zero
	for _, bin := range expected {
		expectedX = expectedX.Add(bin.X)
		expectedY = expectedY.Add(bin.Y)
	}

	a.logger.Debug("bin position closed",
		zap.String("pool", address.Hex()),
		zap.Uint32("active_bin", active),
		zap.String("received_x", bucketX.Amount.String()),
		zap.String("expected_x", expectedX.String()),
		zap.String("received_y", bucketY.Amount.String()),
		zap.String("expected_y", expectedY.String()),
	)

	return model.CloseLiquidityPositionOutput{
		Resources: model.IndexBuckets(bucketX, bucketY),
		Others:    []model.Bucket{},
		Fees: map[common.Address]decimal.Decimal{
			info.ResourceX: positiveDifference(bucketX.Amount, expectedX),
			info.ResourceY: positiveDifference(bucketY.Amount, expectedY),
		},
	}, nil
}

func (a *BinAdapter) Price(ctx context.Context, address common.Address) (model.Price, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.Price{}, err
	}
	info, err := a.PoolInformation(ctx, address)
	if err != nil {
		return model.Price{}, err
	}
	price, err := readPrice(ctx, pool)
	if err != nil {
		return model.Price{}, err
	}
	return model.Price{Base: info.ResourceX, Quote: info.ResourceY, Price: price}, nil
}

func (a *BinAdapter) ResourceAddresses(ctx context.Context, address common.Address) (common.Address, common.Address, error) {
	info, err := a.PoolInformation(ctx, address)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return info.ResourceX, info.ResourceY, nil
}

func readPrice(ctx context.Context, pool interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}) (decimal.Decimal, error) {
	price, err := pool.Price(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read price: %w", err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("price %s: %w", price, model.ErrNoPrice)
	}
	return price, nil
}

func positiveDifference(received, expected decimal.Decimal) decimal.Decimal {
	diff := received.Sub(expected)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}
