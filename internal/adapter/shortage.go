package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

// ShortagePool is the surface of a target-ratio pair made of two single-sided
// sub-pools, each issuing its own pool units.
type ShortagePool interface {
	Tokens(ctx context.Context) (common.Address, common.Address, error)
	State(ctx context.Context) (model.PairState, error)
	// Pools returns the reserves of the base and quote sub-pools.
	Pools(ctx context.Context) (model.Reserves, model.Reserves, error)
	// AddLiquidity deposits input into the sub-pool of its resource, taking
	// what it needs of coLiquidity and returning the rest as change.
	AddLiquidity(ctx context.Context, input model.Bucket, coLiquidity *model.Bucket) (model.Bucket, *model.Bucket, error)
	// Redeem burns pool units of either sub-pool for its two assets.
	Redeem(ctx context.Context, units model.Bucket) (model.Bucket, model.Bucket, error)
}

// ShortageAdapter contributes to target-ratio pairs in two legs and derives
// fees from how each leg's target moved.
type ShortageAdapter struct {
	pools  Resolver[ShortagePool]
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	configs map[common.Address]model.PairConfig
}

func NewShortageAdapter(pools Resolver[ShortagePool], logger *zap.Logger) *ShortageAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShortageAdapter{
		pools:   pools,
		logger:  logger,
		now:     time.Now,
		configs: make(map[common.Address]model.PairConfig),
	}
}

func (a *ShortageAdapter) Family() Family { return FamilyShortage }

// SetPairConfig stores the curve parameters used to price pool.
func (a *ShortageAdapter) SetPairConfig(pool common.Address, cfg model.PairConfig) error {
	if cfg.KIn.LessThan(minKIn) {
		return fmt.Errorf("k_in %s below minimum %s", cfg.KIn, minKIn)
	}
	if cfg.DecayFactor.IsNegative() || cfg.DecayFactor.GreaterThan(mathx.One) {
		return fmt.Errorf("decay factor %s outside [0, 1]", cfg.DecayFactor)
	}
	a.mu.Lock()
	a.configs[pool] = cfg
	a.mu.Unlock()
	return nil
}

func (a *ShortageAdapter) pairConfig(pool common.Address) (model.PairConfig, error) {
	a.mu.RLock()
	cfg, ok := a.configs[pool]
	a.mu.RUnlock()
	if !ok {
		return model.PairConfig{}, fmt.Errorf("pool %s: %w", pool.Hex(), model.ErrNoPairConfig)
	}
	return cfg, nil
}

func (a *ShortageAdapter) OpenLiquidityPosition(ctx context.Context, address common.Address, bucketA, bucketB model.Bucket, _ ...OpenOption) (model.OpenLiquidityPositionOutput, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}
	base, quote, err := pool.Tokens(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read pool tokens: %w", err)
	}
	baseBucket, quoteBucket, err := model.OrderPair(bucketA, bucketB, base, quote)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}

	state, err := pool.State(ctx)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("read pair state: %w", err)
	}

	// The asset in shortage goes first; at equilibrium either order works.
	first, second := baseBucket, quoteBucket
	if state.Shortage == model.QuoteShortage {
		first, second = quoteBucket, baseBucket
	}

	// Rounded down like the close-time target so an untouched position
	// closes without fees.
	firstTarget, err := mathx.Mul(first.Amount, state.TargetRatio)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("first target: %w", err)
	}

	var firstUnits model.Bucket
	var remainder *model.Bucket
	if state.Shortage == model.Equilibrium {
		firstUnits, remainder, err = pool.AddLiquidity(ctx, first, nil)
		if err != nil {
			return model.OpenLiquidityPositionOutput{}, fmt.Errorf("add first leg: %w", err)
		}
		if remainder != nil && !remainder.Amount.IsZero() {
			return model.OpenLiquidityPositionOutput{}, fmt.Errorf("single-sided first leg returned change %s", remainder.Amount)
		}
		remainder = &second
	} else {
		firstUnits, remainder, err = pool.AddLiquidity(ctx, first, &second)
		if err != nil {
			return model.OpenLiquidityPositionOutput{}, fmt.Errorf("add first leg: %w", err)
		}
		if remainder == nil {
			empty := model.EmptyBucket(second.Resource)
			remainder = &empty
		}
	}
	if remainder.Resource != second.Resource {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("first leg returned %s, want %s", remainder.Resource.Hex(), second.Resource.Hex())
	}
	secondTarget := remainder.Amount

	secondUnits, change, err := pool.AddLiquidity(ctx, *remainder, nil)
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("add second leg: %w", err)
	}
	if change != nil && !change.Amount.IsZero() {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("single-sided second leg returned change %s", change.Amount)
	}
	if firstUnits.Resource == secondUnits.Resource {
		return model.OpenLiquidityPositionOutput{}, fmt.Errorf("both legs issued pool units %s", firstUnits.Resource.Hex())
	}

	a.logger.Debug("shortage position opened",
		zap.String("pool", address.Hex()),
		zap.Stringer("shortage", state.Shortage),
		zap.String("first_target", firstTarget.String()),
		zap.String("second_target", secondTarget.String()),
	)

	data, err := encodeData(model.OriginalTargets{Targets: []model.AssetTarget{
		{Resource: first.Resource, Target: firstTarget},
		{Resource: second.Resource, Target: secondTarget},
	}})
	if err != nil {
		return model.OpenLiquidityPositionOutput{}, err
	}

	changes := map[common.Address]model.Bucket{}
	if change != nil {
		changes = model.IndexBuckets(*change)
	}
	return model.OpenLiquidityPositionOutput{
		PoolUnits:   []model.Bucket{firstUnits, secondUnits},
		Change:      changes,
		Others:      []model.Bucket{},
		AdapterData: data,
	}, nil
}

func (a *ShortageAdapter) CloseLiquidityPosition(ctx context.Context, address common.Address, poolUnits []model.Bucket, adapterData []byte) (model.CloseLiquidityPositionOutput, error) {
	if len(poolUnits) != 2 {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("shortage pool expects 2 pool unit buckets, got %d: %w", len(poolUnits), model.ErrInvalidBucketCount)
	}
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	base, quote, err := pool.Tokens(ctx)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("read pool tokens: %w", err)
	}

	data, err := model.DecodeAdapterDataAs[model.OriginalTargets](adapterData)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}
	oldBase, ok := data.Target(base)
	if !ok {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("no original target for %s", base.Hex())
	}
	oldQuote, ok := data.Target(quote)
	if !ok {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("no original target for %s", quote.Hex())
	}

	state, err := pool.State(ctx)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, fmt.Errorf("read pair state: %w", err)
	}

	claimed := make([]model.Bucket, 0, 4)
	for _, units := range poolUnits {
		b1, b2, err := pool.Redeem(ctx, units)
		if err != nil {
			return model.CloseLiquidityPositionOutput{}, fmt.Errorf("redeem %s: %w", units.Resource.Hex(), err)
		}
		claimed = append(claimed, b1, b2)
	}
	resources := model.IndexBuckets(claimed...)
	baseAmount := resources[base].Amount
	quoteAmount := resources[quote].Amount

	newBase, newQuote, err := shortageTargets(state, baseAmount, quoteAmount)
	if err != nil {
		return model.CloseLiquidityPositionOutput{}, err
	}

	baseFee := mathx.NonPositive(newBase.Sub(oldBase))
	quoteFee := mathx.NonPositive(newQuote.Sub(oldQuote))

	a.logger.Debug("shortage position closed",
		zap.String("pool", address.Hex()),
		zap.Stringer("shortage", state.Shortage),
		zap.String("base_fee", baseFee.String()),
		zap.String("quote_fee", quoteFee.String()),
	)

	return model.CloseLiquidityPositionOutput{
		Resources: resources,
		Others:    []model.Bucket{},
		Fees: map[common.Address]decimal.Decimal{
			base:  baseFee,
			quote: quoteFee,
		},
	}, nil
}

// shortageTargets scales the redeemed amount of the asset in shortage by the
// target ratio, rounding down.
func shortageTargets(state model.PairState, baseAmount, quoteAmount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	switch state.Shortage {
	case model.BaseShortage:
		scaled, err := mathx.Mul(baseAmount, state.TargetRatio)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		return scaled, quoteAmount, nil
	case model.QuoteShortage:
		scaled, err := mathx.Mul(quoteAmount, state.TargetRatio)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		return baseAmount, scaled, nil
	default:
		return baseAmount, quoteAmount, nil
	}
}

// Price is the mean of the pair's bid and ask.
func (a *ShortageAdapter) Price(ctx context.Context, address common.Address) (model.Price, error) {
	cfg, err := a.pairConfig(address)
	if err != nil {
		return model.Price{}, err
	}
	pool, err := a.pools(ctx, address)
	if err != nil {
		return model.Price{}, err
	}
	base, quote, err := pool.Tokens(ctx)
	if err != nil {
		return model.Price{}, fmt.Errorf("read pool tokens: %w", err)
	}
	state, err := pool.State(ctx)
	if err != nil {
		return model.Price{}, fmt.Errorf("read pair state: %w", err)
	}
	basePool, quotePool, err := pool.Pools(ctx)
	if err != nil {
		return model.Price{}, fmt.Errorf("read sub-pools: %w", err)
	}

	prices, err := pairPrices(state, cfg, basePool, quotePool, a.now())
	if err != nil {
		return model.Price{}, err
	}
	mid, err := mathx.Mean(prices.Bid, prices.Ask)
	if err != nil {
		return model.Price{}, err
	}
	return model.Price{Base: base, Quote: quote, Price: mid}, nil
}

func (a *ShortageAdapter) ResourceAddresses(ctx context.Context, address common.Address) (common.Address, common.Address, error) {
	pool, err := a.pools(ctx, address)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return pool.Tokens(ctx)
}
