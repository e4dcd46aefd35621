package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidityAdapter/internal/model"
	"liquidityAdapter/internal/simpool"
)

func newBinFixture(cfg BinConfig) (*BinAdapter, *simpool.BinPool) {
	pool := simpool.NewBinPool(xrd, usd, receiptRes, 100, 27000, dec("1"))
	pool.Seed(27000, dec("1000"), dec("1000"))
	pools := StaticResolver(map[common.Address]BinPool{poolAddr: pool})
	return NewBinAdapter(pools, nil, cfg, nil), pool
}

func TestBinOpenCloseWithoutPriceMove(t *testing.T) {
	ctx := context.Background()
	a, _ := newBinFixture(BinConfig{})

	out, err := a.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(xrd, dec("100")), model.NewBucket(usd, dec("100")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(out.PoolUnits) != 1 || out.PoolUnits[0].Resource != receiptRes {
		t.Fatalf("unexpected pool units: %+v", out.PoolUnits)
	}
	data, err := model.DecodeAdapterDataAs[model.BinContributions](out.AdapterData)
	if err != nil {
		t.Fatalf("decode adapter data: %v", err)
	}
	if len(data.Bins) != 61 {
		t.Fatalf("expected 61 contributed bins, got %d", len(data.Bins))
	}
	if data.ReceiptID != out.PoolUnits[0].LocalID || !data.PriceAtOpen.Equal(dec("1")) {
		t.Fatalf("unexpected adapter data: %+v", data)
	}

	closed, err := a.CloseLiquidityPosition(ctx, poolAddr, out.PoolUnits, out.AdapterData)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	for resource, fee := range closed.Fees {
		if !fee.IsZero() {
			t.Fatalf("expected zero fee for %s, got %s", resource.Hex(), fee)
		}
	}

	// Everything supplied comes back as change or on close.
	for _, resource := range []common.Address{xrd, usd} {
		total := closed.Resources[resource].Amount.Add(out.Change[resource].Amount)
		if !total.Equal(dec("100")) {
			t.Fatalf("%s: expected 100 back, got %s", resource.Hex(), total)
		}
	}
}

func TestBinCloseReportsAccruedFees(t *testing.T) {
	ctx := context.Background()
	a, pool := newBinFixture(BinConfig{})

	out, err := a.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(usd, dec("100")), model.NewBucket(xrd, dec("100")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pool.AccrueFees(27000, dec("50"), dec("50"))

	closed, err := a.CloseLiquidityPosition(ctx, poolAddr, out.PoolUnits, out.AdapterData)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.Fees[xrd].IsPositive() || !closed.Fees[usd].IsPositive() {
		t.Fatalf("expected positive fees, got %+v", closed.Fees)
	}
}

func TestBinOpenRejectsForeignResource(t *testing.T) {
	a, _ := newBinFixture(BinConfig{})
	_, err := a.OpenLiquidityPosition(context.Background(), poolAddr, model.NewBucket(xrd, dec("1")), model.NewBucket(other, dec("1")))
	if !errors.Is(err, model.ErrResourceMismatch) {
		t.Fatalf("expected ErrResourceMismatch, got %v", err)
	}
}

func TestBinCloseRejectsBucketCount(t *testing.T) {
	a, _ := newBinFixture(BinConfig{})
	units := []model.Bucket{model.NewBucket(receiptRes, dec("1")), model.NewBucket(receiptRes, dec("1"))}
	_, err := a.CloseLiquidityPosition(context.Background(), poolAddr, units, nil)
	if !errors.Is(err, model.ErrInvalidBucketCount) {
		t.Fatalf("expected ErrInvalidBucketCount, got %v", err)
	}
}

func TestBinRangeStrategy(t *testing.T) {
	ctx := context.Background()
	a, _ := newBinFixture(BinConfig{Strategy: BinStrategyRange})
	lockup := model.LockupFromMonths(6)

	_, err := a.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(xrd, dec("10")), model.NewBucket(usd, dec("10")), WithLockupPeriod(lockup))
	if !errors.Is(err, model.ErrPoolHasNoBinConfig) {
		t.Fatalf("expected ErrPoolHasNoBinConfig, got %v", err)
	}

	if err := a.UpsertBinRange(poolAddr, lockup, BinRange{Start: 26800, End: 27200}); err != nil {
		t.Fatalf("upsert range: %v", err)
	}
	out, err := a.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(xrd, dec("10")), model.NewBucket(usd, dec("10")), WithLockupPeriod(lockup))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := model.DecodeAdapterDataAs[model.BinContributions](out.AdapterData)
	if err != nil {
		t.Fatalf("decode adapter data: %v", err)
	}
	if len(data.Bins) != 5 {
		t.Fatalf("expected 5 bins, got %d", len(data.Bins))
	}

	_, err = a.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(xrd, dec("10")), model.NewBucket(usd, dec("10")))
	if !errors.Is(err, model.ErrPoolHasNoBinConfig) {
		t.Fatalf("expected ErrPoolHasNoBinConfig without lockup, got %v", err)
	}
}

func TestBinExhaustedRange(t *testing.T) {
	ctx := context.Background()
	pool := simpool.NewBinPool(xrd, usd, receiptRes, 60000, 0, dec("1"))
	pool.Seed(0, dec("10"), dec("10"))
	pools := StaticResolver(map[common.Address]BinPool{poolAddr: pool})

	lenient := NewBinAdapter(pools, nil, BinConfig{}, nil)
	out, err := lenient.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(xrd, dec("10")), model.NewBucket(usd, dec("10")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := model.DecodeAdapterDataAs[model.BinContributions](out.AdapterData)
	if err != nil {
		t.Fatalf("decode adapter data: %v", err)
	}
	if len(data.Bins) != 1 || data.Bins[0].Bin != 0 {
		t.Fatalf("expected active bin only, got %+v", data.Bins)
	}

	strict := NewBinAdapter(pools, nil, BinConfig{RejectExhausted: true}, nil)
	_, err = strict.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(xrd, dec("10")), model.NewBucket(usd, dec("10")))
	if !errors.Is(err, model.ErrBinRangeExhausted) {
		t.Fatalf("expected ErrBinRangeExhausted, got %v", err)
	}
}

func TestBinExhaustedRangeOneSidedActiveBin(t *testing.T) {
	ctx := context.Background()
	pool := simpool.NewBinPool(xrd, usd, receiptRes, 60000, 0, dec("1"))
	pool.Seed(0, dec("0"), dec("10"))
	a := NewBinAdapter(StaticResolver(map[common.Address]BinPool{poolAddr: pool}), nil, BinConfig{}, nil)

	out, err := a.OpenLiquidityPosition(ctx, poolAddr, model.NewBucket(xrd, dec("10")), model.NewBucket(usd, dec("10")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !out.Change[xrd].Amount.Equal(dec("10")) || !out.Change[usd].Amount.IsZero() {
		t.Fatalf("expected all x back as change, got %+v", out.Change)
	}
	data, err := model.DecodeAdapterDataAs[model.BinContributions](out.AdapterData)
	if err != nil {
		t.Fatalf("decode adapter data: %v", err)
	}
	if len(data.Bins) != 1 || data.Bins[0].Bin != 0 || !data.Bins[0].Y.Equal(dec("10")) || !data.Bins[0].X.IsZero() {
		t.Fatalf("expected y in the active bin only, got %+v", data.Bins)
	}
}

func TestBinPriceWithoutActiveBin(t *testing.T) {
	ctx := context.Background()
	a, pool := newBinFixture(BinConfig{})

	price, err := a.Price(ctx, poolAddr)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.Base != xrd || price.Quote != usd || !price.Price.Equal(dec("1")) {
		t.Fatalf("unexpected price: %+v", price)
	}

	pool.ClearActive()
	if _, err := a.Price(ctx, poolAddr); !errors.Is(err, model.ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

func TestBinPoolInformationCached(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryPoolInfoCache()
	pool := simpool.NewBinPool(xrd, usd, receiptRes, 100, 27000, dec("1"))
	a := NewBinAdapter(StaticResolver(map[common.Address]BinPool{poolAddr: pool}), cache, BinConfig{}, nil)

	info, err := a.PoolInformation(ctx, poolAddr)
	if err != nil {
		t.Fatalf("pool information: %v", err)
	}
	cached, ok, err := cache.Get(ctx, poolAddr)
	if err != nil || !ok {
		t.Fatalf("expected cached entry, ok=%v err=%v", ok, err)
	}
	if cached != info || info.BinSpan != 100 || info.ResourceX != xrd {
		t.Fatalf("unexpected info: %+v cached %+v", info, cached)
	}
}
