package adapter

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidityAdapter/internal/metrics"
	"liquidityAdapter/internal/model"
)

type instrumented struct {
	next Adapter
}

// Instrument wraps a so every call is counted and timed.
func Instrument(a Adapter) Adapter {
	return &instrumented{next: a}
}

func (i *instrumented) Family() Family { return i.next.Family() }

func (i *instrumented) observe(op string, started time.Time, err error) {
	metrics.ObserveAdapterCall(string(i.next.Family()), op, started, err)
}

func (i *instrumented) OpenLiquidityPosition(ctx context.Context, pool common.Address, a, b model.Bucket, opts ...OpenOption) (out model.OpenLiquidityPositionOutput, err error) {
	defer func(started time.Time) { i.observe("open", started, err) }(time.Now())
	return i.next.OpenLiquidityPosition(ctx, pool, a, b, opts...)
}

func (i *instrumented) CloseLiquidityPosition(ctx context.Context, pool common.Address, poolUnits []model.Bucket, adapterData []byte) (out model.CloseLiquidityPositionOutput, err error) {
	defer func(started time.Time) { i.observe("close", started, err) }(time.Now())
	return i.next.CloseLiquidityPosition(ctx, pool, poolUnits, adapterData)
}

func (i *instrumented) Price(ctx context.Context, pool common.Address) (out model.Price, err error) {
	defer func(started time.Time) { i.observe("price", started, err) }(time.Now())
	return i.next.Price(ctx, pool)
}

func (i *instrumented) ResourceAddresses(ctx context.Context, pool common.Address) (x common.Address, y common.Address, err error) {
	defer func(started time.Time) { i.observe("resource_addresses", started, err) }(time.Now())
	return i.next.ResourceAddresses(ctx, pool)
}
