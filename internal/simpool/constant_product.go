package simpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

// ConstantProductPool is an x*y=k pool with a proportional swap fee that
// stays in the reserves.
type ConstantProductPool struct {
	mu sync.Mutex

	resourceX common.Address
	resourceY common.Address
	units     common.Address
	fee       decimal.Decimal

	reserveX decimal.Decimal
	reserveY decimal.Decimal
	supply   decimal.Decimal
}

func NewConstantProductPool(resourceX, resourceY, units common.Address, fee decimal.Decimal) *ConstantProductPool {
	return &ConstantProductPool{
		resourceX: resourceX,
		resourceY: resourceY,
		units:     units,
		fee:       fee,
		reserveX:  decimal.Zero,
		reserveY:  decimal.Zero,
		supply:    decimal.Zero,
	}
}

// Seed sets reserves and unit supply directly.
func (p *ConstantProductPool) Seed(x, y, supply decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserveX, p.reserveY, p.supply = x, y, supply
}

func (p *ConstantProductPool) Resources(context.Context) (common.Address, common.Address, error) {
	return p.resourceX, p.resourceY, nil
}

func (p *ConstantProductPool) Reserves(context.Context) (decimal.Decimal, decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reserveX, p.reserveY, nil
}

func (p *ConstantProductPool) UnitSupply(context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supply, nil
}

// AddLiquidity deposits at the pool ratio and returns the excess of the
// non-binding asset as change.
func (p *ConstantProductPool) AddLiquidity(_ context.Context, x, y model.Bucket) (model.Bucket, *model.Bucket, error) {
	if x.Resource != p.resourceX || y.Resource != p.resourceY {
		return model.Bucket{}, nil, model.ErrResourceMismatch
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.supply.IsPositive() {
		units, err := mathx.Sqrt(x.Amount.Mul(y.Amount), mathx.Scale)
		if err != nil {
			return model.Bucket{}, nil, err
		}
		p.reserveX, p.reserveY, p.supply = x.Amount, y.Amount, units
		return model.NewBucket(p.units, units), nil, nil
	}

	var (
		takeX, takeY, units decimal.Decimal
		change              model.Bucket
		err                 error
	)
	if x.Amount.Mul(p.reserveY).LessThanOrEqual(y.Amount.Mul(p.reserveX)) {
		takeX = x.Amount
		if takeY, err = mathx.Div(x.Amount.Mul(p.reserveY), p.reserveX); err != nil {
			return model.Bucket{}, nil, err
		}
		if units, err = mathx.Div(x.Amount.Mul(p.supply), p.reserveX); err != nil {
			return model.Bucket{}, nil, err
		}
		change = model.NewBucket(p.resourceY, y.Amount.Sub(takeY))
	} else {
		takeY = y.Amount
		if takeX, err = mathx.Div(y.Amount.Mul(p.reserveX), p.reserveY); err != nil {
			return model.Bucket{}, nil, err
		}
		if units, err = mathx.Div(y.Amount.Mul(p.supply), p.reserveY); err != nil {
			return model.Bucket{}, nil, err
		}
		change = model.NewBucket(p.resourceX, x.Amount.Sub(takeX))
	}

	p.reserveX = p.reserveX.Add(takeX)
	p.reserveY = p.reserveY.Add(takeY)
	p.supply = p.supply.Add(units)
	return model.NewBucket(p.units, units), &change, nil
}

func (p *ConstantProductPool) RemoveLiquidity(_ context.Context, units model.Bucket) (model.Bucket, model.Bucket, error) {
	if units.Resource != p.units {
		return model.Bucket{}, model.Bucket{}, model.ErrResourceMismatch
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if units.Amount.GreaterThan(p.supply) || !p.supply.IsPositive() {
		return model.Bucket{}, model.Bucket{}, fmt.Errorf("remove %s of %s units", units.Amount, p.supply)
	}
	x, err := mathx.Div(p.reserveX.Mul(units.Amount), p.supply)
	if err != nil {
		return model.Bucket{}, model.Bucket{}, err
	}
	y, err := mathx.Div(p.reserveY.Mul(units.Amount), p.supply)
	if err != nil {
		return model.Bucket{}, model.Bucket{}, err
	}
	p.reserveX = p.reserveX.Sub(x)
	p.reserveY = p.reserveY.Sub(y)
	p.supply = p.supply.Sub(units.Amount)
	return model.NewBucket(p.resourceX, x), model.NewBucket(p.resourceY, y), nil
}

// Swap trades input for the other asset, keeping the fee in the reserves.
func (p *ConstantProductPool) Swap(_ context.Context, input model.Bucket) (model.Bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in, out, outResource := &p.reserveX, &p.reserveY, p.resourceY
	switch input.Resource {
	case p.resourceX:
	case p.resourceY:
		in, out, outResource = &p.reserveY, &p.reserveX, p.resourceX
	default:
		return model.Bucket{}, model.ErrResourceMismatch
	}
	if !in.IsPositive() || !out.IsPositive() {
		return model.Bucket{}, model.ErrNoPrice
	}

	effective, err := mathx.Mul(input.Amount, mathx.One.Sub(p.fee))
	if err != nil {
		return model.Bucket{}, err
	}
	amount, err := mathx.Div(out.Mul(effective), in.Add(effective))
	if err != nil {
		return model.Bucket{}, err
	}
	*in = in.Add(input.Amount)
	*out = out.Sub(amount)
	return model.NewBucket(outResource, amount), nil
}

// Snapshot implements txn.Participant.
func (p *ConstantProductPool) Snapshot() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	x, y, supply := p.reserveX, p.reserveY, p.supply
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.reserveX, p.reserveY, p.supply = x, y, supply
	}
}
