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

type subPool struct {
	Units   common.Address
	Actual  decimal.Decimal
	Surplus decimal.Decimal
	Supply  decimal.Decimal
}

// ShortagePool is a target-ratio pair made of a base and a quote sub-pool.
// Each sub-pool holds its own asset plus a surplus of the other one.
type ShortagePool struct {
	mu sync.Mutex

	base  common.Address
	quote common.Address
	state model.PairState
	pools [2]subPool
}

const (
	baseSide = iota
	quoteSide
)

func NewShortagePool(base, quote, baseUnits, quoteUnits common.Address, state model.PairState) *ShortagePool {
	return &ShortagePool{
		base:  base,
		quote: quote,
		state: state,
		pools: [2]subPool{
			{Units: baseUnits, Actual: decimal.Zero, Surplus: decimal.Zero, Supply: decimal.Zero},
			{Units: quoteUnits, Actual: decimal.Zero, Surplus: decimal.Zero, Supply: decimal.Zero},
		},
	}
}

// Seed sets the reserves and unit supply of the sub-pool of resource.
func (p *ShortagePool) Seed(resource common.Address, actual, surplus, supply decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	side, err := p.side(resource)
	if err != nil {
		return err
	}
	sp := &p.pools[side]
	sp.Actual, sp.Surplus, sp.Supply = actual, surplus, supply
	return nil
}

// Adjust moves the reserves of the sub-pool of resource by the given deltas.
func (p *ShortagePool) Adjust(resource common.Address, actual, surplus decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	side, err := p.side(resource)
	if err != nil {
		return err
	}
	sp := &p.pools[side]
	next := subPool{Units: sp.Units, Actual: sp.Actual.Add(actual), Surplus: sp.Surplus.Add(surplus), Supply: sp.Supply}
	if next.Actual.IsNegative() || next.Surplus.IsNegative() {
		return fmt.Errorf("adjustment leaves negative reserves")
	}
	*sp = next
	return nil
}

// SetState replaces the pair state.
func (p *ShortagePool) SetState(state model.PairState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

func (p *ShortagePool) Tokens(context.Context) (common.Address, common.Address, error) {
	return p.base, p.quote, nil
}

func (p *ShortagePool) State(context.Context) (model.PairState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

func (p *ShortagePool) Pools(context.Context) (model.Reserves, model.Reserves, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, q := p.pools[baseSide], p.pools[quoteSide]
	return model.Reserves{Actual: b.Actual, Surplus: b.Surplus}, model.Reserves{Actual: q.Actual, Surplus: q.Surplus}, nil
}

// AddLiquidity mints units in proportion to input's share of the sub-pool's
// own asset and takes the same share of its surplus from coLiquidity.
func (p *ShortagePool) AddLiquidity(_ context.Context, input model.Bucket, coLiquidity *model.Bucket) (model.Bucket, *model.Bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	side, err := p.side(input.Resource)
	if err != nil {
		return model.Bucket{}, nil, err
	}
	other := p.base
	if side == baseSide {
		other = p.quote
	}
	if coLiquidity != nil && coLiquidity.Resource != other {
		return model.Bucket{}, nil, model.ErrResourceMismatch
	}

	sp := &p.pools[side]
	units, taken := input.Amount, decimal.Zero
	if sp.Supply.IsPositive() && sp.Actual.IsPositive() {
		if units, err = mathx.Div(input.Amount.Mul(sp.Supply), sp.Actual); err != nil {
			return model.Bucket{}, nil, err
		}
		if coLiquidity != nil {
			if taken, err = mathx.Div(input.Amount.Mul(sp.Surplus), sp.Actual); err != nil {
				return model.Bucket{}, nil, err
			}
			if taken.GreaterThan(coLiquidity.Amount) {
				return model.Bucket{}, nil, fmt.Errorf("co-liquidity %s short of %s", coLiquidity.Amount, taken)
			}
		}
	}

	sp.Actual = sp.Actual.Add(input.Amount)
	sp.Surplus = sp.Surplus.Add(taken)
	sp.Supply = sp.Supply.Add(units)

	var change *model.Bucket
	if coLiquidity != nil {
		rest := model.NewBucket(other, coLiquidity.Amount.Sub(taken))
		change = &rest
	}
	return model.NewBucket(sp.Units, units), change, nil
}

// Redeem burns units of either sub-pool and returns its base and quote share.
func (p *ShortagePool) Redeem(_ context.Context, units model.Bucket) (model.Bucket, model.Bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	side := -1
	for i := range p.pools {
		if p.pools[i].Units == units.Resource {
			side = i
		}
	}
	if side < 0 {
		return model.Bucket{}, model.Bucket{}, model.ErrResourceMismatch
	}
	sp := &p.pools[side]
	if units.Amount.GreaterThan(sp.Supply) || !sp.Supply.IsPositive() {
		return model.Bucket{}, model.Bucket{}, fmt.Errorf("redeem %s of %s units", units.Amount, sp.Supply)
	}

	actual, err := mathx.Div(sp.Actual.Mul(units.Amount), sp.Supply)
	if err != nil {
		return model.Bucket{}, model.Bucket{}, err
	}
	surplus, err := mathx.Div(sp.Surplus.Mul(units.Amount), sp.Supply)
	if err != nil {
		return model.Bucket{}, model.Bucket{}, err
	}
	sp.Actual = sp.Actual.Sub(actual)
	sp.Surplus = sp.Surplus.Sub(surplus)
	sp.Supply = sp.Supply.Sub(units.Amount)

	if side == baseSide {
		return model.NewBucket(p.base, actual), model.NewBucket(p.quote, surplus), nil
	}
	return model.NewBucket(p.base, surplus), model.NewBucket(p.quote, actual), nil
}

// Snapshot implements txn.Participant.
func (p *ShortagePool) Snapshot() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, pools := p.state, p.pools
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.state, p.pools = state, pools
	}
}

func (p *ShortagePool) side(resource common.Address) (int, error) {
	switch resource {
	case p.base:
		return baseSide, nil
	case p.quote:
		return quoteSide, nil
	default:
		return 0, model.ErrResourceMismatch
	}
}
