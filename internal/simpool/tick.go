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

type tickPosition struct {
	Lower int32
	Upper int32
	X     decimal.Decimal
	Y     decimal.Decimal
	FeeX  decimal.Decimal
	FeeY  decimal.Decimal
}

// TickPool is a logarithmic tick pool that deposits both buckets in full
// and tracks fees per position.
type TickPool struct {
	mu sync.Mutex

	resourceX       common.Address
	resourceY       common.Address
	receiptResource common.Address
	active          int32
	sqrtPrice       decimal.Decimal

	positions map[string]tickPosition
	nextID    uint64
}

func NewTickPool(resourceX, resourceY, receiptResource common.Address, active int32, sqrtPrice decimal.Decimal) *TickPool {
	return &TickPool{
		resourceX:       resourceX,
		resourceY:       resourceY,
		receiptResource: receiptResource,
		active:          active,
		sqrtPrice:       sqrtPrice,
		positions:       make(map[string]tickPosition),
	}
}

// AccrueFees credits fees to the position behind receipt.
func (p *TickPool) AccrueFees(receiptID string, x, y decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[receiptID]
	if !ok {
		return fmt.Errorf("unknown receipt %s", receiptID)
	}
	pos.FeeX = pos.FeeX.Add(x)
	pos.FeeY = pos.FeeY.Add(y)
	p.positions[receiptID] = pos
	return nil
}

func (p *TickPool) Resources(context.Context) (common.Address, common.Address, error) {
	return p.resourceX, p.resourceY, nil
}

func (p *TickPool) ActiveTick(context.Context) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, nil
}

func (p *TickPool) PriceSqrt(context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sqrtPrice, nil
}

func (p *TickPool) AddLiquidity(_ context.Context, lower, upper int32, x, y model.Bucket) (model.Bucket, model.Bucket, model.Bucket, error) {
	if x.Resource != p.resourceX || y.Resource != p.resourceY {
		return model.Bucket{}, model.Bucket{}, model.Bucket{}, model.ErrResourceMismatch
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if lower >= upper || lower > p.active || upper < p.active {
		return model.Bucket{}, model.Bucket{}, model.Bucket{}, fmt.Errorf("range [%d, %d] does not contain active tick %d", lower, upper, p.active)
	}

	p.nextID++
	id := fmt.Sprintf("#%d#", p.nextID)
	p.positions[id] = tickPosition{Lower: lower, Upper: upper, X: x.Amount, Y: y.Amount}

	receipt := model.Bucket{Resource: p.receiptResource, Amount: mathx.One, LocalID: id}
	return receipt, model.EmptyBucket(p.resourceX), model.EmptyBucket(p.resourceY), nil
}

func (p *TickPool) TotalFees(_ context.Context, receipt model.Bucket) (decimal.Decimal, decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, err := p.position(receipt)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return pos.FeeX, pos.FeeY, nil
}

func (p *TickPool) RemoveLiquidity(_ context.Context, receipt model.Bucket) (model.Bucket, model.Bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, err := p.position(receipt)
	if err != nil {
		return model.Bucket{}, model.Bucket{}, err
	}
	delete(p.positions, receipt.LocalID)
	return model.NewBucket(p.resourceX, pos.X.Add(pos.FeeX)), model.NewBucket(p.resourceY, pos.Y.Add(pos.FeeY)), nil
}

// Snapshot implements txn.Participant.
func (p *TickPool) Snapshot() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	active, sqrtPrice, nextID := p.active, p.sqrtPrice, p.nextID
	positions := make(map[string]tickPosition, len(p.positions))
	for k, v := range p.positions {
		positions[k] = v
	}
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.active, p.sqrtPrice, p.nextID = active, sqrtPrice, nextID
		p.positions = positions
	}
}

func (p *TickPool) position(receipt model.Bucket) (tickPosition, error) {
	if receipt.Resource != p.receiptResource {
		return tickPosition{}, model.ErrResourceMismatch
	}
	pos, ok := p.positions[receipt.LocalID]
	if !ok {
		return tickPosition{}, fmt.Errorf("unknown receipt %s", receipt.LocalID)
	}
	return pos, nil
}
