// Package simpool provides deterministic in-memory pools for every adapter
// family. They settle instantly and keep no history.
package simpool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"liquidityAdapter/internal/mathx"
	"liquidityAdapter/internal/model"
)

type binReserve struct {
	X      decimal.Decimal
	Y      decimal.Decimal
	Shares decimal.Decimal
}

// BinPool is a bin-based pool. Bin shares are minted by value at the pool
// price and every receipt is a non-fungible unit of ReceiptResource.
type BinPool struct {
	mu sync.Mutex

	resourceX       common.Address
	resourceY       common.Address
	receiptResource common.Address
	span            uint32
	active          uint32
	price           decimal.Decimal
	hasActive       bool

	bins     map[uint32]binReserve
	receipts map[string]map[uint32]decimal.Decimal
	nextID   uint64
}

func NewBinPool(resourceX, resourceY, receiptResource common.Address, span, active uint32, price decimal.Decimal) *BinPool {
	return &BinPool{
		resourceX:       resourceX,
		resourceY:       resourceY,
		receiptResource: receiptResource,
		span:            span,
		active:          active,
		price:           price,
		hasActive:       true,
		bins:            make(map[uint32]binReserve),
		receipts:        make(map[string]map[uint32]decimal.Decimal),
	}
}

// Seed adds reserves owned by nobody to bin.
func (p *BinPool) Seed(bin uint32, x, y decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.bins[bin]
	r.X = r.X.Add(x)
	r.Y = r.Y.Add(y)
	if r.Shares.IsZero() {
		r.Shares = p.value(x, y)
	}
	p.bins[bin] = r
}

// AccrueFees adds x and y to bin without minting shares.
func (p *BinPool) AccrueFees(bin uint32, x, y decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.bins[bin]
	r.X = r.X.Add(x)
	r.Y = r.Y.Add(y)
	p.bins[bin] = r
}

// SetActive moves the active bin and price without touching reserves.
func (p *BinPool) SetActive(active uint32, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = active
	p.price = price
	p.hasActive = true
}

// ClearActive makes the pool report no active bin and no price.
func (p *BinPool) ClearActive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasActive = false
}

func (p *BinPool) Resources(context.Context) (common.Address, common.Address, error) {
	return p.resourceX, p.resourceY, nil
}

func (p *BinPool) BinSpan(context.Context) (uint32, error) {
	return p.span, nil
}

func (p *BinPool) Price(context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasActive {
		return decimal.Zero, model.ErrNoPrice
	}
	return p.price, nil
}

func (p *BinPool) ActiveTick(context.Context) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasActive {
		return 0, model.ErrNoActiveBin
	}
	return p.active, nil
}

func (p *BinPool) ActiveAmounts(context.Context) (decimal.Decimal, decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasActive {
		return decimal.Zero, decimal.Zero, model.ErrNoActiveAmounts
	}
	r, ok := p.bins[p.active]
	if !ok {
		return decimal.Zero, decimal.Zero, model.ErrNoActiveAmounts
	}
	return r.X, r.Y, nil
}

func (p *BinPool) AddLiquidity(_ context.Context, x, y model.Bucket, positions []model.ContributionPosition) (model.Bucket, model.Bucket, model.Bucket, error) {
	if x.Resource != p.resourceX || y.Resource != p.resourceY {
		return model.Bucket{}, model.Bucket{}, model.Bucket{}, model.ErrResourceMismatch
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	usedX, usedY := decimal.Zero, decimal.Zero
	for _, pos := range positions {
		if pos.AmountX.IsNegative() || pos.AmountY.IsNegative() {
			return model.Bucket{}, model.Bucket{}, model.Bucket{}, fmt.Errorf("negative amount in bin %d", pos.Bin)
		}
		usedX = usedX.Add(pos.AmountX)
		usedY = usedY.Add(pos.AmountY)
	}
	if usedX.GreaterThan(x.Amount) || usedY.GreaterThan(y.Amount) {
		return model.Bucket{}, model.Bucket{}, model.Bucket{}, fmt.Errorf("positions need %s/%s, have %s/%s", usedX, usedY, x.Amount, y.Amount)
	}

	shares := make(map[uint32]decimal.Decimal, len(positions))
	for _, pos := range positions {
		if pos.AmountX.IsZero() && pos.AmountY.IsZero() {
			continue
		}
		r := p.bins[pos.Bin]
		value := p.value(pos.AmountX, pos.AmountY)
		minted := value
		if existing := p.value(r.X, r.Y); r.Shares.IsPositive() && existing.IsPositive() {
			var err error
			if minted, err = mathx.Div(value.Mul(r.Shares), existing); err != nil {
				return model.Bucket{}, model.Bucket{}, model.Bucket{}, err
			}
		}
		r.X = r.X.Add(pos.AmountX)
		r.Y = r.Y.Add(pos.AmountY)
		r.Shares = r.Shares.Add(minted)
		p.bins[pos.Bin] = r
		shares[pos.Bin] = shares[pos.Bin].Add(minted)
	}

	p.nextID++
	id := fmt.Sprintf("#%d#", p.nextID)
	p.receipts[id] = shares

	receipt := model.Bucket{Resource: p.receiptResource, Amount: mathx.One, LocalID: id}
	return receipt,
		model.NewBucket(p.resourceX, x.Amount.Sub(usedX)),
		model.NewBucket(p.resourceY, y.Amount.Sub(usedY)),
		nil
}

func (p *BinPool) RedemptionBinValues(_ context.Context, receipt model.Bucket) ([]model.BinAmount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shares, err := p.receipt(receipt)
	if err != nil {
		return nil, err
	}
	return p.redemption(shares)
}

func (p *BinPool) RemoveLiquidity(_ context.Context, receipt model.Bucket) (model.Bucket, model.Bucket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shares, err := p.receipt(receipt)
	if err != nil {
		return model.Bucket{}, model.Bucket{}, err
	}
	values, err := p.redemption(shares)
	if err != nil {
		return model.Bucket{}, model.Bucket{}, err
	}

	totalX, totalY := decimal.Zero, decimal.Zero
	for _, v := range values {
		r := p.bins[v.Bin]
		r.X = r.X.Sub(v.X)
		r.Y = r.Y.Sub(v.Y)
		r.Shares = r.Shares.Sub(shares[v.Bin])
		p.bins[v.Bin] = r
		totalX = totalX.Add(v.X)
		totalY = totalY.Add(v.Y)
	}
	delete(p.receipts, receipt.LocalID)
	return model.NewBucket(p.resourceX, totalX), model.NewBucket(p.resourceY, totalY), nil
}

// Snapshot implements txn.Participant.
func (p *BinPool) Snapshot() func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	active, price, hasActive, nextID := p.active, p.price, p.hasActive, p.nextID
	bins := make(map[uint32]binReserve, len(p.bins))
	for k, v := range p.bins {
		bins[k] = v
	}
	receipts := make(map[string]map[uint32]decimal.Decimal, len(p.receipts))
	for id, shares := range p.receipts {
		copied := make(map[uint32]decimal.Decimal, len(shares))
		for k, v := range shares {
			copied[k] = v
		}
		receipts[id] = copied
	}
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.active, p.price, p.hasActive, p.nextID = active, price, hasActive, nextID
		p.bins = bins
		p.receipts = receipts
	}
}

func (p *BinPool) receipt(receipt model.Bucket) (map[uint32]decimal.Decimal, error) {
	if receipt.Resource != p.receiptResource {
		return nil, model.ErrResourceMismatch
	}
	shares, ok := p.receipts[receipt.LocalID]
	if !ok {
		return nil, fmt.Errorf("unknown receipt %s", receipt.LocalID)
	}
	return shares, nil
}

func (p *BinPool) redemption(shares map[uint32]decimal.Decimal) ([]model.BinAmount, error) {
	out := make([]model.BinAmount, 0, len(shares))
	for bin, s := range shares {
		r := p.bins[bin]
		if !r.Shares.IsPositive() {
			continue
		}
		x, err := mathx.Div(r.X.Mul(s), r.Shares)
		if err != nil {
			return nil, err
		}
		y, err := mathx.Div(r.Y.Mul(s), r.Shares)
		if err != nil {
			return nil, err
		}
		out = append(out, model.BinAmount{Bin: bin, X: x, Y: y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bin < out[j].Bin })
	return out, nil
}

// value prices x in y at the pool price.
func (p *BinPool) value(x, y decimal.Decimal) decimal.Decimal {
	return x.Mul(p.price).Add(y)
}
