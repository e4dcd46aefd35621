package adapter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidityAdapter/internal/model"
)

// Registry maps pool families to their adapters and pools to families.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Family]Adapter
	pools    map[common.Address]Family
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Family]Adapter),
		pools:    make(map[common.Address]Family),
	}
}

// Bind records that pool is served by the adapter of family.
func (r *Registry) Bind(pool common.Address, family Family) {
	r.mu.Lock()
	r.pools[pool] = family
	r.mu.Unlock()
}

// ForPool returns the adapter bound to pool.
func (r *Registry) ForPool(pool common.Address) (Adapter, error) {
	r.mu.RLock()
	family, ok := r.pools[pool]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", pool.Hex(), model.ErrNoAdapter)
	}
	return r.Get(family)
}

// Register adds a, instrumented, under its family, replacing any previous one.
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}
	if _, ok := a.(*instrumented); !ok {
		a = Instrument(a)
	}
	r.mu.Lock()
	r.adapters[a.Family()] = a
	r.mu.Unlock()
}

// Get returns the adapter for family or ErrNoAdapter.
func (r *Registry) Get(family Family) (Adapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[family]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", family, model.ErrNoAdapter)
	}
	return a, nil
}

// Families returns the registered families in name order.
func (r *Registry) Families() []Family {
	r.mu.RLock()
	out := make([]Family, 0, len(r.adapters))
	for f := range r.adapters {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Enabled returns the adapters registered for families, skipping unknown ones.
func (r *Registry) Enabled(families []Family) []Adapter {
	out := make([]Adapter, 0, len(families))
	for _, f := range families {
		if a, err := r.Get(f); err == nil {
			out = append(out, a)
		}
	}
	return out
}
