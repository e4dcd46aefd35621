package adapter

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidityAdapter/internal/model"
)

// PoolInfoCache stores immutable bin pool information by pool address.
type PoolInfoCache interface {
	Get(ctx context.Context, pool common.Address) (model.PoolInformation, bool, error)
	Set(ctx context.Context, pool common.Address, info model.PoolInformation) error
}

// MemoryPoolInfoCache keeps pool information in process memory.
type MemoryPoolInfoCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolInformation
}

func NewMemoryPoolInfoCache() *MemoryPoolInfoCache {
	return &MemoryPoolInfoCache{data: make(map[common.Address]model.PoolInformation)}
}

func (c *MemoryPoolInfoCache) Get(_ context.Context, pool common.Address) (model.PoolInformation, bool, error) {
	c.mu.RLock()
	info, ok := c.data[pool]
	c.mu.RUnlock()
	return info, ok, nil
}

func (c *MemoryPoolInfoCache) Set(_ context.Context, pool common.Address, info model.PoolInformation) error {
	c.mu.Lock()
	c.data[pool] = info
	c.mu.Unlock()
	return nil
}
