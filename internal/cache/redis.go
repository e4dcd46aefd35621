package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"liquidityAdapter/internal/model"
)

const defaultPrefix = "adapter:pool_info:"

// RedisOptions configures a RedisPoolInfoCache.
type RedisOptions struct {
	Addr     string
	DB       int
	Username string
	Password string
	Prefix   string
	// TTL of each entry; zero keeps entries forever.
	TTL time.Duration
}

// RedisPoolInfoCache shares bin pool information between processes.
type RedisPoolInfoCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisPoolInfoCache(opts RedisOptions, logger *zap.Logger) *RedisPoolInfoCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Username: opts.Username,
		Password: opts.Password,
	})
	return newRedisPoolInfoCache(rdb, opts, logger)
}

func newRedisPoolInfoCache(rdb *redis.Client, opts RedisOptions, logger *zap.Logger) *RedisPoolInfoCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisPoolInfoCache{rdb: rdb, prefix: prefix, ttl: opts.TTL, logger: logger}
}

func (c *RedisPoolInfoCache) key(pool common.Address) string {
	return c.prefix + pool.Hex()
}

func (c *RedisPoolInfoCache) Get(ctx context.Context, pool common.Address) (model.PoolInformation, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(pool)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PoolInformation{}, false, nil
		}
		return model.PoolInformation{}, false, fmt.Errorf("redis get: %w", err)
	}
	var info model.PoolInformation
	if err := json.Unmarshal(raw, &info); err != nil {
		return model.PoolInformation{}, false, fmt.Errorf("parse pool info: %w", err)
	}
	return info, true, nil
}

func (c *RedisPoolInfoCache) Set(ctx context.Context, pool common.Address, info model.PoolInformation) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal pool info: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(pool), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	c.logger.Debug("pool info cached", zap.String("pool", pool.Hex()), zap.Uint32("bin_span", info.BinSpan))
	return nil
}

func (c *RedisPoolInfoCache) Close() error {
	return c.rdb.Close()
}
