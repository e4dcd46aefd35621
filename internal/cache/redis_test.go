package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"

	"liquidityAdapter/internal/adapter"
	"liquidityAdapter/internal/model"
)

var _ adapter.PoolInfoCache = (*RedisPoolInfoCache)(nil)

func TestRedisPoolInfoCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	c := NewRedisPoolInfoCache(RedisOptions{Addr: mr.Addr(), TTL: time.Minute}, nil)
	defer c.Close()

	pool := common.HexToAddress("0x0000000000000000000000000000000000000c01")
	if _, ok, err := c.Get(ctx, pool); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	info := model.PoolInformation{
		BinSpan:   100,
		ResourceX: common.HexToAddress("0x0000000000000000000000000000000000000a01"),
		ResourceY: common.HexToAddress("0x0000000000000000000000000000000000000a02"),
	}
	if err := c.Set(ctx, pool, info); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, pool)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got != info {
		t.Fatalf("unexpected info: %+v", got)
	}
	if !mr.Exists(defaultPrefix + pool.Hex()) {
		t.Fatalf("expected key under default prefix")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, pool); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestRedisPoolInfoCacheCorruptEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	c := NewRedisPoolInfoCache(RedisOptions{Addr: mr.Addr(), Prefix: "test:"}, nil)
	defer c.Close()

	pool := common.HexToAddress("0x0000000000000000000000000000000000000c01")
	if err := mr.Set("test:"+pool.Hex(), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := c.Get(context.Background(), pool); err == nil {
		t.Fatalf("expected parse error")
	}
}
