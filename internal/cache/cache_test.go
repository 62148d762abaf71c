package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetOrComputeMissThenHit(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	key := ScopeKey("transactions", "region:asia")

	computes := 0
	compute := func(dest *[]string) func(context.Context) error {
		return func(context.Context) error {
			computes++
			*dest = []string{"tx-1", "tx-2"}
			return nil
		}
	}

	var first []string
	if err := c.GetOrCompute(ctx, key, &first, compute(&first)); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if computes != 1 {
		t.Fatalf("expected 1 compute, got %d", computes)
	}
	if len(first) != 2 {
		t.Fatalf("unexpected result: %v", first)
	}

	var second []string
	if err := c.GetOrCompute(ctx, key, &second, compute(&second)); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if computes != 1 {
		t.Fatalf("expected cache hit to skip compute, got %d computes", computes)
	}
	if len(second) != 2 {
		t.Fatalf("unexpected cached result: %v", second)
	}
}

func TestGetOrComputeExpiresAfterTTL(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	key := ScopeKey("users", "global")

	computes := 0
	compute := func(ctx context.Context) error {
		computes++
		return nil
	}

	var dest []string
	if err := c.GetOrCompute(ctx, key, &dest, compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	mr.FastForward(61 * time.Second)
	if err := c.GetOrCompute(ctx, key, &dest, compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if computes != 2 {
		t.Fatalf("expected recompute after TTL, got %d computes", computes)
	}
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	key := ScopeKey("transactions", "global")

	wantErr := errors.New("backend down")
	var dest []string
	err := c.GetOrCompute(ctx, key, &dest, func(context.Context) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("failed compute must not be cached")
	}
}

func TestGetOrComputeFallsBackWhenRedisDown(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	computes := 0
	var dest []string
	err := c.GetOrCompute(context.Background(), ScopeKey("audit", "global"), &dest, func(context.Context) error {
		computes++
		dest = []string{"rec-1"}
		return nil
	})
	if err != nil {
		t.Fatalf("expected fail-open, got %v", err)
	}
	if computes != 1 {
		t.Fatalf("expected direct compute, got %d", computes)
	}
}

func TestGetOrComputeDropsCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	key := ScopeKey("users", "region:asia")
	if err := mr.Set(key, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	computes := 0
	var dest []string
	if err := c.GetOrCompute(ctx, key, &dest, func(context.Context) error {
		computes++
		dest = []string{"u1"}
		return nil
	}); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if computes != 1 {
		t.Fatalf("expected recompute for corrupt entry, got %d", computes)
	}
	got, err := mr.Get(key)
	if err != nil {
		t.Fatalf("expected recomputed entry stored: %v", err)
	}
	if got == "{not json" {
		t.Fatal("corrupt entry not replaced")
	}
}

func TestInvalidateRemovesKeys(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	k1 := ScopeKey("transactions", "region:asia")
	k2 := ScopeKey("transactions", "global")
	var dest []string
	fill := func(context.Context) error { dest = []string{"tx"}; return nil }
	if err := c.GetOrCompute(ctx, k1, &dest, fill); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if err := c.GetOrCompute(ctx, k2, &dest, fill); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}

	c.Invalidate(ctx, k1, k2)
	if mr.Exists(k1) || mr.Exists(k2) {
		t.Fatal("expected keys removed")
	}
}

func TestNilCachePassesThrough(t *testing.T) {
	var c *Cache
	computes := 0
	var dest []string
	if err := c.GetOrCompute(context.Background(), "transactions:global", &dest, func(context.Context) error {
		computes++
		return nil
	}); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if computes != 1 {
		t.Fatalf("expected direct compute, got %d", computes)
	}
	c.Invalidate(context.Background(), "transactions:global")
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping on nil cache: %v", err)
	}
}

func TestScopeKey(t *testing.T) {
	if got := ScopeKey("transactions", "region:asia"); got != "transactions:region:asia" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := ScopeKey("users", "global"); got != "users:global" {
		t.Fatalf("unexpected key: %s", got)
	}
}
