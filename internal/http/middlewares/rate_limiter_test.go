package middlewares

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisRateStore(t *testing.T, limit int) (*RedisRateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRateStore(rdb, limit, time.Hour), mr
}

func TestRedisRateStore_SharedBudget(t *testing.T) {
	ctx := context.Background()
	a, mr := newRedisRateStore(t, 2)

	// A second instance on the same Redis shares the counters.
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	b := NewRedisRateStore(rdb, 2, time.Hour)

	d, err := a.Allow(ctx, "ip:10.0.0.1")
	if err != nil || !d.Allowed || d.Remaining != 1 {
		t.Fatalf("first: %+v err=%v", d, err)
	}
	d, err = b.Allow(ctx, "ip:10.0.0.1")
	if err != nil || !d.Allowed || d.Remaining != 0 {
		t.Fatalf("second: %+v err=%v", d, err)
	}
	d, err = a.Allow(ctx, "ip:10.0.0.1")
	if err != nil || d.Allowed {
		t.Fatalf("third must be denied: %+v err=%v", d, err)
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("denied decision needs a retry delay: %+v", d)
	}

	d, err = a.Allow(ctx, "ip:10.0.0.2")
	if err != nil || !d.Allowed {
		t.Fatalf("other key must have its own budget: %+v err=%v", d, err)
	}
}

func TestRedisRateStore_FallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisRateStore(t, 1)
	mr.Close()

	d, err := s.Allow(ctx, "ip:10.0.0.1")
	if err != nil || !d.Allowed {
		t.Fatalf("fallback first call: %+v err=%v", d, err)
	}
	d, err = s.Allow(ctx, "ip:10.0.0.1")
	if err != nil || d.Allowed {
		t.Fatalf("fallback must still enforce the limit: %+v err=%v", d, err)
	}
}
