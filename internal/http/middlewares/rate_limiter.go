package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/gin-gonic/gin"
	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

const rateLimitMessage = "Too many requests from this IP, please try again in an hour!"

// RateDecision is the outcome of one Allow call.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

type RateStore interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

// MemoryRateStore is a per-process fixed-window counter.
type MemoryRateStore struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	now     func() time.Time
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryRateStore(limit int, window time.Duration) *MemoryRateStore {
	return &MemoryRateStore{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (s *MemoryRateStore) Allow(_ context.Context, key string) (RateDecision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clients) > 10_000 {
		s.sweep(now)
	}

	b, ok := s.clients[key]
	if !ok || now.After(b.windowEnd) {
		b = &clientBucket{windowEnd: now.Add(s.window)}
		s.clients[key] = b
	}

	reset := b.windowEnd.Sub(now)
	if b.count >= s.limit {
		return RateDecision{Limit: s.limit, RetryAfter: reset, ResetAfter: reset}, nil
	}

	b.count++
	return RateDecision{
		Allowed:    true,
		Limit:      s.limit,
		Remaining:  s.limit - b.count,
		ResetAfter: reset,
	}, nil
}

func (s *MemoryRateStore) sweep(now time.Time) {
	for k, b := range s.clients {
		if now.After(b.windowEnd) {
			delete(s.clients, k)
		}
	}
}

// RedisRateStore shares a GCRA limit across instances and falls back to the
// in-process store when Redis is unreachable.
type RedisRateStore struct {
	limiter  *redis_rate.Limiter
	limit    redis_rate.Limit
	fallback *MemoryRateStore
}

func NewRedisRateStore(rdb *redis.Client, limit int, window time.Duration) *RedisRateStore {
	return &RedisRateStore{
		limiter:  redis_rate.NewLimiter(rdb),
		limit:    redis_rate.Limit{Rate: limit, Burst: limit, Period: window},
		fallback: NewMemoryRateStore(limit, window),
	}
}

func (s *RedisRateStore) Allow(ctx context.Context, key string) (RateDecision, error) {
	res, err := s.limiter.Allow(ctx, "ratelimit:"+key, s.limit)
	if err != nil {
		slog.WarnContext(ctx, "ratelimit.redis_failed", "err", err)
		return s.fallback.Allow(ctx, key)
	}

	return RateDecision{
		Allowed:    res.Allowed > 0,
		Limit:      s.limit.Rate,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
		ResetAfter: res.ResetAfter,
	}, nil
}

// RateLimit enforces store per key. A store error lets the request through.
func RateLimit(store RateStore, keyFn func(*gin.Context) string) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = KeyByIP
	}

	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		d, err := store.Allow(c.Request.Context(), key)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "ratelimit.failed_open", "err", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.ResetAfter).Unix(), 10))

		if !d.Allowed {
			retry := int(d.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			apierr.Abort(c, apierr.New(http.StatusTooManyRequests, "rate_limited", rateLimitMessage))
			return
		}

		c.Next()
	}
}

func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	return ip
}
