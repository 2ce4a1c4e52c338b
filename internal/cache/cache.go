// Package cache stores JSON-encoded read models for a short TTL. Redis backs
// it when configured; otherwise an in-process go-cache does.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/geocoder89/tourhub/internal/observability"
	gocache "github.com/patrickmn/go-cache"
)

type Cache interface {
	// Get decodes the value stored at key into dest and reports whether it
	// was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

type Local struct {
	c *gocache.Cache
}

func NewLocal(ttl time.Duration) *Local {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Local{c: gocache.New(ttl, 2*ttl)}
}

func (l *Local) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		l.c.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Local) Set(_ context.Context, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	l.c.SetDefault(key, b)
	return nil
}

func (l *Local) DeletePrefix(_ context.Context, prefix string) error {
	for k := range l.c.Items() {
		if strings.HasPrefix(k, prefix) {
			l.c.Delete(k)
		}
	}
	return nil
}

type observed struct {
	next Cache
	prom *observability.Prom
}

// WithMetrics counts hits, misses and errors of Get.
func WithMetrics(next Cache, prom *observability.Prom) Cache {
	if prom == nil {
		return next
	}
	return &observed{next: next, prom: prom}
}

func (o *observed) Get(ctx context.Context, key string, dest any) (bool, error) {
	ok, err := o.next.Get(ctx, key, dest)
	switch {
	case err != nil:
		o.prom.ObserveCache("error")
	case ok:
		o.prom.ObserveCache("hit")
	default:
		o.prom.ObserveCache("miss")
	}
	return ok, err
}

func (o *observed) Set(ctx context.Context, key string, val any) error {
	return o.next.Set(ctx, key, val)
}

func (o *observed) DeletePrefix(ctx context.Context, prefix string) error {
	return o.next.DeletePrefix(ctx, prefix)
}
