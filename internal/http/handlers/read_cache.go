package handlers

import (
	"context"
	"log/slog"

	"github.com/geocoder89/tourhub/internal/cache"
	"github.com/geocoder89/tourhub/internal/utils"
)

// readCache wraps an optional cache. Cache failures are logged and treated
// as misses; reads always fall through to the store.
type readCache struct {
	c   cache.Cache
	log *slog.Logger
}

func (r readCache) get(ctx context.Context, key string, dest any) bool {
	if r.c == nil {
		return false
	}
	hit, err := r.c.Get(ctx, key, dest)
	if err != nil {
		r.log.WarnContext(ctx, "cache.get_failed", "key", key, "err", err)
		return false
	}
	return hit
}

func (r readCache) set(ctx context.Context, key string, val any) {
	if r.c == nil {
		return
	}
	if err := r.c.Set(ctx, key, val); err != nil {
		r.log.WarnContext(ctx, "cache.set_failed", "key", key, "err", err)
	}
}

// invalidateTours drops every cached tour read model.
func (r readCache) invalidateTours(ctx context.Context) {
	if r.c == nil {
		return
	}
	if err := r.c.DeletePrefix(context.WithoutCancel(ctx), utils.ToursCachePrefix); err != nil {
		r.log.ErrorContext(ctx, "cache.invalidate_failed", "prefix", utils.ToursCachePrefix, "err", err)
	}
}
