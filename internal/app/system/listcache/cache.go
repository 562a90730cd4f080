// Package listcache caches computed list pages for a fixed TTL and throws
// the whole cache away on any write to the underlying collection.
//
// Entries are namespaced by a generation number. Invalidate bumps the
// generation, so a page computed before a write can never be stored under
// the generation that follows it.
package listcache

import (
	"context"
	"fmt"

	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend stores cached pages. Implementations must be safe for concurrent use.
type Backend[V any] interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, gen uint64, key string) (V, bool, error)
	Set(ctx context.Context, gen uint64, key string, v V) error
	Purge(ctx context.Context) error
}

// Hooks observe cache behaviour (metrics). Nil funcs are skipped.
type Hooks struct {
	Hit         func()
	Miss        func()
	Purge       func()
	PurgeFailed func()
}

// Cache fronts a Backend with singleflight so concurrent misses for the
// same key share one load.
type Cache[V any] struct {
	backend Backend[V]
	flight  singleflight.Group
	hooks   Hooks
	log     *zap.Logger
}

// New wraps backend.
func New[V any](backend Backend[V], hooks Hooks, log *zap.Logger) *Cache[V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache[V]{backend: backend, hooks: hooks, log: log}
}

// Fetch returns the cached value for key or computes it with load.
// Backend errors degrade to a miss; load errors are returned and nothing
// is cached.
func (c *Cache[V]) Fetch(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	gen, err := c.backend.Generation(ctx)
	if err != nil {
		c.log.Warn("list cache generation lookup failed", zap.Error(err))
		call(c.hooks.Miss)
		return load(ctx)
	}

	if v, ok, err := c.backend.Get(ctx, gen, key); err != nil {
		c.log.Warn("list cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		call(c.hooks.Hit)
		return v, nil
	}
	call(c.hooks.Miss)

	// The shared load must outlive any single caller: one client going away
	// must not fail the others waiting on the same key.
	ch := c.flight.DoChan(fmt.Sprintf("%d|%s", gen, key), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
		defer cancel()
		v, err := load(lctx)
		if err != nil {
			return v, err
		}
		if err := c.backend.Set(lctx, gen, key, v); err != nil {
			c.log.Warn("list cache set failed", zap.String("key", key), zap.Error(err))
		}
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Invalidate drops every cached page.
func (c *Cache[V]) Invalidate(ctx context.Context) {
	if err := c.backend.Purge(ctx); err != nil {
		c.log.Error("list cache purge failed", zap.Error(err))
		call(c.hooks.PurgeFailed)
		return
	}
	call(c.hooks.Purge)
}

func call(f func()) {
	if f != nil {
		f()
	}
}
