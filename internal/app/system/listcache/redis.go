package listcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Redis is a Backend shared by every replica. Pages live under
// "<prefix>:<generation>:<key>" and expire on their own; Purge is a single
// INCR of "<prefix>:gen", which orphans the old namespace.
type Redis[V any] struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a Redis backend using keys under prefix.
func NewRedis[V any](rdb redis.UniversalClient, prefix string, ttl time.Duration) *Redis[V] {
	return &Redis[V]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis[V]) genKey() string { return r.prefix + ":gen" }

func (r *Redis[V]) pageKey(gen uint64, key string) string {
	return fmt.Sprintf("%s:%d:%s", r.prefix, gen, key)
}

func (r *Redis[V]) Generation(ctx context.Context) (uint64, error) {
	gen, err := r.rdb.Get(ctx, r.genKey()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis[V]) Get(ctx context.Context, gen uint64, key string) (V, bool, error) {
	var v V
	raw, err := r.rdb.Get(ctx, r.pageKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, err
	}
	return v, true, nil
}

func (r *Redis[V]) Set(ctx context.Context, gen uint64, key string, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.pageKey(gen, key), raw, r.ttl).Err()
}

func (r *Redis[V]) Purge(ctx context.Context) error {
	return r.rdb.Incr(ctx, r.genKey()).Err()
}
