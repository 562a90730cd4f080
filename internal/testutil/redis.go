package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisImage = "redis:7-alpine"

const envRedisAddr = "COMPASS_TEST_REDIS_ADDR"

var (
	redisOnce sync.Once
	redisAddr string
	redisErr  error
)

// SetupTestRedis returns a client for COMPASS_TEST_REDIS_ADDR, or for a
// disposable container when COMPASS_TEST_DOCKER=1. Otherwise the test is
// skipped. Callers should namespace their keys; the server is shared.
func SetupTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	addr := os.Getenv(envRedisAddr)
	if addr == "" && os.Getenv(envDocker) != "1" {
		t.Skipf("no Redis: set %s or %s=1", envRedisAddr, envDocker)
	}

	redisOnce.Do(func() {
		if addr != "" {
			redisAddr = addr
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		redisAddr, redisErr = startContainer(ctx, redisImage, "6379/tcp", "Ready to accept connections")
	})
	if redisErr != nil {
		t.Skipf("Redis unavailable: %v", redisErr)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("Redis ping %s: %v", redisAddr, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}
