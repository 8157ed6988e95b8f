package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

// redisCandidates are probed in order when REDIS_ADDR is unset: compose service name, default
// port, then the port the local test stack publishes.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// SetupTestRedis returns a client on an empty Redis DB (TEST_REDIS_DB, default 1), closed
// when t finishes. It skips t when no Redis answers.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	addrs := redisCandidates
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		addrs = []string{addr}
	}
	dbIndex := 1
	if i, err := strconv.Atoi(os.Getenv("TEST_REDIS_DB")); err == nil && i >= 0 {
		dbIndex = i
	}

	for _, addr := range addrs {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err := client.FlushDB(ctx).Err()
		cancel()
		if err != nil {
			t.Logf("redis at %s: %v", addr, err)
			closeQuietly(t, "redis client", client)
			continue
		}
		t.Cleanup(func() { closeQuietly(t, "redis client", client) })
		return client
	}
	unavailable(t, "TEST_REQUIRE_REDIS", "redis not available for testing")
	return nil
}
