package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetupTestRedis returns a Redis client for integration tests, skipping the
// test when no server is reachable. The address comes from TEST_REDIS_ADDR,
// defaulting to localhost:6379. Set REQUIRE_REDIS=true in CI to fail instead
// of skipping.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if os.Getenv("REQUIRE_REDIS") == "true" {
			t.Fatalf("Redis not available at %s: %v", addr, err)
		}
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}
