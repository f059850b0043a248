//go:build integration

package containers

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance.
type RedisContainer struct {
	Container testcontainers.Container
	Addr      string
	Client    *redis.Client
}

var (
	redisOnce     sync.Once
	redisShared   *RedisContainer
	redisStartErr error
)

// GetRedis returns a process-wide shared Redis container. Suites flush the
// database between tests.
func GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	redisOnce.Do(func() {
		redisShared, redisStartErr = startRedis()
	})
	if redisStartErr != nil {
		t.Fatalf("failed to start redis container: %v", redisStartErr)
	}
	return redisShared
}

func startRedis() (*RedisContainer, error) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, err
	}

	addr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &RedisContainer{Container: container, Addr: addr, Client: client}, nil
}

// Flush clears all keys between tests.
func (c *RedisContainer) Flush(ctx context.Context) error {
	return c.Client.FlushDB(ctx).Err()
}
