// Package testutil starts the external services the integration tests need.
package testutil

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisImage            = "redis:7-alpine"
	redisStartupTimeout   = 60 * time.Second
	redisTerminateTimeout = 5 * time.Second
	redisCtxTimeout       = 10 * time.Second
	redisMemoryLimit      = 128 * 1024 * 1024 // 128MB
	redisTestPoolSize     = 10
)

var (
	sharedRedis   *RedisContainer
	sharedRedisMu sync.Mutex
)

// RedisContainer is a Redis server started for the current test binary.
type RedisContainer struct {
	Container testcontainers.Container
	Addr      string
}

// SharedRedis returns the Redis container of this test binary, starting it on first use
// and replacing it when it has stopped.
func SharedRedis(ctx context.Context) (*RedisContainer, error) {
	sharedRedisMu.Lock()
	defer sharedRedisMu.Unlock()

	if sharedRedis != nil {
		state, err := sharedRedis.Container.State(ctx)
		if err == nil && state.Running {
			return sharedRedis, nil
		}
		terminate(sharedRedis.Container)
		sharedRedis = nil
	}

	startCtx, cancel := context.WithTimeout(context.Background(), redisStartupTimeout)
	defer cancel()

	rc, err := startRedis(startCtx)
	if err != nil {
		return nil, err
	}
	sharedRedis = rc
	return rc, nil
}

func startRedis(ctx context.Context) (*RedisContainer, error) {
	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			HostConfigModifier: func(hc *container.HostConfig) {
				hc.Memory = redisMemoryLimit
				hc.MemorySwap = redisMemoryLimit
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections").WithStartupTimeout(redisStartupTimeout),
				wait.ForListeningPort("6379/tcp").WithStartupTimeout(redisStartupTimeout),
			),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		terminate(cont)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := cont.MappedPort(ctx, "6379")
	if err != nil {
		terminate(cont)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &RedisContainer{Container: cont, Addr: net.JoinHostPort(host, port.Port())}, nil
}

func terminate(cont testcontainers.Container) {
	if cont == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTerminateTimeout)
	defer cancel()
	_ = cont.Terminate(ctx)
}

// SetupTestRedis returns a client of the shared container. The database is flushed
// and the client closed when the test ends.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), redisCtxTimeout)
	defer cancel()

	rc, err := SharedRedis(ctx)
	if err != nil {
		t.Fatalf("Failed to get Redis container: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: rc.Addr, PoolSize: redisTestPoolSize})
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("Failed to ping Redis: %v", err)
	}

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), redisCtxTimeout)
		defer cleanupCancel()
		_ = client.FlushDB(cleanupCtx).Err()
		_ = client.Close()
	})

	return client
}

// SetupTestRedisWithPrefix also returns a key prefix unique to the test,
// for channels and keys that must not collide with parallel tests.
func SetupTestRedisWithPrefix(t *testing.T) (*redis.Client, string) {
	t.Helper()

	prefix := "test:" + strings.ReplaceAll(t.Name(), "/", ":") + ":"
	return SetupTestRedis(t), prefix
}

// CleanupSharedRedis terminates the shared container. Call it from TestMain.
func CleanupSharedRedis() {
	sharedRedisMu.Lock()
	defer sharedRedisMu.Unlock()

	if sharedRedis != nil {
		terminate(sharedRedis.Container)
		sharedRedis = nil
	}
}
