//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisContainerConfig holds configuration for the Redis test container
type RedisContainerConfig struct {
	// ImageTag specifies the Redis version (default: "7-alpine")
	ImageTag string
	// StartupTimeout for container initialization (default: 60 seconds)
	StartupTimeout time.Duration
}

// DefaultRedisConfig returns the default container configuration.
func DefaultRedisConfig() *RedisContainerConfig {
	return &RedisContainerConfig{
		ImageTag:       "7-alpine",
		StartupTimeout: 60 * time.Second,
	}
}

// RedisContainer wraps the testcontainers Redis module
type RedisContainer struct {
	container *redis.RedisContainer
	uri       string
}

// StartRedisContainer starts Redis and resolves its redis:// connection string.
// A nil cfg uses DefaultRedisConfig. The test is skipped when Docker is not available.
func StartRedisContainer(ctx context.Context, t *testing.T, cfg *RedisContainerConfig) (*RedisContainer, error) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultRedisConfig()
	}

	if !isDockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
		return nil, nil
	}

	c, err := redis.Run(ctx,
		fmt.Sprintf("redis:%s", cfg.ImageTag),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(cfg.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}

	uri, err := c.ConnectionString(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get Redis connection string: %w", err)
	}

	t.Logf("Redis container started at %s", uri)
	return &RedisContainer{container: c, uri: uri}, nil
}

// MustStartRedisContainer is StartRedisContainer that fails the test on error and
// terminates the container when the test finishes.
func MustStartRedisContainer(ctx context.Context, t *testing.T, cfg *RedisContainerConfig) *RedisContainer {
	t.Helper()

	c, err := StartRedisContainer(ctx, t, cfg)
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	return c.WithCleanup(t)
}

// ConnectionString returns the redis:// URL of the container
func (r *RedisContainer) ConnectionString() string {
	return r.uri
}

// Terminate stops and removes the container
func (r *RedisContainer) Terminate(ctx context.Context) error {
	if r.container == nil {
		return nil
	}
	return r.container.Terminate(ctx)
}

// WithCleanup registers container termination with t.Cleanup
func (r *RedisContainer) WithCleanup(t *testing.T) *RedisContainer {
	t.Helper()
	t.Cleanup(func() {
		if err := r.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate Redis container: %v", err)
		}
	})
	return r
}
