//go:build integration

package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/ridekit/logger"
	"github.com/gaborage/ridekit/testing/containers"
)

func TestRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	uri := containers.MustStartRedisContainer(ctx, t, nil).ConnectionString()

	store, err := NewRedisStore(ctx, RedisConfig{URL: uri, Prefix: "ridekit:test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	t.Run("get absent", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, DefaultKey, "tok"))
		v, ok, err := store.Get(ctx, DefaultKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "tok", v)

		require.NoError(t, store.Delete(ctx, DefaultKey))
		_, ok, err = store.Get(ctx, DefaultKey)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("accessor over redis", func(t *testing.T) {
		a := NewAccessor(store, logger.Nop())
		a.Set("rotated")
		a.Flush()

		cred, ok, err := a.Get(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "rotated", cred.Value())
	})

	t.Run("ttl expires credential", func(t *testing.T) {
		ttlStore, err := NewRedisStore(ctx, RedisConfig{URL: uri, Prefix: "ridekit:ttl:", TTL: time.Second})
		require.NoError(t, err)
		defer ttlStore.Close()

		require.NoError(t, ttlStore.Set(ctx, DefaultKey, "short-lived"))
		assert.Eventually(t, func() bool {
			_, ok, err := ttlStore.Get(ctx, DefaultKey)
			return err == nil && !ok
		}, 5*time.Second, 100*time.Millisecond)
	})
}
