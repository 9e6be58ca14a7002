package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-dashboard/internal/config"
)

// TestRedisStore runs against a live server when CACHE_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CACHE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CACHE_TEST_REDIS_ADDR not set")
	}

	s, err := NewRedisStore(config.CacheConfig{RedisAddr: addr, KeyPrefix: "test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	type entry struct {
		Name  string
		Count int
	}

	require.NoError(t, s.Set(ctx, "bills:2024-03", entry{"march", 3}, time.Minute))
	require.NoError(t, s.Set(ctx, "bills:2024-04", entry{"april", 4}, time.Minute))
	require.NoError(t, s.Set(ctx, "products:all", entry{"all", 9}, 0))

	var got entry
	ok, err := s.Get(ctx, "bills:2024-03", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry{"march", 3}, got)

	require.NoError(t, s.DeletePrefix(ctx, "bills:"))
	ok, err = s.Get(ctx, "bills:2024-04", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Get(ctx, "products:all", &got)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "products:all"))
	ok, err = s.Get(ctx, "products:all", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
