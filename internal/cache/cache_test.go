package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Result float64  `json:"result"`
	Steps  []string `json:"steps"`
}

func setupTestCache(t *testing.T, ttl time.Duration) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test:", ttl), mr
}

func TestNew_Defaults(t *testing.T) {
	c := New(nil, "", 0)
	assert.Equal(t, DefaultPrefix, c.prefix)
	assert.Equal(t, DefaultTTL, c.ttl)
}

func TestResultCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c, mr := setupTestCache(t, time.Minute)

	var got entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := entry{Result: 10, Steps: []string{"2 * 3 = 6", "6 + 4 = 10"}}
	require.NoError(t, c.Set(ctx, "k", want))
	assert.True(t, mr.Exists("test:k"))

	found, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Sets)
	assert.InDelta(t, 50.0, stats.HitRate, 1e-9)
}

func TestResultCache_Expires(t *testing.T) {
	ctx := context.Background()
	c, mr := setupTestCache(t, time.Minute)

	require.NoError(t, c.Set(ctx, "k", entry{Result: 1}))
	mr.FastForward(2 * time.Minute)

	var got entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResultCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)
	require.NoError(t, mr.Set("test:k", "{not json"))

	var got entry
	found, err := c.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, found)
	assert.Equal(t, uint64(1), c.Stats().Errors)
}

func TestResultCache_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	c, mr := setupTestCache(t, time.Minute)
	require.NoError(t, mr.Set("other:k", "keep"))

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, entry{}))
	}
	require.NoError(t, c.Delete(ctx, "a"))
	assert.False(t, mr.Exists("test:a"))

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("other:k"))
	assert.Equal(t, uint64(3), c.Stats().Deletes)
}

func TestResultCache_Unavailable(t *testing.T) {
	c, mr := setupTestCache(t, time.Minute)
	mr.Close()

	require.Error(t, c.Ping(context.Background()))
	err := c.Set(context.Background(), "k", entry{})
	assert.Error(t, err)
}
