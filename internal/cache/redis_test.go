package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(srv.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMissingKey(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSetAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"cited": 3}, time.Minute))

	data, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cited":3}`, string(data))
}

func TestGetOrSetGeneratesOnce(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	gen := func() (any, error) {
		calls++
		return "stats-payload", nil
	}

	first, err := c.GetOrSet(ctx, CitationStatsKey(), time.Minute, gen)
	require.NoError(t, err)
	assert.Equal(t, "stats-payload", string(first))

	second, err := c.GetOrSet(ctx, CitationStatsKey(), time.Minute, gen)
	require.NoError(t, err)
	assert.Equal(t, "stats-payload", string(second))
	assert.Equal(t, 1, calls, "second read must come from cache")
}

func TestGetOrSetPropagatesGenerationError(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("db down")
	_, err := c.GetOrSet(ctx, "k", time.Minute, func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound, "failed generations are not cached")
}
