package statscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advisorhq/lead-intake-platform/internal/leads"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

type countingSource struct {
	calls int
	stats leads.Stats
}

func (s *countingSource) Stats(ctx context.Context) (*leads.Stats, error) {
	s.calls++
	out := s.stats
	return &out, nil
}

func newTestCache(t *testing.T, source leads.StatsProvider) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(source, client, time.Minute, logging.Default()), mr
}

func TestStats_CachesSecondRead(t *testing.T) {
	source := &countingSource{stats: leads.Stats{Total: 4, Hot: 2, Warm: 1, Cold: 1}}
	cache, _ := newTestCache(t, source)
	ctx := context.Background()

	first, err := cache.Stats(ctx)
	require.NoError(t, err)
	second, err := cache.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls, "second read should hit the cache")
	assert.Equal(t, first, second)
	assert.Equal(t, int64(2), second.Hot)
}

func TestStats_InvalidateForcesRefill(t *testing.T) {
	source := &countingSource{stats: leads.Stats{Total: 1}}
	cache, _ := newTestCache(t, source)
	ctx := context.Background()

	_, err := cache.Stats(ctx)
	require.NoError(t, err)

	source.stats.Total = 2
	cache.Invalidate(ctx)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, 2, source.calls)
}

func TestStats_TTLExpiryRefills(t *testing.T) {
	source := &countingSource{stats: leads.Stats{Total: 1}}
	cache, mr := newTestCache(t, source)
	ctx := context.Background()

	_, err := cache.Stats(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls, "expired entry should be refilled from source")
}

func TestStats_NilClientPassThrough(t *testing.T) {
	source := &countingSource{stats: leads.Stats{Total: 7}}
	cache := New(source, nil, time.Minute, logging.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		stats, err := cache.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), stats.Total)
	}
	assert.Equal(t, 3, source.calls, "every read should hit the source without redis")

	// Invalidate must be a no-op.
	cache.Invalidate(ctx)
}
