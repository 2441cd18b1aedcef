package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleFlightCache_CollapsesConcurrentLoads(t *testing.T) {
	mem := NewMemoryCache(DefaultMemoryCacheConfig())
	sfc := NewSingleFlightCache(mem, nil)

	var loadCount int64
	load := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt64(&loadCount, 1)
		time.Sleep(10 * time.Millisecond)
		return []byte("result"), nil
	}

	var wg sync.WaitGroup
	results := make([][]byte, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, _, err := sfc.GetOrLoad(context.Background(), "fp-1", time.Minute, load)
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&loadCount), "20 concurrent callers for the same fingerprint must trigger exactly one load")
	for _, r := range results {
		assert.Equal(t, []byte("result"), r)
	}
}

func TestSingleFlightCache_HitsCacheOnSecondCall(t *testing.T) {
	mem := NewMemoryCache(DefaultMemoryCacheConfig())
	sfc := NewSingleFlightCache(mem, nil)

	var loadCount int64
	load := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt64(&loadCount, 1)
		return []byte("v"), nil
	}

	_, hit, err := sfc.GetOrLoad(context.Background(), "fp-2", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = sfc.GetOrLoad(context.Background(), "fp-2", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(1), atomic.LoadInt64(&loadCount))
}

func TestSingleFlightCache_NonCacheableResultNeverPersisted(t *testing.T) {
	mem := NewMemoryCache(DefaultMemoryCacheConfig())
	sfc := NewSingleFlightCache(mem, func(value []byte) bool { return true })

	load := func(ctx context.Context) ([]byte, error) { return []byte("ephemeral"), nil }

	_, hit, err := sfc.GetOrLoad(context.Background(), "fp-3", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, hit)

	cached, err := mem.Get(context.Background(), "fp-3")
	require.NoError(t, err)
	assert.Nil(t, cached, "a non-cacheable result must never be written to the backing cache")
}

func TestSingleFlightCache_LoadErrorPropagatesToAllWaiters(t *testing.T) {
	mem := NewMemoryCache(DefaultMemoryCacheConfig())
	sfc := NewSingleFlightCache(mem, nil)

	boom := assert.AnError
	load := func(ctx context.Context) ([]byte, error) { return nil, boom }

	_, _, err := sfc.GetOrLoad(context.Background(), "fp-4", time.Minute, load)
	assert.ErrorIs(t, err, boom)
}
