package ttlcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissAndSet(t *testing.T) {
	c := New[string](time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestExpiry(t *testing.T) {
	c := New[int](10 * time.Millisecond)
	c.Set("k", 42)

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should expire after TTL")
}

func TestInvalidate(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("k", 1)
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32

	compute := func(context.Context) (int, error) {
		calls.Add(1)
		return 7, nil
	}

	got, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, int32(1), calls.Load(), "second call must hit the cache")
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New[int](time.Minute)
	boom := errors.New("boom")
	var calls atomic.Int32

	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
		calls.Add(1)
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
		calls.Add(1)
		return 9, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, got)
	assert.Equal(t, int32(2), calls.Load(), "failed computations must not be cached")
}

func TestGetOrComputeDeduplicatesConcurrentCallers(t *testing.T) {
	c := New[int](time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 5, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]int, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "k", compute)
		}(i)
	}

	// Give all workers time to reach the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 5, results[i])
	}
	assert.Equal(t, int32(1), calls.Load(), "concurrent callers must share one computation")
}

func TestKeysAreIndependent(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Invalidate("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", got)
}
