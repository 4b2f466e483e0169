package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordCacheHit(key string)  { m.Called(key) }
func (m *mockRecorder) RecordCacheMiss(key string) { m.Called(key) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []string{"a", "b"}, 10*time.Minute))

	var got []string
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	clock.Advance(10 * time.Minute)
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewMemory(WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, 0))
	clock.Advance(24 * 365 * time.Hour)

	var got int
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestMemoryDelete(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))

	var got string
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrCreateCachesResult(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("RecordCacheMiss", "list").Once()
	rec.On("RecordCacheHit", "list").Twice()

	m := NewManager(NewMemory(), rec, nil)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"clarity"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrCreate(ctx, m, "list", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, []string{"clarity"}, got)
	}
	assert.Equal(t, 1, calls)
	rec.AssertExpectations(t)
}

func TestGetOrCreateErrorNotCached(t *testing.T) {
	m := NewManager(NewMemory(), nil, nil)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := GetOrCreate(ctx, m, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := GetOrCreate(ctx, m, "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestGetOrCreateCollapsesConcurrentMisses(t *testing.T) {
	m := NewManager(NewMemory(), nil, nil)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrCreate(ctx, m, "k", time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	m := NewManager(NewMemory(), nil, nil)
	ctx := context.Background()

	n := 0
	load := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	first, err := GetOrCreate(ctx, m, "k", time.Hour, load)
	require.NoError(t, err)
	require.NoError(t, m.Invalidate(ctx, "k"))
	second, err := GetOrCreate(ctx, m, "k", time.Hour, load)
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	c := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	type manifest struct {
		Folder string `json:"folder"`
	}
	require.NoError(t, c.Set(ctx, "installed-theme-manifests", []manifest{{Folder: "clarity"}}, 10*time.Minute))
	assert.True(t, mr.Exists("canopy:test:cache:installed-theme-manifests"))

	var got []manifest
	ok, err := c.Get(ctx, "installed-theme-manifests", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "clarity", got[0].Folder)

	mr.FastForward(10 * time.Minute)
	ok, err = c.Get(ctx, "installed-theme-manifests", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "missing"))
}
