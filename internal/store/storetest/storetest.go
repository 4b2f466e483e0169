// Package storetest holds the conformance suite every store.Backend must pass.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Factory returns a fresh, empty backend for one subtest
type Factory func(t *testing.T) store.Backend

// Run executes the conformance suite against backends produced by newBackend
func Run(t *testing.T, newBackend Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newBackend(t)) })
	t.Run("CreateConflict", func(t *testing.T) { testCreateConflict(t, newBackend(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newBackend(t)) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, newBackend(t)) })
	t.Run("MutateMissing", func(t *testing.T) { testMutateMissing(t, newBackend(t)) })
	t.Run("MutateAbort", func(t *testing.T) { testMutateAbort(t, newBackend(t)) })
	t.Run("MutateConcurrentSameKey", func(t *testing.T) { testMutateConcurrent(t, newBackend(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newBackend(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newBackend(t).Ping(context.Background())) })
}

// RunIndependentKeys checks that a Mutate held open on one key does not block
// a Mutate on another. Backends that serialize all writers skip it.
func RunIndependentKeys(t *testing.T, newBackend Factory) {
	ctx := context.Background()
	b := newBackend(t)
	for _, key := range []string{"left", "right"} {
		_, err := b.Create(ctx, &store.Meta{Key: key, Value: "0", Type: store.MetaTypeWidgetAreaBySystem})
		require.NoError(t, err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := b.Mutate(ctx, "left", store.MetaTypeWidgetAreaBySystem, func(v string) (string, error) {
			select {
			case <-entered:
			default:
				close(entered)
			}
			<-release
			return "1", nil
		})
		done <- err
	}()
	<-entered

	tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := b.Mutate(tctx, "right", store.MetaTypeWidgetAreaBySystem, func(string) (string, error) { return "1", nil })
	close(release)
	require.NoError(t, err)
	require.NoError(t, <-done)

	for _, key := range []string{"left", "right"} {
		got, err := b.Get(ctx, key, store.MetaTypeWidgetAreaBySystem)
		require.NoError(t, err)
		assert.Equal(t, "1", got.Value, key)
	}
}

func testCreateAndGet(t *testing.T, b store.Backend) {
	ctx := context.Background()

	created, err := b.Create(ctx, &store.Meta{Key: "classic", Type: store.MetaTypeTheme})
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))

	got, err := b.Get(ctx, "classic", store.MetaTypeTheme)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	byID, err := b.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	_, err = b.Get(ctx, "classic", store.MetaTypeWidget)
	assert.True(t, errs.IsNotFound(err))

	_, err = b.GetByID(ctx, created.ID+1000)
	assert.True(t, errs.IsNotFound(err))
}

func testCreateConflict(t *testing.T, b store.Backend) {
	ctx := context.Background()

	first, err := b.Create(ctx, &store.Meta{Key: "footer", Value: `{"id":"footer"}`, Type: store.MetaTypeWidgetAreaByTheme})
	require.NoError(t, err)

	_, err = b.Create(ctx, &store.Meta{Key: "footer", Value: "other", Type: store.MetaTypeWidgetAreaByTheme})
	assert.True(t, errs.IsConflict(err))

	// the same key under another type is a different record
	second, err := b.Create(ctx, &store.Meta{Key: "footer", Type: store.MetaTypeWidgetAreaBySystem})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := b.Get(ctx, "footer", store.MetaTypeWidgetAreaByTheme)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"footer"}`, got.Value)
}

func testUpdate(t *testing.T, b store.Backend) {
	ctx := context.Background()

	m, err := b.Create(ctx, &store.Meta{Key: "blogtags-1", Value: "a", Type: store.MetaTypeWidget})
	require.NoError(t, err)

	m.Value = "b"
	require.NoError(t, b.Update(ctx, m))

	got, err := b.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Value)

	err = b.Update(ctx, &store.Meta{ID: m.ID + 1000, Key: "x", Value: "c", Type: store.MetaTypeWidget})
	assert.True(t, errs.IsNotFound(err))
}

func testDeleteIdempotent(t *testing.T, b store.Backend) {
	ctx := context.Background()

	m, err := b.Create(ctx, &store.Meta{Key: "w", Type: store.MetaTypeWidget})
	require.NoError(t, err)

	require.NoError(t, b.Delete(ctx, m.ID))
	require.NoError(t, b.Delete(ctx, m.ID))

	_, err = b.GetByID(ctx, m.ID)
	assert.True(t, errs.IsNotFound(err))
	_, err = b.Get(ctx, "w", store.MetaTypeWidget)
	assert.True(t, errs.IsNotFound(err))

	// the key is free again
	_, err = b.Create(ctx, &store.Meta{Key: "w", Type: store.MetaTypeWidget})
	require.NoError(t, err)
}

func testMutateMissing(t *testing.T, b store.Backend) {
	_, err := b.Mutate(context.Background(), "nope", store.MetaTypeWidgetAreaBySystem, func(v string) (string, error) {
		return v + "x", nil
	})
	assert.True(t, errs.IsNotFound(err))
}

func testMutateAbort(t *testing.T, b store.Backend) {
	ctx := context.Background()
	_, err := b.Create(ctx, &store.Meta{Key: "area", Value: "keep", Type: store.MetaTypeWidgetAreaBySystem})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = b.Mutate(ctx, "area", store.MetaTypeWidgetAreaBySystem, func(string) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := b.Get(ctx, "area", store.MetaTypeWidgetAreaBySystem)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Value)
}

func testMutateConcurrent(t *testing.T, b store.Backend) {
	ctx := context.Background()
	const workers = 16
	const perWorker = 5

	for _, key := range []string{"left", "right"} {
		_, err := b.Create(ctx, &store.Meta{Key: key, Value: "0", Type: store.MetaTypeWidgetAreaBySystem})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		key := "left"
		if i%2 == 1 {
			key = "right"
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := b.Mutate(ctx, key, store.MetaTypeWidgetAreaBySystem, func(v string) (string, error) {
					n, err := strconv.Atoi(v)
					if err != nil {
						return "", err
					}
					return strconv.Itoa(n + 1), nil
				})
				if err != nil {
					errCh <- err
				}
			}
		}(key)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	for _, key := range []string{"left", "right"} {
		got, err := b.Get(ctx, key, store.MetaTypeWidgetAreaBySystem)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(workers/2*perWorker), got.Value, key)
	}
}

func testList(t *testing.T, b store.Backend) {
	ctx := context.Background()

	var ids []int64
	for _, key := range []string{"a", "b", "c"} {
		m, err := b.Create(ctx, &store.Meta{Key: key, Type: store.MetaTypeWidget})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	_, err := b.Create(ctx, &store.Meta{Key: "classic", Type: store.MetaTypeTheme})
	require.NoError(t, err)

	got, err := b.List(ctx, store.MetaTypeWidget)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, ids[i], m.ID)
		assert.Equal(t, store.MetaTypeWidget, m.Type)
	}

	empty, err := b.List(ctx, store.MetaTypeWidgetAreaByTheme)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
