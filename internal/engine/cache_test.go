package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttlego/shuttlecore/shuttledb"
)

func TestEndpointCacheBuildsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newCommuteFixture(t)
	e := newTestEngine(t, f.client)

	const callers = 32
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.EndpointOptions(ctx, "S1", shuttledb.DayTypeWeekday, DirectionDepart, "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int64(1), e.cache.buildCount())

	// A different key builds separately; a repeat hits the cache.
	_, err := e.EndpointOptions(ctx, "S1", shuttledb.DayTypeWeekday, DirectionArrive, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.cache.buildCount())

	_, err = e.EndpointOptions(ctx, "S1", shuttledb.DayTypeWeekday, DirectionDepart, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.cache.buildCount())
}

func TestEndpointCacheKeysAreIndependent(t *testing.T) {
	cache := newEndpointCache()

	buildA := func() (*endpointIndex, error) { return emptyEndpointIndex(), nil }

	idx1, hit, err := cache.getOrBuild(cacheKey{"S1", shuttledb.DayTypeWeekday, DirectionDepart}, buildA)
	require.NoError(t, err)
	assert.False(t, hit)

	idx2, hit, err := cache.getOrBuild(cacheKey{"S1", shuttledb.DayTypeWeekday, DirectionDepart}, buildA)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, idx1, idx2)

	_, hit, err = cache.getOrBuild(cacheKey{"S2", shuttledb.DayTypeWeekday, DirectionDepart}, buildA)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.Equal(t, int64(2), cache.buildCount())
}

func TestEndpointCacheBuildErrorIsNotCached(t *testing.T) {
	cache := newEndpointCache()
	key := cacheKey{"S1", shuttledb.DayTypeWeekday, DirectionDepart}

	failures := 0
	_, _, err := cache.getOrBuild(key, func() (*endpointIndex, error) {
		failures++
		return nil, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, failures)
	assert.Equal(t, int64(0), cache.buildCount())

	// The failed build left nothing behind; the next call builds again.
	idx, hit, err := cache.getOrBuild(key, func() (*endpointIndex, error) {
		return emptyEndpointIndex(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, idx)
	assert.Equal(t, int64(1), cache.buildCount())
}

func TestEndpointIndexForValidatesInputs(t *testing.T) {
	ctx := context.Background()
	f := newCommuteFixture(t)
	e := newTestEngine(t, f.client)

	_, err := e.endpointIndexFor(ctx, "S1", "someday", DirectionDepart)
	assert.ErrorIs(t, err, ErrUnknownDayType)

	_, err = e.endpointIndexFor(ctx, "S1", shuttledb.DayTypeWeekday, "sideways")
	assert.ErrorIs(t, err, ErrUnknownDirection)
}
