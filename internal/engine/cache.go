package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/shuttlego/shuttlecore/shuttledb"
)

// cacheKey identifies one memoized endpoint index.
type cacheKey struct {
	SiteID    string
	DayType   shuttledb.DayType
	Direction Direction
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.SiteID, k.DayType, k.Direction)
}

// endpointCache memoizes endpoint indexes for the life of the process.
// Entries are immutable once stored; the underlying data only changes with a
// process restart.
type endpointCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*endpointIndex

	// group guarantees exactly one build per key under concurrent first
	// accesses.
	group singleflight.Group

	// builds counts actual builds performed; tests assert on it.
	builds atomic.Int64
}

func newEndpointCache() *endpointCache {
	return &endpointCache{entries: make(map[cacheKey]*endpointIndex)}
}

// getOrBuild returns the cached index for the key, building it exactly once
// when absent. Concurrent first callers share one build and all observe the
// same result.
func (c *endpointCache) getOrBuild(key cacheKey, build func() (*endpointIndex, error)) (*endpointIndex, bool, error) {
	c.mu.RLock()
	entry := c.entries[key]
	c.mu.RUnlock()
	if entry != nil {
		return entry, true, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// Recheck inside the flight: an earlier flight for this key may
		// have stored the entry between our read and this call.
		c.mu.RLock()
		existing := c.entries[key]
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		built, err := build()
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)

		c.mu.Lock()
		c.entries[key] = built
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*endpointIndex), false, nil
}

// buildCount returns how many builds have run. Used by tests and metrics.
func (c *endpointCache) buildCount() int64 {
	return c.builds.Load()
}

// endpointIndexFor is the engine-level entry point: metrics-instrumented
// get-or-build for one (site, day type, direction) key.
func (e *Engine) endpointIndexFor(ctx context.Context, siteID string, dayType shuttledb.DayType, direction Direction) (*endpointIndex, error) {
	if !dayType.Valid() {
		return nil, ErrUnknownDayType
	}
	if _, err := direction.RouteType(); err != nil {
		return nil, err
	}

	key := cacheKey{SiteID: siteID, DayType: dayType, Direction: direction}
	idx, hit, err := e.cache.getOrBuild(key, func() (*endpointIndex, error) {
		built, err := e.buildEndpointIndex(ctx, siteID, dayType, direction)
		if err == nil && e.metrics != nil {
			e.metrics.EndpointCacheBuilds.Inc()
		}
		return built, err
	})
	if err != nil {
		return nil, err
	}
	if hit && e.metrics != nil {
		e.metrics.EndpointCacheHits.Inc()
	}
	return idx, nil
}
