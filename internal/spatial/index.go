// Package spatial maintains an in-memory R-tree over stop coordinates and
// answers nearest-stop queries with progressive bounding-box expansion.
//
// The index is built once at startup from the immutable snapshot and is
// read-only afterwards, so concurrent queries need no locking.
package spatial

import (
	"context"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/shuttlego/shuttlecore/internal/geo"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

const (
	// initialHalfWidthDeg is roughly 1.1 km of latitude.
	initialHalfWidthDeg = 0.01
	// maxExpansionRounds caps worst-case latency for points far from any
	// stop: 0.01° doubled seven times is ~2.56° half-width.
	maxExpansionRounds = 8
)

// Scope restricts candidates to stops serving one (site, route type, day type)
// combination. All fields are required; use FindNearbyGlobal for an unscoped
// search.
type Scope struct {
	SiteID    string
	RouteType shuttledb.RouteType
	DayType   shuttledb.DayType
}

// StopDistance is a candidate stop with its exact great-circle distance from
// the query point.
type StopDistance struct {
	Stop           shuttledb.Stop
	DistanceMeters float64
}

// Index is the spatial index over every stop in the snapshot.
type Index struct {
	tree   rtree.RTree
	scopes map[Scope]map[int64]struct{}
}

// BuildIndex loads all stops and their scope memberships into a fresh index.
func BuildIndex(ctx context.Context, queries *shuttledb.Queries) (*Index, error) {
	stops, err := queries.ListStops(ctx)
	if err != nil {
		return nil, err
	}

	idx := &Index{scopes: make(map[Scope]map[int64]struct{})}

	// For points, min and max are the same [lat, lon].
	for _, stop := range stops {
		idx.tree.Insert(
			[2]float64{stop.Lat, stop.Lon},
			[2]float64{stop.Lat, stop.Lon},
			stop,
		)
	}

	scoped, err := queries.ListScopedStops(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range scoped {
		key := Scope{SiteID: s.SiteID, RouteType: s.RouteType, DayType: s.DayType}
		set := idx.scopes[key]
		if set == nil {
			set = make(map[int64]struct{})
			idx.scopes[key] = set
		}
		set[s.StopID] = struct{}{}
	}

	return idx, nil
}

// FindNearby returns up to maxStops stops serving the scope, ordered by true
// great-circle distance from the point. The bounding box only bounds the
// candidate set cheaply; ordering is always by exact distance. A region with
// no stops yields an empty slice.
func (idx *Index) FindNearby(lat, lon float64, maxStops int, scope Scope) ([]StopDistance, error) {
	if err := geo.ValidatePoint(lat, lon); err != nil {
		return nil, err
	}
	allowed, ok := idx.scopes[scope]
	if !ok {
		// No stop anywhere serves this scope.
		return []StopDistance{}, nil
	}
	return idx.search(lat, lon, maxStops, allowed), nil
}

// FindNearbyGlobal is the explicit unscoped variant of FindNearby,
// considering every stop in the snapshot.
func (idx *Index) FindNearbyGlobal(lat, lon float64, maxStops int) ([]StopDistance, error) {
	if err := geo.ValidatePoint(lat, lon); err != nil {
		return nil, err
	}
	return idx.search(lat, lon, maxStops, nil), nil
}

func (idx *Index) search(lat, lon float64, maxStops int, allowed map[int64]struct{}) []StopDistance {
	if maxStops <= 0 {
		return []StopDistance{}
	}

	var candidates []shuttledb.Stop
	delta := initialHalfWidthDeg
	for round := 0; round < maxExpansionRounds; round++ {
		bounds := geo.CalculateBoundsFromSpan(lat, lon, delta, delta)
		candidates = idx.queryBounds(bounds, allowed)
		if len(candidates) >= maxStops {
			break
		}
		delta *= 2
	}

	results := make([]StopDistance, 0, len(candidates))
	for _, stop := range candidates {
		results = append(results, StopDistance{
			Stop:           stop,
			DistanceMeters: geo.Distance(lat, lon, stop.Lat, stop.Lon),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceMeters != results[j].DistanceMeters {
			return results[i].DistanceMeters < results[j].DistanceMeters
		}
		return results[i].Stop.ID < results[j].Stop.ID
	})
	if len(results) > maxStops {
		results = results[:maxStops]
	}
	return results
}

func (idx *Index) queryBounds(bounds geo.CoordinateBounds, allowed map[int64]struct{}) []shuttledb.Stop {
	var results []shuttledb.Stop
	idx.tree.Search(
		[2]float64{bounds.MinLat, bounds.MinLon},
		[2]float64{bounds.MaxLat, bounds.MaxLon},
		func(min, max [2]float64, data interface{}) bool {
			stop, ok := data.(shuttledb.Stop)
			if !ok {
				return true
			}
			if allowed != nil {
				if _, member := allowed[stop.ID]; !member {
					return true
				}
			}
			results = append(results, stop)
			return true
		},
	)
	return results
}
