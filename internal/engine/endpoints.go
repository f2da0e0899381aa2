package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/shuttlego/shuttlecore/internal/geo"
	"github.com/shuttlego/shuttlecore/internal/models"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

// endpointGroupDistanceMeters is the physical radius within which two
// endpoint stops count as the same boarding place.
const endpointGroupDistanceMeters = 100.0

// endpointIndex is the de-duplicated place list for one (site, day type,
// direction) key, plus the internal route mappings that drive filtering.
type endpointIndex struct {
	Options []models.EndpointOption
	// RouteIDsByOption maps option name to every route serving the place,
	// pass-by routes included.
	RouteIDsByOption map[string]map[int64]struct{}
	// SearchBlob maps option name to a lower-cased newline-joined list of
	// its route names, for keyword filtering.
	SearchBlob map[string]string
}

// buildEndpointIndex clusters route endpoints for one cache key. Textual
// merging happens through name normalization; physical merging through a
// 100 m union-find over endpoint stops.
func (e *Engine) buildEndpointIndex(ctx context.Context, siteID string, dayType shuttledb.DayType, direction Direction) (*endpointIndex, error) {
	routeType, err := direction.RouteType()
	if err != nil {
		return nil, err
	}

	endpoints, err := e.queries.ListRouteEndpoints(ctx, siteID, routeType, dayType, direction.terminalIsLast(), e.excludeKeyword)
	if err != nil {
		return nil, fmt.Errorf("listing route endpoints: %w", err)
	}
	if len(endpoints) == 0 {
		return emptyEndpointIndex(), nil
	}

	// Normalized name -> routes terminating there, and the physical stops
	// the name maps to.
	nameToDirectRoutes := make(map[string]map[int64]struct{})
	nameToEndpointStops := make(map[string]map[int64]struct{})
	for _, ep := range endpoints {
		normalized := NormalizeEndpointName(ep.Name.String)
		if normalized == "" {
			continue
		}
		addToSet(nameToDirectRoutes, normalized, ep.RouteID)
		addToSet(nameToEndpointStops, normalized, ep.StopID)
	}
	if len(nameToDirectRoutes) == 0 {
		return emptyEndpointIndex(), nil
	}

	// Every stop visited by any in-scope route that day, for the pass-by
	// route mapping.
	routeStops, err := e.queries.ListScopedRouteStops(ctx, siteID, routeType, dayType, e.excludeKeyword)
	if err != nil {
		return nil, fmt.Errorf("listing scoped route stops: %w", err)
	}
	routeNames, err := e.queries.ListScopedRouteNames(ctx, siteID, routeType, dayType, e.excludeKeyword)
	if err != nil {
		return nil, fmt.Errorf("listing scoped route names: %w", err)
	}
	routeNameByID := make(map[int64]string, len(routeNames))
	for _, rn := range routeNames {
		if _, seen := routeNameByID[rn.RouteID]; !seen {
			routeNameByID[rn.RouteID] = strings.TrimSpace(rn.Name)
		}
	}

	stopToRoutes := make(map[int64]map[int64]struct{})
	stopCoords := make(map[int64][2]float64)
	for _, rs := range routeStops {
		addToSet(stopToRoutes, rs.StopID, rs.RouteID)
		if _, seen := stopCoords[rs.StopID]; !seen {
			stopCoords[rs.StopID] = [2]float64{rs.Lat, rs.Lon}
		}
	}

	if len(stopCoords) == 0 {
		// No proximity data; fall back to the direct endpoint mapping.
		return directOnlyIndex(nameToDirectRoutes, routeNameByID), nil
	}

	// Grid over every visited stop: 5x5 neighboring-cell scan plus exact
	// distance filtering answers "stops within 100 m of X".
	cellSize := geo.CellSizeForRadius(endpointGroupDistanceMeters)
	grid := make(map[geo.Cell][]int64)
	for sid, coord := range stopCoords {
		cell := geo.CellFor(coord[0], coord[1], cellSize)
		grid[cell] = append(grid[cell], sid)
	}
	nearbyStopIDs := func(originSid int64) []int64 {
		coord, ok := stopCoords[originSid]
		if !ok {
			return nil
		}
		origin := geo.CellFor(coord[0], coord[1], cellSize)
		var nearby []int64
		for dx := -2; dx <= 2; dx++ {
			for dy := -2; dy <= 2; dy++ {
				for _, cand := range grid[geo.Cell{X: origin.X + dx, Y: origin.Y + dy}] {
					candCoord := stopCoords[cand]
					if geo.Distance(coord[0], coord[1], candCoord[0], candCoord[1]) <= endpointGroupDistanceMeters {
						nearby = append(nearby, cand)
					}
				}
			}
		}
		return nearby
	}

	// Intern normalized names to dense ids, in sorted order so clustering
	// and labeling are deterministic run to run.
	allNames := make([]string, 0, len(nameToDirectRoutes))
	for name := range nameToDirectRoutes {
		allNames = append(allNames, name)
	}
	sort.Strings(allNames)
	nameID := make(map[string]int, len(allNames))
	for i, name := range allNames {
		nameID[name] = i
	}

	endpointStopToNames := make(map[int64][]int)
	endpointStopSet := make(map[int64]struct{})
	for name, stops := range nameToEndpointStops {
		id := nameID[name]
		for sid := range stops {
			endpointStopToNames[sid] = append(endpointStopToNames[sid], id)
			endpointStopSet[sid] = struct{}{}
		}
	}

	// Union textually distinct names whose endpoint stops sit within 100 m
	// of each other.
	uf := newUnionFind(len(allNames))
	for sid, ids := range endpointStopToNames {
		for _, near := range nearbyStopIDs(sid) {
			nearIDs, ok := endpointStopToNames[near]
			if !ok {
				continue
			}
			for _, a := range ids {
				for _, b := range nearIDs {
					uf.union(a, b)
				}
			}
		}
	}

	clusterMembers := make(map[int][]string)
	for _, name := range allNames {
		root := uf.find(nameID[name])
		clusterMembers[root] = append(clusterMembers[root], name)
	}

	// Routes passing within 100 m of each endpoint stop, intermediate
	// stops included.
	endpointStopToRoutes := make(map[int64]map[int64]struct{}, len(endpointStopSet))
	for sid := range endpointStopSet {
		routes := make(map[int64]struct{})
		for _, near := range nearbyStopIDs(sid) {
			for rid := range stopToRoutes[near] {
				routes[rid] = struct{}{}
			}
		}
		endpointStopToRoutes[sid] = routes
	}

	type clusterResult struct {
		optionName  string
		primaryName string
		ordered     []string
		routeIDs    map[int64]struct{}
	}
	clusters := make([]clusterResult, 0, len(clusterMembers))

	for _, members := range clusterMembers {
		sort.Strings(members)

		directRouteIDs := make(map[int64]struct{})
		memberStopIDs := make(map[int64]struct{})
		for _, name := range members {
			for rid := range nameToDirectRoutes[name] {
				directRouteIDs[rid] = struct{}{}
			}
			for sid := range nameToEndpointStops[name] {
				memberStopIDs[sid] = struct{}{}
			}
		}

		routeIDs := make(map[int64]struct{})
		for sid := range memberStopIDs {
			for rid := range endpointStopToRoutes[sid] {
				routeIDs[rid] = struct{}{}
			}
		}
		if len(routeIDs) == 0 {
			routeIDs = directRouteIDs
		}

		// Per-member direct routes intersected back with the cluster's
		// route set drive the primary-name tie-break.
		memberRouteCount := make(map[string]int, len(members))
		for _, name := range members {
			count := 0
			for rid := range nameToDirectRoutes[name] {
				if _, in := routeIDs[rid]; in {
					count++
				}
			}
			memberRouteCount[name] = count
		}

		primary := members[0]
		for _, name := range members[1:] {
			if memberRouteCount[name] > memberRouteCount[primary] {
				primary = name
			}
			// Ties stay with the lexicographically smaller name, which
			// members' sort order already guarantees.
		}
		ordered := make([]string, 0, len(members))
		ordered = append(ordered, primary)
		for _, name := range members {
			if name != primary {
				ordered = append(ordered, name)
			}
		}

		clusters = append(clusters, clusterResult{
			optionName:  strings.Join(ordered, " / "),
			primaryName: primary,
			ordered:     ordered,
			routeIDs:    routeIDs,
		})
	}

	// Identical final labels from independent clusters get " (2)", " (3)"
	// suffixes in encounter order.
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].optionName < clusters[j].optionName })

	idx := emptyEndpointIndex()
	for _, cluster := range clusters {
		name := cluster.optionName
		for suffix := 2; ; suffix++ {
			if _, taken := idx.RouteIDsByOption[name]; !taken {
				break
			}
			name = fmt.Sprintf("%s (%d)", cluster.optionName, suffix)
		}

		displayLines := make([]string, 0, len(cluster.ordered))
		displayLines = append(displayLines, cluster.primaryName)
		for _, member := range cluster.ordered[1:] {
			displayLines = append(displayLines, "  "+member)
		}

		idx.Options = append(idx.Options, models.EndpointOption{
			Name:        name,
			PrimaryName: cluster.primaryName,
			Components:  cluster.ordered,
			DisplayName: strings.Join(displayLines, "\n"),
			RouteCount:  len(cluster.routeIDs),
		})
		idx.RouteIDsByOption[name] = cluster.routeIDs
		idx.SearchBlob[name] = buildSearchBlob(cluster.routeIDs, routeNameByID)
	}

	sort.Slice(idx.Options, func(i, j int) bool { return idx.Options[i].Name < idx.Options[j].Name })
	return idx, nil
}

func emptyEndpointIndex() *endpointIndex {
	return &endpointIndex{
		Options:          []models.EndpointOption{},
		RouteIDsByOption: make(map[string]map[int64]struct{}),
		SearchBlob:       make(map[string]string),
	}
}

// directOnlyIndex is the fallback when no proximity data exists: every
// normalized name becomes its own option over its direct routes.
func directOnlyIndex(nameToDirectRoutes map[string]map[int64]struct{}, routeNameByID map[int64]string) *endpointIndex {
	idx := emptyEndpointIndex()
	for name, routeIDs := range nameToDirectRoutes {
		idx.Options = append(idx.Options, models.EndpointOption{
			Name:        name,
			PrimaryName: name,
			Components:  []string{name},
			DisplayName: name,
			RouteCount:  len(routeIDs),
		})
		idx.RouteIDsByOption[name] = routeIDs
		idx.SearchBlob[name] = buildSearchBlob(routeIDs, routeNameByID)
	}
	sort.Slice(idx.Options, func(i, j int) bool { return idx.Options[i].Name < idx.Options[j].Name })
	return idx
}

func buildSearchBlob(routeIDs map[int64]struct{}, routeNameByID map[int64]string) string {
	names := make([]string, 0, len(routeIDs))
	seen := make(map[string]struct{}, len(routeIDs))
	for rid := range routeIDs {
		name := strings.TrimSpace(routeNameByID[rid])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	// Unicode case folding rather than ToLower, so Latin route names with
	// ligatures or sharp s still match ("Straße" against "STRASSE").
	folder := cases.Fold()
	for i, name := range names {
		names[i] = folder.String(name)
	}
	return strings.Join(names, "\n")
}

func addToSet[K comparable](m map[K]map[int64]struct{}, key K, value int64) {
	set := m[key]
	if set == nil {
		set = make(map[int64]struct{})
		m[key] = set
	}
	set[value] = struct{}{}
}
