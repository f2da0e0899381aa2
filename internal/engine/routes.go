package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/twpayne/go-polyline"

	"github.com/shuttlego/shuttlecore/internal/models"
	"github.com/shuttlego/shuttlecore/internal/spatial"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

// searchBudgets are the progressive candidate-stop budgets. Most query
// points sit near a serving route, so the small first budget resolves the
// bulk of queries; only outliers pay for the wider scans.
var searchBudgets = []int{50, 150, 500}

// routeFilters carries the post-hoc route filters of a best-routes query.
type routeFilters struct {
	// exclude removes these route ids from the result.
	exclude map[int64]struct{}
	// include, when non-nil, restricts candidates to these route ids. An
	// empty non-nil set is an explicit empty scope and short-circuits to
	// no results.
	include map[int64]struct{}
	// nameExcludeKeyword drops routes whose name contains the substring.
	nameExcludeKeyword string
}

// routeSeed tracks the best (minimum) observed distance for one route while
// the candidate stop set grows.
type routeSeed struct {
	distance  float64
	stopID    int64
	routeName string
}

// bestRoutes returns up to limit distinct routes of the scope ranked by
// minimum stop distance from the point.
func (e *Engine) bestRoutes(ctx context.Context, scope spatial.Scope, lat, lon float64, limit int, filters routeFilters) ([]models.Candidate, error) {
	if filters.include != nil && len(filters.include) == 0 {
		return []models.Candidate{}, nil
	}
	if limit <= 0 {
		return []models.Candidate{}, nil
	}

	routeBest := make(map[int64]routeSeed)
	stopDist := make(map[int64]spatial.StopDistance)
	searched := make(map[int64]struct{})

	for _, budget := range searchBudgets {
		nearby, err := e.index.FindNearby(lat, lon, budget, scope)
		if err != nil {
			return nil, err
		}
		if len(nearby) == 0 {
			return []models.Candidate{}, nil
		}

		// Incremental search: only stops unseen in prior rounds hit the
		// database again.
		var newStopIDs []int64
		for _, sd := range nearby {
			if _, seen := searched[sd.Stop.ID]; seen {
				continue
			}
			searched[sd.Stop.ID] = struct{}{}
			stopDist[sd.Stop.ID] = sd
			newStopIDs = append(newStopIDs, sd.Stop.ID)
		}

		if len(newStopIDs) > 0 {
			found, err := e.queries.RoutesThroughStops(ctx, newStopIDs, scope.SiteID, scope.RouteType, scope.DayType)
			if err != nil {
				return nil, fmt.Errorf("resolving routes through stops: %w", err)
			}
			for _, r := range found {
				if filters.include != nil {
					if _, allowed := filters.include[r.RouteID]; !allowed {
						continue
					}
				}
				if _, excluded := filters.exclude[r.RouteID]; excluded {
					continue
				}
				if filters.nameExcludeKeyword != "" && strings.Contains(r.RouteName, filters.nameExcludeKeyword) {
					continue
				}
				dist := stopDist[r.StopID].DistanceMeters
				best, known := routeBest[r.RouteID]
				if !known || dist < best.distance {
					routeBest[r.RouteID] = routeSeed{distance: dist, stopID: r.StopID, routeName: r.RouteName}
				}
			}
		}

		if len(routeBest) >= limit {
			break
		}
	}

	type rankedRoute struct {
		routeID int64
		seed    routeSeed
	}
	ranked := make([]rankedRoute, 0, len(routeBest))
	for rid, seed := range routeBest {
		ranked = append(ranked, rankedRoute{routeID: rid, seed: seed})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].seed.distance != ranked[j].seed.distance {
			return ranked[i].seed.distance < ranked[j].seed.distance
		}
		return ranked[i].routeID < ranked[j].routeID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	candidates := make([]models.Candidate, 0, len(ranked))
	for _, r := range ranked {
		candidate, err := e.hydrateCandidate(ctx, scope, r.routeID, r.seed, stopDist)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// hydrateCandidate attaches schedule, company, and itinerary metadata to a
// ranked route.
func (e *Engine) hydrateCandidate(ctx context.Context, scope spatial.Scope, routeID int64, seed routeSeed, stopDist map[int64]spatial.StopDistance) (models.Candidate, error) {
	variants, err := e.queries.ListVariants(ctx, routeID, scope.DayType)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("listing variants for route %d: %w", routeID, err)
	}

	timeSet := make(map[string]struct{}, len(variants))
	companySet := make(map[string]struct{})
	for _, v := range variants {
		timeSet[v.DepartureTime] = struct{}{}
		if v.Company.Valid && v.Company.String != "" {
			companySet[v.Company.String] = struct{}{}
		}
	}
	times := make([]string, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Strings(times)
	companies := make([]string, 0, len(companySet))
	for c := range companySet {
		companies = append(companies, c)
	}
	sort.Strings(companies)

	stops, encoded, err := e.representativeItinerary(ctx, routeID, scope.DayType)
	if err != nil {
		return models.Candidate{}, err
	}

	nearest := stopDist[seed.stopID]
	return models.Candidate{
		RouteID:   routeID,
		RouteName: seed.routeName,
		RouteType: scope.RouteType,
		NearestStop: models.StopRef{
			ID:   nearest.Stop.ID,
			Name: nearest.Stop.Name.String,
			Lat:  nearest.Stop.Lat,
			Lon:  nearest.Stop.Lon,
		},
		DistanceMeters: int64(math.Round(seed.distance)),
		DepartureTimes: times,
		Companies:      companies,
		Stops:          stops,
		Polyline:       encoded,
	}, nil
}

// representativeItinerary returns the ordered stop list of the route's
// representative (lowest-id) variant for the day type, plus its encoded
// polyline. A route without service that day yields an empty itinerary.
func (e *Engine) representativeItinerary(ctx context.Context, routeID int64, dayType shuttledb.DayType) ([]models.ItineraryStop, string, error) {
	variantID, err := e.queries.GetRepresentativeVariantID(ctx, routeID, dayType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.ItineraryStop{}, "", nil
		}
		return nil, "", fmt.Errorf("resolving representative variant for route %d: %w", routeID, err)
	}

	itinerary, err := e.queries.ListItinerary(ctx, variantID)
	if err != nil {
		return nil, "", fmt.Errorf("listing itinerary for variant %d: %w", variantID, err)
	}

	stops := make([]models.ItineraryStop, 0, len(itinerary))
	coords := make([][]float64, 0, len(itinerary))
	for _, s := range itinerary {
		stops = append(stops, models.ItineraryStop{
			Sequence: s.Seq,
			StopID:   s.StopID,
			Name:     s.Name.String,
			Lat:      s.Lat,
			Lon:      s.Lon,
		})
		coords = append(coords, []float64{s.Lat, s.Lon})
	}

	encoded := ""
	if len(coords) > 0 {
		encoded = string(polyline.EncodeCoords(coords))
	}
	return stops, encoded, nil
}
