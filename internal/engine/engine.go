// Package engine implements the shuttle route matching core: nearest-stop
// discovery over a spatial index, route aggregation across schedule
// variants, departure-time matching, and endpoint clustering with a
// process-lifetime cache.
//
// The engine is a stateless query service over an immutable snapshot; the
// endpoint cache is its only mutable state.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"github.com/shuttlego/shuttlecore/internal/clock"
	"github.com/shuttlego/shuttlecore/internal/geo"
	"github.com/shuttlego/shuttlecore/internal/logging"
	"github.com/shuttlego/shuttlecore/internal/metrics"
	"github.com/shuttlego/shuttlecore/internal/models"
	"github.com/shuttlego/shuttlecore/internal/spatial"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

// DefaultRouteLimit caps a nearest-routes result when the query does not
// specify its own limit.
const DefaultRouteLimit = 5

// Engine is the query facade over the immutable schedule snapshot.
type Engine struct {
	client  *shuttledb.Client
	queries *shuttledb.Queries
	index   *spatial.Index
	cache   *endpointCache
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger

	// excludeKeyword filters internal test routes out of every query.
	excludeKeyword string
	// warmRate paces warm-up cache builds per second; zero means unpaced.
	warmRate int
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock injects a clock; tests use MockClock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithExcludedRouteKeyword drops routes whose name contains the keyword from
// every result.
func WithExcludedRouteKeyword(keyword string) Option {
	return func(e *Engine) { e.excludeKeyword = keyword }
}

// WithWarmRate paces WarmEndpointCache to at most n builds per second.
func WithWarmRate(n int) Option {
	return func(e *Engine) { e.warmRate = n }
}

// New builds the spatial index from the snapshot and returns a ready engine.
func New(ctx context.Context, client *shuttledb.Client, opts ...Option) (*Engine, error) {
	e := &Engine{
		client:  client,
		queries: client.Queries,
		cache:   newEndpointCache(),
		clock:   clock.RealClock{},
		logger:  slog.Default().With(slog.String("component", "engine")),
	}
	for _, opt := range opts {
		opt(e)
	}

	start := time.Now()
	index, err := spatial.BuildIndex(ctx, client.Queries)
	if err != nil {
		return nil, fmt.Errorf("building spatial index: %w", err)
	}
	e.index = index

	logging.LogOperation(e.logger, "spatial_index_built",
		slog.Duration("duration", time.Since(start)))
	return e, nil
}

// NearestRoutesQuery carries the inputs of a best-route search.
type NearestRoutesQuery struct {
	SiteID    string
	Direction Direction
	Lat       float64
	Lon       float64
	DayType   shuttledb.DayType

	// Limit caps the number of returned routes; zero means DefaultRouteLimit.
	Limit int

	// TargetTime filters candidates to those with a departure at or after
	// the given "HH:MM" when non-empty.
	TargetTime string
	// TargetNow resolves the target time from the engine clock instead.
	TargetNow bool

	// ExcludeRouteIDs removes these routes from the result.
	ExcludeRouteIDs []int64
	// IncludeRouteIDs, when non-nil, restricts candidates to these routes.
	// An empty non-nil slice is an explicit empty scope and yields no
	// results.
	IncludeRouteIDs []int64
}

// NearestRoutes returns up to Limit routes of the site and direction ranked
// by distance from the point, with boarding stop, schedule, and itinerary
// metadata attached.
func (e *Engine) NearestRoutes(ctx context.Context, query NearestRoutesQuery) ([]models.Candidate, error) {
	start := time.Now()
	defer e.metrics.ObserveQuery("nearest_routes", start)

	routeType, err := query.Direction.RouteType()
	if err != nil {
		return nil, err
	}
	if !query.DayType.Valid() {
		return nil, ErrUnknownDayType
	}
	if err := geo.ValidatePoint(query.Lat, query.Lon); err != nil {
		return nil, err
	}

	targetTime := query.TargetTime
	if targetTime == "" && query.TargetNow {
		targetTime = e.clock.Now().Format("15:04")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultRouteLimit
	}

	filters := routeFilters{nameExcludeKeyword: e.excludeKeyword}
	if len(query.ExcludeRouteIDs) > 0 {
		filters.exclude = make(map[int64]struct{}, len(query.ExcludeRouteIDs))
		for _, id := range query.ExcludeRouteIDs {
			filters.exclude[id] = struct{}{}
		}
	}
	if query.IncludeRouteIDs != nil {
		filters.include = make(map[int64]struct{}, len(query.IncludeRouteIDs))
		for _, id := range query.IncludeRouteIDs {
			filters.include[id] = struct{}{}
		}
	}

	scope := spatial.Scope{SiteID: query.SiteID, RouteType: routeType, DayType: query.DayType}
	candidates, err := e.bestRoutes(ctx, scope, query.Lat, query.Lon, limit, filters)
	if err != nil {
		return nil, err
	}

	results := make([]models.Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		substituteTerminalStop(&candidate, query.Direction, query.Lat, query.Lon)

		if targetTime != "" {
			entry, ok, err := NearestDeparture(candidate.DepartureTimes, targetTime)
			if err != nil {
				return nil, err
			}
			if !ok {
				// No departure at or after the target; drop the route.
				continue
			}
			candidate.BoardTime = entry
		}
		results = append(results, candidate)
	}
	return results, nil
}

// substituteTerminalStop replaces a boarding/alighting stop that coincides
// with the route's own terminus by the nearest other itinerary stop, when
// one exists. Boarding at the terminus would make the leg pointless.
func substituteTerminalStop(candidate *models.Candidate, direction Direction, lat, lon float64) {
	if len(candidate.Stops) < 2 {
		return
	}
	terminalIdx := 0
	if direction.terminalIsLast() {
		terminalIdx = len(candidate.Stops) - 1
	}
	terminal := candidate.Stops[terminalIdx]
	if candidate.NearestStop.ID != terminal.StopID {
		return
	}

	bestIdx := -1
	bestDist := 0.0
	for i, stop := range candidate.Stops {
		if stop.StopID == terminal.StopID {
			continue
		}
		d := geo.Distance(lat, lon, stop.Lat, stop.Lon)
		if bestIdx < 0 || d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	if bestIdx < 0 {
		return
	}

	substitute := candidate.Stops[bestIdx]
	candidate.NearestStop = models.StopRef{
		ID:   substitute.StopID,
		Name: substitute.Name,
		Lat:  substitute.Lat,
		Lon:  substitute.Lon,
	}
	candidate.DistanceMeters = int64(math.Round(bestDist))
}

// EndpointOptions returns the de-duplicated boarding place list for the
// site, day type, and direction, optionally filtered to options whose route
// names contain the keyword (case-insensitive).
func (e *Engine) EndpointOptions(ctx context.Context, siteID string, dayType shuttledb.DayType, direction Direction, keyword string) ([]models.EndpointOption, error) {
	start := time.Now()
	defer e.metrics.ObserveQuery("endpoint_options", start)

	idx, err := e.endpointIndexFor(ctx, siteID, dayType, direction)
	if err != nil {
		return nil, err
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return cloneOptions(idx.Options), nil
	}

	needle := cases.Fold().String(keyword)
	matched := make([]models.EndpointOption, 0, len(idx.Options))
	for _, option := range idx.Options {
		if strings.Contains(idx.SearchBlob[option.Name], needle) {
			matched = append(matched, option)
		}
	}
	return cloneOptions(matched), nil
}

// cloneOptions copies options out of the cache entry, including the
// Components backing arrays, so callers can mutate results without
// corrupting the process-lifetime cache.
func cloneOptions(options []models.EndpointOption) []models.EndpointOption {
	out := make([]models.EndpointOption, len(options))
	copy(out, options)
	for i := range out {
		out[i].Components = append([]string(nil), out[i].Components...)
	}
	return out
}

// EndpointRouteIDs resolves selected endpoint options to the union of their
// route id sets. A nil selection means every option; an empty non-nil
// selection is an explicit empty scope and yields the empty set.
func (e *Engine) EndpointRouteIDs(ctx context.Context, siteID string, dayType shuttledb.DayType, direction Direction, selected []string) ([]int64, error) {
	idx, err := e.endpointIndexFor(ctx, siteID, dayType, direction)
	if err != nil {
		return nil, err
	}

	union := make(map[int64]struct{})
	if selected == nil {
		for _, routeIDs := range idx.RouteIDsByOption {
			for rid := range routeIDs {
				union[rid] = struct{}{}
			}
		}
	} else {
		for _, name := range selected {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			for rid := range idx.RouteIDsByOption[name] {
				union[rid] = struct{}{}
			}
		}
	}

	ids := make([]int64, 0, len(union))
	for rid := range union {
		ids = append(ids, rid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// RouteDetail returns the full timetable and representative itinerary of one
// route for a day type. An unknown route id yields (nil, nil).
func (e *Engine) RouteDetail(ctx context.Context, routeID int64, dayType shuttledb.DayType) (*models.RouteDetail, error) {
	start := time.Now()
	defer e.metrics.ObserveQuery("route_detail", start)

	if !dayType.Valid() {
		return nil, ErrUnknownDayType
	}

	route, err := e.queries.GetRoute(ctx, routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching route %d: %w", routeID, err)
	}

	variants, err := e.queries.ListVariants(ctx, routeID, dayType)
	if err != nil {
		return nil, fmt.Errorf("listing variants for route %d: %w", routeID, err)
	}
	timetable := make([]models.TimetableEntry, 0, len(variants))
	for _, v := range variants {
		timetable = append(timetable, models.TimetableEntry{
			DepartureTime: v.DepartureTime,
			Company:       v.Company.String,
			BusCount:      v.BusCount.Int64,
		})
	}

	stops, encoded, err := e.representativeItinerary(ctx, routeID, dayType)
	if err != nil {
		return nil, err
	}

	return &models.RouteDetail{
		RouteID:   route.ID,
		SiteID:    route.SiteID,
		RouteName: route.Name,
		RouteType: route.Type,
		Timetable: timetable,
		Stops:     stops,
		Polyline:  encoded,
	}, nil
}

// Sites lists every business site in the snapshot.
func (e *Engine) Sites(ctx context.Context) ([]models.Site, error) {
	sites, err := e.queries.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Site, 0, len(sites))
	for _, s := range sites {
		out = append(out, models.Site{ID: s.ID, Name: s.Name})
	}
	return out, nil
}

// AvailableDayTypes lists the day types for which the site has commute
// service, in display order.
func (e *Engine) AvailableDayTypes(ctx context.Context, siteID string) ([]shuttledb.DayType, error) {
	return e.queries.ListCommuteDayTypes(ctx, siteID, e.excludeKeyword)
}

// SnapshotUpdatedAt returns the modification time of the snapshot file.
func (e *Engine) SnapshotUpdatedAt() time.Time {
	return e.client.UpdatedAt()
}

// WarmEndpointCache precomputes the endpoint index for every
// (site, day type, direction) key so first requests hit a warm cache.
// Builds are paced by the configured warm rate.
func (e *Engine) WarmEndpointCache(ctx context.Context) error {
	start := time.Now()

	sites, err := e.queries.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("listing sites for warm-up: %w", err)
	}
	dayTypes, err := e.queries.ListAllDayTypes(ctx)
	if err != nil {
		return fmt.Errorf("listing day types for warm-up: %w", err)
	}

	var limiter *rate.Limiter
	if e.warmRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.warmRate), 1)
	}

	built := 0
	for _, site := range sites {
		for _, dayType := range dayTypes {
			for _, direction := range []Direction{DirectionDepart, DirectionArrive} {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				}
				if _, err := e.endpointIndexFor(ctx, site.ID, dayType, direction); err != nil {
					return fmt.Errorf("warming endpoint cache for site %s: %w", site.ID, err)
				}
				built++
			}
		}
	}

	logging.LogOperation(e.logger, "endpoint_cache_warmed",
		slog.Int("keys", built),
		slog.Duration("duration", time.Since(start)))
	return nil
}
