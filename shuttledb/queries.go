package shuttledb

// Hand-written query implementations over the ETL snapshot schema.
// The schema is small and stable, so these are maintained manually in one
// place instead of being generated.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is the database handle abstraction used by Queries.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries exposes the snapshot's read and fixture-write operations.
type Queries struct {
	db DBTX
}

// New creates a Queries wrapper around a database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const listSites = `
SELECT site_id, name
FROM site
ORDER BY site_id
`

// ListSites returns every business site in the snapshot.
func (q *Queries) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := q.db.QueryContext(ctx, listSites)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const listCommuteDayTypes = `
SELECT DISTINCT sv.day_type
FROM route ro
JOIN service_variant sv ON sv.route_id = ro.route_id
WHERE ro.site_id = ?
  AND ro.route_type IN ('commute_in', 'commute_out')
  AND (? = '' OR ro.route_name NOT LIKE '%' || ? || '%')
ORDER BY
  CASE sv.day_type
    WHEN 'weekday' THEN 1
    WHEN 'monday' THEN 2
    WHEN 'saturday' THEN 3
    WHEN 'holiday' THEN 4
    WHEN 'familyday' THEN 5
    ELSE 99
  END,
  sv.day_type
`

// ListCommuteDayTypes returns the day types for which the site actually has
// commute routes, in display order.
func (q *Queries) ListCommuteDayTypes(ctx context.Context, siteID, excludeKeyword string) ([]DayType, error) {
	rows, err := q.db.QueryContext(ctx, listCommuteDayTypes, siteID, excludeKeyword, excludeKeyword)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []DayType
	for rows.Next() {
		var dt DayType
		if err := rows.Scan(&dt); err != nil {
			return nil, err
		}
		items = append(items, dt)
	}
	return items, rows.Err()
}

const listAllDayTypes = `
SELECT DISTINCT day_type
FROM service_variant
ORDER BY day_type
`

// ListAllDayTypes returns every day type present in the snapshot.
func (q *Queries) ListAllDayTypes(ctx context.Context) ([]DayType, error) {
	rows, err := q.db.QueryContext(ctx, listAllDayTypes)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []DayType
	for rows.Next() {
		var dt DayType
		if err := rows.Scan(&dt); err != nil {
			return nil, err
		}
		items = append(items, dt)
	}
	return items, rows.Err()
}

const listStops = `
SELECT stop_id, name, lat, lon
FROM stop
`

// ListStops returns every stop. Used to build the in-memory spatial index.
func (q *Queries) ListStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, listStops)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Stop
	for rows.Next() {
		var s Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const hasStopScope = `
SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'stop_scope' LIMIT 1
`

// HasStopScope reports whether the snapshot carries the materialized
// stop_scope table. Older snapshots fall back to deriving scopes via joins.
func (q *Queries) HasStopScope(ctx context.Context) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, hasStopScope).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const listScopedStops = `
SELECT stop_id, site_id, route_type, day_type
FROM stop_scope
`

const listScopedStopsDerived = `
SELECT DISTINCT vs.stop_id, ro.site_id, ro.route_type, sv.day_type
FROM route ro
JOIN service_variant sv ON sv.route_id = ro.route_id
JOIN variant_stop vs ON vs.variant_id = sv.variant_id
`

// ListScopedStops returns every (stop, site, route type, day type) membership,
// either from the materialized table or derived through the variant joins.
func (q *Queries) ListScopedStops(ctx context.Context) ([]ScopedStop, error) {
	materialized, err := q.HasStopScope(ctx)
	if err != nil {
		return nil, err
	}
	query := listScopedStops
	if !materialized {
		query = listScopedStopsDerived
	}
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ScopedStop
	for rows.Next() {
		var s ScopedStop
		if err := rows.Scan(&s.StopID, &s.SiteID, &s.RouteType, &s.DayType); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// RouteAtStop names a route passing through one of the queried stops.
type RouteAtStop struct {
	RouteID   int64
	RouteName string
	StopID    int64
}

const routesThroughStops = `
SELECT DISTINCT r.route_id, r.route_name, vs.stop_id
FROM variant_stop vs
JOIN service_variant sv ON sv.variant_id = vs.variant_id
JOIN route r ON r.route_id = sv.route_id
WHERE vs.stop_id IN (%s)
  AND r.site_id = ?
  AND r.route_type = ?
  AND sv.day_type = ?
`

// RoutesThroughStops resolves the scoped routes passing through any of the
// given stops.
func (q *Queries) RoutesThroughStops(ctx context.Context, stopIDs []int64, siteID string, routeType RouteType, dayType DayType) ([]RouteAtStop, error) {
	if len(stopIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(stopIDs)), ",")
	query := fmt.Sprintf(routesThroughStops, placeholders)
	args := make([]interface{}, 0, len(stopIDs)+3)
	for _, id := range stopIDs {
		args = append(args, id)
	}
	args = append(args, siteID, string(routeType), string(dayType))

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []RouteAtStop
	for rows.Next() {
		var r RouteAtStop
		if err := rows.Scan(&r.RouteID, &r.RouteName, &r.StopID); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getRoute = `
SELECT route_id, site_id, route_name, route_type
FROM route
WHERE route_id = ?
`

// GetRoute fetches one route by id. Returns sql.ErrNoRows when absent.
func (q *Queries) GetRoute(ctx context.Context, routeID int64) (Route, error) {
	var r Route
	err := q.db.QueryRowContext(ctx, getRoute, routeID).Scan(&r.ID, &r.SiteID, &r.Name, &r.Type)
	return r, err
}

const listVariants = `
SELECT variant_id, route_id, day_type, departure_time, company, bus_count
FROM service_variant
WHERE route_id = ? AND day_type = ?
ORDER BY departure_time
`

// ListVariants returns a route's service variants for one day type, ordered
// by raw departure value.
func (q *Queries) ListVariants(ctx context.Context, routeID int64, dayType DayType) ([]ServiceVariant, error) {
	rows, err := q.db.QueryContext(ctx, listVariants, routeID, string(dayType))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ServiceVariant
	for rows.Next() {
		var v ServiceVariant
		if err := rows.Scan(&v.ID, &v.RouteID, &v.DayType, &v.DepartureTime, &v.Company, &v.BusCount); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// ItineraryStop is one ordered stop of a variant's itinerary with coordinates.
type ItineraryStop struct {
	Seq    int64
	StopID int64
	Name   sql.NullString
	Lat    float64
	Lon    float64
}

const listItinerary = `
SELECT vs.seq, vs.stop_id, s.name, s.lat, s.lon
FROM variant_stop vs
JOIN stop s ON s.stop_id = vs.stop_id
WHERE vs.variant_id = ?
ORDER BY vs.seq
`

// ListItinerary returns the ordered stop list of one variant.
func (q *Queries) ListItinerary(ctx context.Context, variantID int64) ([]ItineraryStop, error) {
	rows, err := q.db.QueryContext(ctx, listItinerary, variantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ItineraryStop
	for rows.Next() {
		var s ItineraryStop
		if err := rows.Scan(&s.Seq, &s.StopID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// RouteEndpoint is the terminal stop of a route's representative variant.
type RouteEndpoint struct {
	RouteID int64
	StopID  int64
	Name    sql.NullString
}

// This constant goes through Sprintf to splice the seq column, so the LIKE
// wildcards must be escaped as %%.
const listRouteEndpoints = `
WITH target_routes AS (
    SELECT route_id
    FROM route
    WHERE site_id = ?
      AND route_type = ?
      AND (? = '' OR route_name NOT LIKE '%%' || ? || '%%')
),
first_variant AS (
    SELECT sv.route_id, MIN(sv.variant_id) AS variant_id
    FROM service_variant sv
    JOIN target_routes tr ON tr.route_id = sv.route_id
    WHERE sv.day_type = ?
    GROUP BY sv.route_id
),
endpoint_seq AS (
    SELECT vs.variant_id, MIN(vs.seq) AS min_seq, MAX(vs.seq) AS max_seq
    FROM variant_stop vs
    JOIN first_variant fv ON fv.variant_id = vs.variant_id
    GROUP BY vs.variant_id
)
SELECT fv.route_id, vs_ep.stop_id, st_ep.name
FROM first_variant fv
JOIN endpoint_seq es ON es.variant_id = fv.variant_id
JOIN variant_stop vs_ep
    ON vs_ep.variant_id = fv.variant_id
   AND vs_ep.seq = %s
LEFT JOIN stop st_ep ON st_ep.stop_id = vs_ep.stop_id
`

// ListRouteEndpoints returns, for each in-scope route, the terminal stop of
// its representative (lowest-id) variant for the day type. The last stop is
// the terminal when lastStop is true, otherwise the first.
func (q *Queries) ListRouteEndpoints(ctx context.Context, siteID string, routeType RouteType, dayType DayType, lastStop bool, excludeKeyword string) ([]RouteEndpoint, error) {
	seqCol := "es.min_seq"
	if lastStop {
		seqCol = "es.max_seq"
	}
	query := fmt.Sprintf(listRouteEndpoints, seqCol)
	rows, err := q.db.QueryContext(ctx, query, siteID, string(routeType), excludeKeyword, excludeKeyword, string(dayType))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []RouteEndpoint
	for rows.Next() {
		var e RouteEndpoint
		if err := rows.Scan(&e.RouteID, &e.StopID, &e.Name); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// ScopedRouteStop ties an in-scope route to one of its visited stops.
type ScopedRouteStop struct {
	RouteID int64
	StopID  int64
	Lat     float64
	Lon     float64
}

const listScopedRouteStops = `
WITH target_routes AS (
    SELECT route_id
    FROM route
    WHERE site_id = ?
      AND route_type = ?
      AND (? = '' OR route_name NOT LIKE '%' || ? || '%')
)
SELECT DISTINCT sv.route_id, vs.stop_id, s.lat, s.lon
FROM service_variant sv
JOIN target_routes tr ON tr.route_id = sv.route_id
JOIN variant_stop vs ON vs.variant_id = sv.variant_id
JOIN stop s ON s.stop_id = vs.stop_id
WHERE sv.day_type = ?
`

// ListScopedRouteStops returns every stop visited by any in-scope route on
// the day type, across all variants.
func (q *Queries) ListScopedRouteStops(ctx context.Context, siteID string, routeType RouteType, dayType DayType, excludeKeyword string) ([]ScopedRouteStop, error) {
	rows, err := q.db.QueryContext(ctx, listScopedRouteStops, siteID, string(routeType), excludeKeyword, excludeKeyword, string(dayType))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []ScopedRouteStop
	for rows.Next() {
		var s ScopedRouteStop
		if err := rows.Scan(&s.RouteID, &s.StopID, &s.Lat, &s.Lon); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// RouteName pairs a route id with its display name.
type RouteName struct {
	RouteID int64
	Name    string
}

const listScopedRouteNames = `
WITH target_routes AS (
    SELECT route_id
    FROM route
    WHERE site_id = ?
      AND route_type = ?
      AND (? = '' OR route_name NOT LIKE '%' || ? || '%')
)
SELECT DISTINCT sv.route_id, ro.route_name
FROM service_variant sv
JOIN target_routes tr ON tr.route_id = sv.route_id
JOIN route ro ON ro.route_id = sv.route_id
WHERE sv.day_type = ?
`

// ListScopedRouteNames returns the names of in-scope routes with service on
// the day type.
func (q *Queries) ListScopedRouteNames(ctx context.Context, siteID string, routeType RouteType, dayType DayType, excludeKeyword string) ([]RouteName, error) {
	rows, err := q.db.QueryContext(ctx, listScopedRouteNames, siteID, string(routeType), excludeKeyword, excludeKeyword, string(dayType))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []RouteName
	for rows.Next() {
		var r RouteName
		if err := rows.Scan(&r.RouteID, &r.Name); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getRepresentativeVariantID = `
SELECT MIN(variant_id)
FROM service_variant
WHERE route_id = ? AND day_type = ?
`

// GetRepresentativeVariantID returns the lowest variant id of a route for a
// day type, or sql.ErrNoRows when the route has no service that day.
func (q *Queries) GetRepresentativeVariantID(ctx context.Context, routeID int64, dayType DayType) (int64, error) {
	var id sql.NullInt64
	if err := q.db.QueryRowContext(ctx, getRepresentativeVariantID, routeID, string(dayType)).Scan(&id); err != nil {
		return 0, err
	}
	if !id.Valid {
		return 0, sql.ErrNoRows
	}
	return id.Int64, nil
}
