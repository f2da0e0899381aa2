package shuttledb

// Write-side queries. These exist for the offline importer and for test
// fixtures; the serving engine opens snapshots read-only and never calls them.

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"strings"
)

//go:embed schema.sql
var ddl string

// applySchema executes the embedded DDL statement by statement.
func applySchema(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

// coordinatePrecision rounds coordinates so physically identical stops with
// different source names collapse to one row.
const coordinatePrecision = 1e7

func roundCoordinate(v float64) float64 {
	return math.Round(v*coordinatePrecision) / coordinatePrecision
}

const createSite = `
INSERT INTO site (site_id, name) VALUES (?, ?)
ON CONFLICT(site_id) DO UPDATE SET name = excluded.name
`

// CreateSite inserts or updates a business site.
func (q *Queries) CreateSite(ctx context.Context, id, name string) error {
	_, err := q.db.ExecContext(ctx, createSite, id, name)
	return err
}

const createRoute = `
INSERT INTO route (site_id, route_name, route_type) VALUES (?, ?, ?)
ON CONFLICT(site_id, route_name, route_type) DO NOTHING
`

const getRouteID = `
SELECT route_id FROM route WHERE site_id = ? AND route_name = ? AND route_type = ?
`

// CreateRoute inserts a route if absent and returns its id. Routes are
// unique per (site, name, type).
func (q *Queries) CreateRoute(ctx context.Context, siteID, name string, routeType RouteType) (int64, error) {
	if !routeType.Valid() {
		return 0, fmt.Errorf("invalid route type %q", routeType)
	}
	if _, err := q.db.ExecContext(ctx, createRoute, siteID, name, string(routeType)); err != nil {
		return 0, err
	}
	var id int64
	err := q.db.QueryRowContext(ctx, getRouteID, siteID, name, string(routeType)).Scan(&id)
	return id, err
}

const createVariant = `
INSERT INTO service_variant (route_id, day_type, departure_time, company, bus_count)
VALUES (?, ?, ?, ?, ?)
`

// CreateVariant inserts one scheduled instance of a route.
func (q *Queries) CreateVariant(ctx context.Context, routeID int64, dayType DayType, departureTime string, company sql.NullString, busCount sql.NullInt64) (int64, error) {
	if !dayType.Valid() {
		return 0, fmt.Errorf("invalid day type %q", dayType)
	}
	res, err := q.db.ExecContext(ctx, createVariant, routeID, string(dayType), departureTime, company, busCount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const createStop = `
INSERT INTO stop (name, lat, lon) VALUES (?, ?, ?)
ON CONFLICT(lat, lon) DO NOTHING
`

const getStopID = `
SELECT stop_id FROM stop WHERE lat = ? AND lon = ?
`

// CreateStop inserts a stop de-duplicated by coordinates rounded to seven
// decimal digits and returns the canonical stop id. The first name seen for
// a coordinate pair wins.
func (q *Queries) CreateStop(ctx context.Context, name string, lat, lon float64) (int64, error) {
	rlat, rlon := roundCoordinate(lat), roundCoordinate(lon)
	if _, err := q.db.ExecContext(ctx, createStop, toNullString(name), rlat, rlon); err != nil {
		return 0, err
	}
	var id int64
	err := q.db.QueryRowContext(ctx, getStopID, rlat, rlon).Scan(&id)
	return id, err
}

const createVariantStop = `
INSERT INTO variant_stop (variant_id, seq, stop_id) VALUES (?, ?, ?)
`

// CreateVariantStop appends a stop to a variant's itinerary. Sequence numbers
// are 1-based and contiguous per variant.
func (q *Queries) CreateVariantStop(ctx context.Context, variantID, seq, stopID int64) error {
	_, err := q.db.ExecContext(ctx, createVariantStop, variantID, seq, stopID)
	return err
}

const createStopScope = `
INSERT INTO stop_scope (stop_id, site_id, route_type, day_type) VALUES (?, ?, ?, ?)
ON CONFLICT(stop_id, site_id, route_type, day_type) DO NOTHING
`

// CreateStopScope records a materialized (stop, site, route type, day type)
// membership.
func (q *Queries) CreateStopScope(ctx context.Context, stopID int64, siteID string, routeType RouteType, dayType DayType) error {
	_, err := q.db.ExecContext(ctx, createStopScope, stopID, siteID, string(routeType), string(dayType))
	return err
}

const materializeStopScope = `
INSERT INTO stop_scope (stop_id, site_id, route_type, day_type)
SELECT DISTINCT vs.stop_id, ro.site_id, ro.route_type, sv.day_type
FROM route ro
JOIN service_variant sv ON sv.route_id = ro.route_id
JOIN variant_stop vs ON vs.variant_id = sv.variant_id
WHERE NOT EXISTS (
    SELECT 1 FROM stop_scope ss
    WHERE ss.stop_id = vs.stop_id
      AND ss.site_id = ro.site_id
      AND ss.route_type = ro.route_type
      AND ss.day_type = sv.day_type
)
`

// MaterializeStopScope rebuilds the denormalized stop_scope table from the
// variant joins. The importer runs this once after loading all itineraries.
func (q *Queries) MaterializeStopScope(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, materializeStopScope)
	return err
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
