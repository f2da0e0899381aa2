// Package geo provides great-circle distance, bounding-box, and grid-cell
// primitives for stop lookups and endpoint grouping.
package geo

import (
	"errors"
	"math"
)

const (
	// RadiusOfEarthInMeters is RADIUS_OF_EARTH_IN_KM * 1000
	RadiusOfEarthInMeters = 6371000.0

	// degreesPerMeter approximates one meter of latitude in degrees.
	// Valid for a single-city deployment; this is not a general geodesic
	// conversion and degrades away from the reference latitude.
	degreesPerMeter = 1.0 / 111000.0
)

// ErrInvalidCoordinate reports a NaN or out-of-range latitude/longitude.
var ErrInvalidCoordinate = errors.New("geo: invalid coordinate")

// CoordinateBounds represents a bounding box with min/max latitude and longitude.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance calculates the haversine great-circle distance in meters between
// two points on the Earth.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	dLatRad := (lat2 - lat1) * (math.Pi / 180)
	dLonRad := (lon2 - lon1) * (math.Pi / 180)

	sinLat := math.Sin(dLatRad / 2)
	sinLon := math.Sin(dLonRad / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return RadiusOfEarthInMeters * c
}

// CalculateBoundsFromSpan calculates a bounding box from lat/lon half-widths.
func CalculateBoundsFromSpan(lat, lon, latOffset, lonOffset float64) CoordinateBounds {
	return CoordinateBounds{
		MinLat: lat - latOffset,
		MaxLat: lat + latOffset,
		MinLon: lon - lonOffset,
		MaxLon: lon + lonOffset,
	}
}

// ValidatePoint rejects NaN and out-of-range coordinates before they reach
// the spatial index.
func ValidatePoint(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return ErrInvalidCoordinate
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// Cell identifies one cell of a fixed-size lat/lon grid.
type Cell struct {
	X int
	Y int
}

// CellSizeForRadius converts a grouping radius in meters to a grid cell size
// in degrees, using the fixed degrees-per-meter ratio above.
func CellSizeForRadius(radiusMeters float64) float64 {
	return radiusMeters * degreesPerMeter
}

// CellFor maps a point onto grid coordinates for the given cell size.
func CellFor(lat, lon, cellSize float64) Cell {
	return Cell{
		X: int(math.Floor(lat / cellSize)),
		Y: int(math.Floor(lon / cellSize)),
	}
}
