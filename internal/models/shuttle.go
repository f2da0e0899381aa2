// Package models defines the plain data types the query facade returns.
// Everything here is framework-free: coordinates, identifiers, strings, lists.
package models

import "github.com/shuttlego/shuttlecore/shuttledb"

// StopRef identifies a physical stop with its display name and coordinates.
type StopRef struct {
	ID   int64   `json:"stop_id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ItineraryStop is one ordered stop of a route's representative itinerary.
type ItineraryStop struct {
	Sequence int64   `json:"sequence"`
	StopID   int64   `json:"stop_id"`
	Name     string  `json:"stop_name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Candidate is one ranked best-route result for a nearest-routes query.
type Candidate struct {
	RouteID   int64               `json:"route_id"`
	RouteName string              `json:"route_name"`
	RouteType shuttledb.RouteType `json:"route_type"`

	// NearestStop is the boarding (depart) or alighting (arrive) stop.
	NearestStop StopRef `json:"nearest_stop"`
	// DistanceMeters is the great-circle distance from the query point to
	// NearestStop, rounded to whole meters.
	DistanceMeters int64 `json:"distance_m"`

	// DepartureTimes is the day type's full sorted list of distinct
	// departure entries ("HH:MM" or "HH:MM ~ HH:MM").
	DepartureTimes []string `json:"all_departure_times"`
	// Companies is the distinct set of operating companies.
	Companies []string `json:"companies"`

	// Stops is the ordered stop list of the representative variant.
	Stops []ItineraryStop `json:"route_stops"`
	// Polyline is the Google-encoded polyline of the itinerary.
	Polyline string `json:"polyline,omitempty"`

	// BoardTime is the matched departure entry when the query carried a
	// target time.
	BoardTime string `json:"board_time,omitempty"`
}

// EndpointOption is one selectable de-duplicated boarding place.
type EndpointOption struct {
	// Name is the unique option key ("A동 / B동", possibly with a " (2)"
	// disambiguation suffix).
	Name string `json:"endpoint_name"`
	// PrimaryName is the member name serving the most routes.
	PrimaryName string `json:"endpoint_primary_name"`
	// Components lists all member names, primary first.
	Components []string `json:"endpoint_components"`
	// DisplayName is the multi-line label, primary first with indented members.
	DisplayName string `json:"endpoint_display_name"`
	// RouteCount counts every route serving the place, pass-bys included.
	RouteCount int `json:"route_count"`
}

// TimetableEntry is one row of a route's full schedule.
type TimetableEntry struct {
	DepartureTime string `json:"departure_time"`
	Company       string `json:"company,omitempty"`
	BusCount      int64  `json:"bus_count,omitempty"`
}

// RouteDetail is the full schedule and itinerary of one route for a day type.
type RouteDetail struct {
	RouteID   int64               `json:"route_id"`
	SiteID    string              `json:"site_id"`
	RouteName string              `json:"route_name"`
	RouteType shuttledb.RouteType `json:"route_type"`
	Timetable []TimetableEntry    `json:"timetable"`
	Stops     []ItineraryStop     `json:"route_stops"`
	Polyline  string              `json:"polyline,omitempty"`
}

// Site is a business location.
type Site struct {
	ID   string `json:"site_id"`
	Name string `json:"site_name"`
}
