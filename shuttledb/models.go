package shuttledb

import "database/sql"

// RouteType classifies a route as a commute-in, commute-out, or free shuttle path.
type RouteType string

const (
	RouteTypeCommuteIn  RouteType = "commute_in"
	RouteTypeCommuteOut RouteType = "commute_out"
	RouteTypeShuttle    RouteType = "shuttle"
)

// Valid reports whether the route type is one of the known values.
func (rt RouteType) Valid() bool {
	switch rt {
	case RouteTypeCommuteIn, RouteTypeCommuteOut, RouteTypeShuttle:
		return true
	}
	return false
}

// DayType is a schedule-calendar bucket.
type DayType string

const (
	DayTypeWeekday   DayType = "weekday"
	DayTypeSaturday  DayType = "saturday"
	DayTypeHoliday   DayType = "holiday"
	DayTypeMonday    DayType = "monday"
	DayTypeFamilyday DayType = "familyday"
)

// Valid reports whether the day type is one of the known values.
func (dt DayType) Valid() bool {
	switch dt {
	case DayTypeWeekday, DayTypeSaturday, DayTypeHoliday, DayTypeMonday, DayTypeFamilyday:
		return true
	}
	return false
}

// Site is a business location. Loaded once, immutable.
type Site struct {
	ID   string
	Name string
}

// Route is a named shuttle path for one site and one route type.
type Route struct {
	ID     int64
	SiteID string
	Name   string
	Type   RouteType
}

// ServiceVariant is one scheduled instance of a route for a day type. The
// departure is either "HH:MM" or a closed range "HH:MM ~ HH:MM".
type ServiceVariant struct {
	ID            int64
	RouteID       int64
	DayType       DayType
	DepartureTime string
	Company       sql.NullString
	BusCount      sql.NullInt64
}

// Stop is a physical location, de-duplicated by coordinates.
type Stop struct {
	ID   int64
	Name sql.NullString
	Lat  float64
	Lon  float64
}

// VariantStop is an ordered membership edge of a variant's itinerary.
// Sequence numbers are 1-based and contiguous within a variant.
type VariantStop struct {
	VariantID int64
	Seq       int64
	StopID    int64
}

// ScopedStop is a stop annotated with the (site, route type, day type)
// memberships materialized in stop_scope.
type ScopedStop struct {
	StopID    int64
	SiteID    string
	RouteType RouteType
	DayType   DayType
}
