package engine

import (
	"errors"

	"github.com/shuttlego/shuttlecore/internal/geo"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

var (
	// ErrInvalidTime reports a target time string that does not parse as
	// "HH:MM". Distinct from an empty schedule, which is a normal negative
	// result.
	ErrInvalidTime = errors.New("engine: invalid time string")

	// ErrUnknownDirection reports a direction other than depart/arrive.
	ErrUnknownDirection = errors.New("engine: unknown direction")

	// ErrUnknownDayType reports a day type outside the service calendar.
	ErrUnknownDayType = errors.New("engine: unknown day type")

	// ErrInvalidCoordinate is re-exported so callers only import this package.
	ErrInvalidCoordinate = geo.ErrInvalidCoordinate
)

// Direction is a commute direction: toward the site or away from it.
type Direction string

const (
	// DirectionDepart is the morning commute toward the site; candidates
	// are commute-in routes and the endpoint is a route's last stop.
	DirectionDepart Direction = "depart"
	// DirectionArrive is the evening commute away from the site;
	// candidates are commute-out routes and the endpoint is the first stop.
	DirectionArrive Direction = "arrive"
)

// RouteType maps the direction onto the route type it selects.
func (d Direction) RouteType() (shuttledb.RouteType, error) {
	switch d {
	case DirectionDepart:
		return shuttledb.RouteTypeCommuteIn, nil
	case DirectionArrive:
		return shuttledb.RouteTypeCommuteOut, nil
	}
	return "", ErrUnknownDirection
}

// terminalIsLast reports whether the route's terminal for this direction is
// the last stop of the itinerary (depart) or the first (arrive).
func (d Direction) terminalIsLast() bool {
	return d == DirectionDepart
}
