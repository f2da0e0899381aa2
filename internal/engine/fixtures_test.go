package engine

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shuttlego/shuttlecore/internal/appconf"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

// Shared fixture for engine tests: one site with five commute-in routes and
// one commute-out route around (37.50, 127.03).
//
// Commute-in itineraries run site -> ... -> boarding area, so the last stop
// is the route's endpoint. The A-block routes terminate at two platform bays
// of the same building ~78 m apart; the Seocho route passes within ~25 m of
// bay 1 without terminating there; the Yangjae pair terminates at two
// differently named gates ~78 m apart.

type stopFixture struct {
	name string
	lat  float64
	lon  float64
}

type routeFixture struct {
	name    string
	dayType shuttledb.DayType
	times   []string
	company string
	stops   []stopFixture
}

var (
	fixtureSite = stopFixture{"본관", 37.4500, 127.1000}

	fixtureGangnam1 = routeFixture{
		name:    "강남 1호",
		dayType: shuttledb.DayTypeWeekday,
		times:   []string{"07:00", "07:30"},
		company: "대한운수",
		stops: []stopFixture{
			fixtureSite,
			{"중간1", 37.4950, 127.0250},
			{"A동(1번플랫폼)", 37.5000, 127.0300},
		},
	}
	fixtureGangnam2 = routeFixture{
		name:    "강남 2호",
		dayType: shuttledb.DayTypeWeekday,
		times:   []string{"07:10"},
		company: "대한운수",
		stops: []stopFixture{
			fixtureSite,
			{"중간2", 37.4980, 127.0280},
			{"A동(2번플래폼)", 37.5007, 127.0300},
		},
	}
	fixtureSeocho1 = routeFixture{
		name:    "서초 1호",
		dayType: shuttledb.DayTypeWeekday,
		times:   []string{"08:00"},
		company: "서울관광",
		stops: []stopFixture{
			fixtureSite,
			{"A동 앞 경유", 37.5002, 127.0301},
			{"B동", 37.5200, 127.0500},
		},
	}
	fixtureYangjae1 = routeFixture{
		name:    "양재 1호",
		dayType: shuttledb.DayTypeWeekday,
		times:   []string{"07:20"},
		company: "서울관광",
		stops: []stopFixture{
			fixtureSite,
			{"정문", 37.5100, 127.0400},
		},
	}
	fixtureYangjae2 = routeFixture{
		name:    "양재 2호",
		dayType: shuttledb.DayTypeWeekday,
		times:   []string{"07:20"},
		company: "서울관광",
		stops: []stopFixture{
			fixtureSite,
			{"후문", 37.5107, 127.0400},
		},
	}
	fixtureHomebound = routeFixture{
		name:    "강남 퇴근 1호",
		dayType: shuttledb.DayTypeWeekday,
		times:   []string{"18:00"},
		company: "대한운수",
		stops: []stopFixture{
			{"가로수길", 37.5150, 127.0350},
			fixtureSite,
		},
	}
)

type commuteFixture struct {
	client    *shuttledb.Client
	gangnam1  int64
	gangnam2  int64
	seocho1   int64
	yangjae1  int64
	yangjae2  int64
	homebound int64
}

func newTestClient(t *testing.T) *shuttledb.Client {
	t.Helper()
	client, err := shuttledb.NewClient(shuttledb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func loadRoute(t *testing.T, q *shuttledb.Queries, siteID string, routeType shuttledb.RouteType, f routeFixture) int64 {
	t.Helper()
	ctx := context.Background()

	routeID, err := q.CreateRoute(ctx, siteID, f.name, routeType)
	require.NoError(t, err)

	company := sql.NullString{String: f.company, Valid: f.company != ""}
	for _, departure := range f.times {
		variantID, err := q.CreateVariant(ctx, routeID, f.dayType, departure, company, sql.NullInt64{})
		require.NoError(t, err)
		for i, s := range f.stops {
			stopID, err := q.CreateStop(ctx, s.name, s.lat, s.lon)
			require.NoError(t, err)
			require.NoError(t, q.CreateVariantStop(ctx, variantID, int64(i+1), stopID))
		}
	}
	return routeID
}

func newCommuteFixture(t *testing.T) commuteFixture {
	t.Helper()
	ctx := context.Background()

	client := newTestClient(t)
	q := client.Queries
	require.NoError(t, q.CreateSite(ctx, "S1", "본사"))

	f := commuteFixture{client: client}
	f.gangnam1 = loadRoute(t, q, "S1", shuttledb.RouteTypeCommuteIn, fixtureGangnam1)
	f.gangnam2 = loadRoute(t, q, "S1", shuttledb.RouteTypeCommuteIn, fixtureGangnam2)
	f.seocho1 = loadRoute(t, q, "S1", shuttledb.RouteTypeCommuteIn, fixtureSeocho1)
	f.yangjae1 = loadRoute(t, q, "S1", shuttledb.RouteTypeCommuteIn, fixtureYangjae1)
	f.yangjae2 = loadRoute(t, q, "S1", shuttledb.RouteTypeCommuteIn, fixtureYangjae2)
	f.homebound = loadRoute(t, q, "S1", shuttledb.RouteTypeCommuteOut, fixtureHomebound)
	require.NoError(t, q.MaterializeStopScope(ctx))
	return f
}

func newTestEngine(t *testing.T, client *shuttledb.Client, opts ...Option) *Engine {
	t.Helper()
	e, err := New(context.Background(), client, opts...)
	require.NoError(t, err)
	return e
}
