// Command shuttleq runs one shuttle query against a snapshot and prints the
// result as JSON. It exists for inspecting snapshots and exercising the
// engine outside the serving layer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/shuttlego/shuttlecore/internal/app"
	"github.com/shuttlego/shuttlecore/internal/appconf"
	"github.com/shuttlego/shuttlecore/internal/engine"
	"github.com/shuttlego/shuttlecore/internal/logging"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file (overrides other flags)")
		snapshot   = flag.String("snapshot", "data/data.db", "path to SQLite snapshot (.db or .db.zst)")
		op         = flag.String("op", "routes", "operation: routes | endpoints | detail | sites | daytypes")
		siteID     = flag.String("site", "", "site id")
		direction  = flag.String("direction", "depart", "direction: depart | arrive")
		dayType    = flag.String("day", "weekday", "day type")
		lat        = flag.Float64("lat", 0, "latitude")
		lon        = flag.Float64("lon", 0, "longitude")
		limit      = flag.Int("limit", engine.DefaultRouteLimit, "max routes")
		targetTime = flag.String("time", "", "target time HH:MM (optional)")
		keyword    = flag.String("keyword", "", "endpoint route-name filter (optional)")
		routeID    = flag.Int64("route", 0, "route id for -op detail")
		warm       = flag.Bool("warm", false, "warm the endpoint cache before querying")
		verbose    = flag.Bool("verbose", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := appconf.Config{
		SnapshotPath:      *snapshot,
		WarmEndpointCache: *warm,
		Verbose:           *verbose,
	}
	if *configPath != "" {
		loaded, err := appconf.LoadFromFile(*configPath)
		if err != nil {
			logging.LogError(logger, "unable to load config", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctx := context.Background()
	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "unable to build application", err)
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()

	result, err := runOperation(ctx, application, operationArgs{
		op:         *op,
		siteID:     *siteID,
		direction:  engine.Direction(*direction),
		dayType:    shuttledb.DayType(*dayType),
		lat:        *lat,
		lon:        *lon,
		limit:      *limit,
		targetTime: *targetTime,
		keyword:    *keyword,
		routeID:    *routeID,
	})
	if err != nil {
		logging.LogError(logger, "query failed", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logging.LogError(logger, "unable to encode result", err)
		os.Exit(1)
	}
}

type operationArgs struct {
	op         string
	siteID     string
	direction  engine.Direction
	dayType    shuttledb.DayType
	lat, lon   float64
	limit      int
	targetTime string
	keyword    string
	routeID    int64
}

func runOperation(ctx context.Context, application *app.Application, args operationArgs) (interface{}, error) {
	eng := application.Engine
	switch args.op {
	case "routes":
		return eng.NearestRoutes(ctx, engine.NearestRoutesQuery{
			SiteID:     args.siteID,
			Direction:  args.direction,
			Lat:        args.lat,
			Lon:        args.lon,
			DayType:    args.dayType,
			Limit:      args.limit,
			TargetTime: args.targetTime,
		})
	case "endpoints":
		return eng.EndpointOptions(ctx, args.siteID, args.dayType, args.direction, args.keyword)
	case "detail":
		return eng.RouteDetail(ctx, args.routeID, args.dayType)
	case "sites":
		return eng.Sites(ctx)
	case "daytypes":
		return eng.AvailableDayTypes(ctx, args.siteID)
	}
	return nil, fmt.Errorf("unknown operation %q", args.op)
}
