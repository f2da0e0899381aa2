package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shuttlego/shuttlecore/internal/appconf"
	"github.com/shuttlego/shuttlecore/internal/clock"
	"github.com/shuttlego/shuttlecore/internal/engine"
	"github.com/shuttlego/shuttlecore/internal/metrics"
	"github.com/shuttlego/shuttlecore/shuttledb"
)

// Application bundles the dependencies an enclosing service layer needs to
// serve shuttle queries: the snapshot client, the query engine, metrics,
// and a logger.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	DB      *shuttledb.Client
	Engine  *engine.Engine
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// Build opens the snapshot, constructs the engine, and optionally warms the
// endpoint cache.
func Build(ctx context.Context, config appconf.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbConfig := shuttledb.NewConfig(config.SnapshotPath, config.Env(), config.Verbose)
	client, err := shuttledb.NewClient(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}

	m := metrics.New()
	clk := clock.RealClock{}

	eng, err := engine.New(ctx, client,
		engine.WithClock(clk),
		engine.WithMetrics(m),
		engine.WithLogger(logger.With(slog.String("component", "engine"))),
		engine.WithExcludedRouteKeyword(config.ExcludedRouteKeyword),
		engine.WithWarmRate(config.WarmRatePerSecond),
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	if config.WarmEndpointCache {
		if err := eng.WarmEndpointCache(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("warming endpoint cache: %w", err)
		}
	}

	return &Application{
		Config:  config,
		Logger:  logger,
		DB:      client,
		Engine:  eng,
		Clock:   clk,
		Metrics: m,
	}, nil
}

// Close releases the snapshot handle.
func (a *Application) Close() error {
	return a.DB.Close()
}
