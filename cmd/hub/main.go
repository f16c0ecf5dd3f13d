package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/garima440/NYC-transit-hub/internal/aggregate"
	"github.com/garima440/NYC-transit-hub/internal/appconf"
	"github.com/garima440/NYC-transit-hub/internal/clock"
	"github.com/garima440/NYC-transit-hub/internal/config"
	"github.com/garima440/NYC-transit-hub/internal/fetch"
	"github.com/garima440/NYC-transit-hub/internal/hub"
	"github.com/garima440/NYC-transit-hub/internal/logging"
	"github.com/garima440/NYC-transit-hub/internal/metrics"
	"github.com/garima440/NYC-transit-hub/internal/reference"
	"github.com/garima440/NYC-transit-hub/internal/scheduler"
	"github.com/garima440/NYC-transit-hub/internal/snapshot"
)

// Application bundles the wired pipeline components.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *snapshot.Store
	Hub       *hub.Hub
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
}

func main() {
	// A missing .env file is fine; environment variables may come from
	// the process environment directly.
	_ = godotenv.Load()

	var (
		envName    = flag.String("env", "development", "Environment (development|production|test)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		staticPath = flag.String("static-gtfs", os.Getenv("HUB_STATIC_GTFS"), "Path to a static GTFS zip for geometry lookups")
	)
	flag.Parse()

	appCfg := appconf.Config{
		Env:     appconf.EnvFromString(*envName),
		Verbose: *verbose,
	}
	logger := newLogger(appCfg)

	app, err := BuildApplication(appCfg, *staticPath, logger)
	if err != nil {
		logging.LogError(logger, "startup failed", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.LogOperation(logger, "refresh_pipeline_starting",
		slog.Int("feeds", len(app.Config.Feeds)),
		slog.String("env", appCfg.Env.String()))

	if err := app.Scheduler.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.LogError(logger, "refresh pipeline exited", err)
		os.Exit(1)
	}
	logging.LogOperation(logger, "refresh_pipeline_stopped")
}

// BuildApplication wires the pipeline from configuration. The static GTFS
// path may be empty, in which case geometry lookups fall back to defaults.
func BuildApplication(appCfg appconf.Config, staticPath string, logger *slog.Logger) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("unable to load configuration: %w", err)
	}

	ds, err := loadReference(staticPath, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	clk := clock.RealClock{}
	store := snapshot.NewStore()
	fetcher := fetch.NewFetcher(cfg.FetchTimeout, cfg.RatePerSecond, cfg.Burst)
	agg := aggregate.New(cfg, fetcher, store, clk, m, logger)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Hub:       hub.New(store, ds, clk),
		Scheduler: scheduler.New(cfg, agg, store, m, logger),
		Metrics:   m,
	}, nil
}

func loadReference(staticPath string, logger *slog.Logger) (*reference.Dataset, error) {
	if staticPath == "" {
		logging.LogOperation(logger, "static_dataset_not_configured")
		return reference.Empty(), nil
	}
	return reference.LoadFile(staticPath, logger)
}

func newLogger(appCfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if appCfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
