// Package scheduler owns the refresh control loops. Each loop is a
// supervised service firing on a fixed interval; a cycle that faults is
// logged and skipped, and the loop keeps running on its cadence. The
// previously published snapshot stays in place across failed cycles.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/garima440/NYC-transit-hub/internal/aggregate"
	"github.com/garima440/NYC-transit-hub/internal/config"
	"github.com/garima440/NYC-transit-hub/internal/logging"
	"github.com/garima440/NYC-transit-hub/internal/metrics"
	"github.com/garima440/NYC-transit-hub/internal/models"
	"github.com/garima440/NYC-transit-hub/internal/snapshot"
)

// Scheduler supervises one refresh service per timer. The positions timer
// drives both the positions and trip_updates categories because both are
// derived from the same binary feeds.
type Scheduler struct {
	supervisor *suture.Supervisor
}

// New builds the supervisor tree with the three refresh services.
func New(cfg *config.Config, agg *aggregate.Aggregator, store *snapshot.Store, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	handler := &sutureslog.Handler{Logger: logger}
	sup := suture.New("transit-hub", suture.Spec{
		EventHook: handler.MustHook(),
	})

	sup.Add(&refreshService{
		name:       "positions-refresh",
		interval:   cfg.Intervals.Positions,
		categories: []models.Category{models.CategoryPositions, models.CategoryTripUpdates},
		aggregator: agg,
		store:      store,
		metrics:    m,
		logger:     logger,
	})
	sup.Add(&refreshService{
		name:       "alerts-refresh",
		interval:   cfg.Intervals.Alerts,
		categories: []models.Category{models.CategoryAlerts},
		aggregator: agg,
		store:      store,
		metrics:    m,
		logger:     logger,
	})
	sup.Add(&refreshService{
		name:       "accessibility-refresh",
		interval:   cfg.Intervals.Accessibility,
		categories: []models.Category{models.CategoryAccessibility},
		aggregator: agg,
		store:      store,
		metrics:    m,
		logger:     logger,
	})

	return &Scheduler{supervisor: sup}
}

// Serve runs the refresh loops until the context is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	return s.supervisor.Serve(ctx)
}

// ServeBackground starts the refresh loops and returns a channel that
// reports the supervisor's exit.
func (s *Scheduler) ServeBackground(ctx context.Context) <-chan error {
	return s.supervisor.ServeBackground(ctx)
}

// refreshService runs the categories of one timer. It implements
// suture.Service.
type refreshService struct {
	name       string
	interval   time.Duration
	categories []models.Category
	aggregator *aggregate.Aggregator
	store      *snapshot.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func (r *refreshService) String() string { return r.name }

// Serve refreshes once at startup so readers have data immediately, then
// fires on the fixed interval until shutdown.
func (r *refreshService) Serve(ctx context.Context) error {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *refreshService) refresh(ctx context.Context) {
	for _, category := range r.categories {
		r.refreshCategory(ctx, category)
	}
}

// refreshCategory runs one aggregation cycle and publishes the result.
// A fault escaping the aggregator abandons this cycle only.
func (r *refreshService) refreshCategory(ctx context.Context, category models.Category) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			logging.LogError(r.logger, "refresh cycle fault", fmt.Errorf("%v", rec),
				slog.String("category", string(category)))
			r.metrics.RefreshCyclesTotal.WithLabelValues(string(category), "fault").Inc()
		}
	}()

	snap := r.aggregator.Aggregate(ctx, category)
	if ctx.Err() != nil {
		return
	}
	r.store.Publish(snap)

	r.metrics.RefreshCyclesTotal.WithLabelValues(string(category), "ok").Inc()
	r.metrics.RefreshCycleDuration.WithLabelValues(string(category)).Observe(time.Since(started).Seconds())
	r.metrics.LastSuccessTimestamp.WithLabelValues(string(category)).Set(float64(snap.CapturedAt.Unix()))

	logging.LogOperation(r.logger, "snapshot_published",
		slog.String("category", string(category)),
		slog.Int("entities", len(snap.Entities)),
		slog.Int("sources", len(snap.PerSource)))
}
