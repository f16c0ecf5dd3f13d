// Package aggregate drives one refresh cycle: fetch every feed of a
// category concurrently, decode and normalize each result independently,
// and merge the contributions into a single snapshot. Feed failures are
// contained at the single-feed boundary; one broken upstream never blanks
// the other feeds' entities.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/garima440/NYC-transit-hub/internal/clock"
	"github.com/garima440/NYC-transit-hub/internal/config"
	"github.com/garima440/NYC-transit-hub/internal/decode"
	"github.com/garima440/NYC-transit-hub/internal/fetch"
	"github.com/garima440/NYC-transit-hub/internal/logging"
	"github.com/garima440/NYC-transit-hub/internal/metrics"
	"github.com/garima440/NYC-transit-hub/internal/models"
	"github.com/garima440/NYC-transit-hub/internal/normalize"
	"github.com/garima440/NYC-transit-hub/internal/snapshot"
)

// Aggregator builds snapshots from the configured feeds of each category.
type Aggregator struct {
	cfg     *config.Config
	fetcher *fetch.Fetcher
	store   *snapshot.Store
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires an aggregator. The store is consulted for the equipment
// registry during accessibility cycles and updated with each fresh
// registry fetch.
func New(cfg *config.Config, fetcher *fetch.Fetcher, store *snapshot.Store, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		clock:   clk,
		metrics: m,
		logger:  logger,
	}
}

// feedResult carries one feed's contribution back to the merge step.
type feedResult struct {
	feed      config.Feed
	entities  []models.Entity
	equipment []models.Equipment
	status    models.SourceStatus
}

// Aggregate runs one refresh cycle for a category and returns the snapshot
// to publish. The returned snapshot always covers every configured feed in
// its per-source status, including the failed ones.
func (a *Aggregator) Aggregate(ctx context.Context, category models.Category) *models.Snapshot {
	capturedAt := a.clock.Now()
	feeds := a.cfg.FeedsFor(category)

	workers := pool.NewWithResults[feedResult]().WithContext(ctx)
	for _, feed := range feeds {
		workers.Go(func(ctx context.Context) (feedResult, error) {
			return a.collectFeed(ctx, category, feed), nil
		})
	}
	results, _ := workers.Wait()

	// Worker completion order is scheduling-dependent; re-key by feed
	// name and merge in configuration order so snapshots are stable.
	byName := make(map[string]feedResult, len(results))
	for _, r := range results {
		byName[r.feed.Name] = r
	}

	snap := &models.Snapshot{
		CapturedAt: capturedAt,
		Category:   category,
		Entities:   []models.Entity{},
		PerSource:  make(map[string]models.SourceStatus, len(feeds)),
	}

	if category == models.CategoryAccessibility {
		a.refreshEquipmentRegistry(results)
	}

	for _, feed := range feeds {
		r, ok := byName[feed.Name]
		if !ok {
			// Only reachable when the cycle context is cancelled
			// before the worker ran.
			snap.PerSource[feed.Name] = models.SourceStatus{Error: "cycle cancelled"}
			continue
		}

		entities := r.entities
		if category == models.CategoryPositions || category == models.CategoryTripUpdates {
			entities = a.dropStale(category, entities, capturedAt)
		}
		if category == models.CategoryAccessibility {
			a.joinEquipment(entities)
		}

		r.status.Count = len(entities)
		snap.PerSource[feed.Name] = r.status
		snap.Entities = append(snap.Entities, entities...)
	}

	a.metrics.SnapshotEntities.WithLabelValues(string(category)).Set(float64(len(snap.Entities)))
	return snap
}

// collectFeed runs the fetch+decode+normalize pipeline for one feed. A
// panic in any stage is converted into an error status for that feed only.
func (a *Aggregator) collectFeed(ctx context.Context, category models.Category, feed config.Feed) (result feedResult) {
	result = feedResult{feed: feed}

	defer func() {
		if r := recover(); r != nil {
			logging.LogError(a.logger, "feed pipeline panic", fmt.Errorf("%v", r),
				slog.String("feed", feed.Name))
			result.entities = nil
			result.equipment = nil
			result.status = models.SourceStatus{Error: fmt.Sprintf("panic: %v", r)}
			a.metrics.FeedFetchesTotal.WithLabelValues(feed.Name, "panic").Inc()
		}
	}()

	fetched, err := a.fetcher.Fetch(ctx, feed)
	if err != nil {
		logging.LogError(a.logger, "feed fetch failed", err, slog.String("feed", feed.Name))
		result.status = models.SourceStatus{Error: err.Error()}
		a.metrics.FeedFetchesTotal.WithLabelValues(feed.Name, fetchOutcome(err)).Inc()
		return result
	}
	a.metrics.FeedFetchesTotal.WithLabelValues(feed.Name, "ok").Inc()

	entities, equipment, err := a.decodeAndNormalize(category, feed, fetched)
	if err != nil {
		logging.LogError(a.logger, "feed decode failed", err, slog.String("feed", feed.Name))
		result.status = models.SourceStatus{Error: err.Error()}
		return result
	}

	result.entities = entities
	result.equipment = equipment
	result.status = models.SourceStatus{OK: true}
	return result
}

func (a *Aggregator) decodeAndNormalize(category models.Category, feed config.Feed, fetched *fetch.Result) ([]models.Entity, []models.Equipment, error) {
	switch category {
	case models.CategoryPositions:
		rt, err := decode.GTFSRealtime(feed.Name, fetched.Body)
		if err != nil {
			return nil, nil, err
		}
		return normalize.VehiclePositions(feed.Name, rt, fetched.FetchedAt), nil, nil

	case models.CategoryTripUpdates:
		rt, err := decode.GTFSRealtime(feed.Name, fetched.Body)
		if err != nil {
			return nil, nil, err
		}
		return normalize.TripUpdates(feed.Name, rt, fetched.FetchedAt), nil, nil

	case models.CategoryAlerts:
		raws, err := decode.AlertsJSON(feed.Name, fetched.Body)
		if err != nil {
			return nil, nil, err
		}
		return normalize.Alerts(feed.Name, raws), nil, nil

	case models.CategoryAccessibility:
		return a.decodeAccessibility(feed, fetched)
	}
	return nil, nil, fmt.Errorf("unknown category %q", category)
}

// decodeAccessibility dispatches on the feed's role: the equipment registry
// arrives as JSON, the outage feeds as XML.
func (a *Aggregator) decodeAccessibility(feed config.Feed, fetched *fetch.Result) ([]models.Entity, []models.Equipment, error) {
	var bags []decode.AttributeBag
	var err error
	switch feed.Format {
	case config.FormatJSON:
		bags, err = decode.EquipmentJSON(feed.Name, fetched.Body)
	default:
		bags, err = decode.EquipmentXML(feed.Name, fetched.Body)
	}
	if err != nil {
		return nil, nil, err
	}

	switch feed.Role {
	case config.RoleEquipment:
		return nil, normalize.Equipment(bags), nil
	case config.RoleUpcoming:
		return outageEntities(normalize.Outages(feed.Name, bags, true)), nil, nil
	default:
		return outageEntities(normalize.Outages(feed.Name, bags, false)), nil, nil
	}
}

func outageEntities(outages []*models.AccessibilityOutage) []models.Entity {
	entities := make([]models.Entity, 0, len(outages))
	for _, outage := range outages {
		entities = append(entities, models.OutageEntity(outage))
	}
	return entities
}

// refreshEquipmentRegistry replaces the registry when the equipment feed
// contributed this cycle. A failed registry fetch keeps the prior registry
// so outage joins stay resolvable.
func (a *Aggregator) refreshEquipmentRegistry(results []feedResult) {
	for _, r := range results {
		if r.feed.Role != config.RoleEquipment || !r.status.OK {
			continue
		}
		a.store.SetEquipment(r.equipment)
		logging.LogOperation(a.logger, "equipment_registry_replaced",
			slog.Int("count", len(r.equipment)))
	}
}

// joinEquipment resolves the equipment reference on each outage. Outages
// naming an unknown equipment id keep a nil Equipment rather than being
// dropped.
func (a *Aggregator) joinEquipment(entities []models.Entity) {
	for _, entity := range entities {
		if entity.Kind != models.KindOutage {
			continue
		}
		if e, ok := a.store.EquipmentByID(entity.Outage.EquipmentID); ok {
			joined := e
			entity.Outage.Equipment = &joined
		}
	}
}

// dropStale removes entities observed longer than the staleness window
// before the capture time. Feeds that stop updating a vehicle would
// otherwise accumulate it forever.
func (a *Aggregator) dropStale(category models.Category, entities []models.Entity, capturedAt time.Time) []models.Entity {
	cutoff := capturedAt.Add(-a.cfg.StalenessWindow).Unix()
	kept := entities[:0]
	dropped := 0
	for _, entity := range entities {
		if entity.ObservedAt() < cutoff {
			dropped++
			continue
		}
		kept = append(kept, entity)
	}
	if dropped > 0 {
		a.metrics.StaleEntitiesDropped.WithLabelValues(string(category)).Add(float64(dropped))
	}
	return kept
}

func fetchOutcome(err error) string {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		return string(fe.Kind)
	}
	return "error"
}
