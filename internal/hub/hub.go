// Package hub is the read API over the published snapshots and static
// reference data. Route and station filters walk the current snapshot on
// each call; GeoJSON projections are cached per snapshot so repeated map
// reads between refreshes do not re-project.
package hub

import (
	"sync"

	"github.com/garima440/NYC-transit-hub/internal/clock"
	"github.com/garima440/NYC-transit-hub/internal/geo"
	"github.com/garima440/NYC-transit-hub/internal/models"
	"github.com/garima440/NYC-transit-hub/internal/reference"
	"github.com/garima440/NYC-transit-hub/internal/snapshot"
)

// Hub answers read queries against the latest published state.
type Hub struct {
	store *snapshot.Store
	ds    *reference.Dataset
	clock clock.Clock

	mu       sync.Mutex
	geoCache map[models.Category]geoCacheEntry

	shapesOnce sync.Once
	allShapes  *geo.FeatureCollection
}

// geoCacheEntry ties a projection to the snapshot it was derived from.
// Snapshots are immutable, so pointer identity is a valid cache key.
type geoCacheEntry struct {
	snap       *models.Snapshot
	collection *geo.FeatureCollection
	skipped    int
}

// New builds a hub over the given store and static dataset.
func New(store *snapshot.Store, ds *reference.Dataset, clk clock.Clock) *Hub {
	return &Hub{
		store:    store,
		ds:       ds,
		clock:    clk,
		geoCache: make(map[models.Category]geoCacheEntry),
	}
}

// GetSnapshot returns the current snapshot for a category. A category that
// has never refreshed successfully yields an empty snapshot, not an error.
func (h *Hub) GetSnapshot(category models.Category) *models.Snapshot {
	if snap := h.store.Current(category); snap != nil {
		return snap
	}
	return models.EmptySnapshot(category, h.clock.Now())
}

// GetFeedHealth reports the per-source status of every refreshed category.
func (h *Hub) GetFeedHealth() models.FeedHealth {
	return h.store.Health()
}

// GetGeoJSON projects the current snapshot of a category into GeoJSON and
// reports how many entities could not be placed. Only the positions and
// accessibility categories carry geometry; other categories project to an
// empty collection.
func (h *Hub) GetGeoJSON(category models.Category) (*geo.FeatureCollection, int) {
	snap := h.GetSnapshot(category)

	h.mu.Lock()
	defer h.mu.Unlock()
	if entry, ok := h.geoCache[category]; ok && entry.snap == snap {
		return entry.collection, entry.skipped
	}

	var collection *geo.FeatureCollection
	var skipped int
	switch category {
	case models.CategoryPositions:
		collection, skipped = geo.Vehicles(snap, h.ds)
	case models.CategoryAccessibility:
		collection, skipped = geo.Outages(snap, h.ds)
	default:
		collection = &geo.FeatureCollection{Type: "FeatureCollection", Features: []geo.Feature{}}
	}

	h.geoCache[category] = geoCacheEntry{snap: snap, collection: collection, skipped: skipped}
	return collection, skipped
}

// GetRouteShapesGeoJSON returns line features for the requested routes, or
// for the whole network when no route ids are given. The whole-network
// projection is static and computed once.
func (h *Hub) GetRouteShapesGeoJSON(routeIDs ...string) *geo.FeatureCollection {
	if len(routeIDs) == 0 {
		h.shapesOnce.Do(func() {
			h.allShapes = geo.RouteShapes(h.ds)
		})
		return h.allShapes
	}
	return geo.RouteShapes(h.ds, routeIDs...)
}

// GetVehiclesForRoute returns the current vehicles serving a route.
func (h *Hub) GetVehiclesForRoute(routeID string) []*models.VehiclePosition {
	snap := h.GetSnapshot(models.CategoryPositions)
	var vehicles []*models.VehiclePosition
	for _, entity := range snap.Entities {
		if entity.Kind == models.KindVehiclePosition && entity.Vehicle.RouteID == routeID {
			vehicles = append(vehicles, entity.Vehicle)
		}
	}
	return vehicles
}

// GetTripUpdatesForRoute returns the current trip updates for a route.
func (h *Hub) GetTripUpdatesForRoute(routeID string) []*models.TripUpdate {
	snap := h.GetSnapshot(models.CategoryTripUpdates)
	var updates []*models.TripUpdate
	for _, entity := range snap.Entities {
		if entity.Kind == models.KindTripUpdate && entity.Trip.RouteID == routeID {
			updates = append(updates, entity.Trip)
		}
	}
	return updates
}

// GetAlertsForRoute returns the active alerts naming a route.
func (h *Hub) GetAlertsForRoute(routeID string) []*models.Alert {
	snap := h.GetSnapshot(models.CategoryAlerts)
	var alerts []*models.Alert
	for _, entity := range snap.Entities {
		if entity.Kind != models.KindAlert {
			continue
		}
		for _, informed := range entity.Alert.InformedEntities {
			if informed.Type == models.InformedEntityRoute && informed.ID == routeID {
				alerts = append(alerts, entity.Alert)
				break
			}
		}
	}
	return alerts
}

// GetOutagesForStation returns the outages whose equipment serves a
// station. Outages with an unresolved equipment join have no station and
// never match.
func (h *Hub) GetOutagesForStation(stationID string) []*models.AccessibilityOutage {
	snap := h.GetSnapshot(models.CategoryAccessibility)
	var outages []*models.AccessibilityOutage
	for _, entity := range snap.Entities {
		if entity.Kind != models.KindOutage {
			continue
		}
		if entity.Outage.Equipment != nil && entity.Outage.Equipment.StationID == stationID {
			outages = append(outages, entity.Outage)
		}
	}
	return outages
}

// StopsNearby returns the static stops within radiusMeters of a point,
// closest first.
func (h *Hub) StopsNearby(lat, lon, radiusMeters float64) []reference.Stop {
	return h.ds.StopsNearby(lat, lon, radiusMeters)
}
