// Package geo projects snapshots and static route geometry into GeoJSON.
// Projection is deterministic: the same snapshot and dataset always yield
// the same FeatureCollection, with features in source entity order and
// shape points in sequence order.
package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"

	"github.com/garima440/NYC-transit-hub/internal/models"
	"github.com/garima440/NYC-transit-hub/internal/reference"
)

// Geometry is a GeoJSON geometry. Coordinates follow the GeoJSON axis
// order, longitude before latitude.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func newCollection(capacity int) *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, capacity),
	}
}

func pointFeature(id string, lat, lon float64, properties map[string]any) Feature {
	return Feature{
		Type:       "Feature",
		ID:         id,
		Geometry:   Geometry{Type: "Point", Coordinates: []float64{lon, lat}},
		Properties: properties,
	}
}

// Vehicles projects the vehicle entities of a snapshot into point features.
// A vehicle's coordinate comes from its reported position when present,
// otherwise from the static coordinate of its current stop. Vehicles that
// resolve to neither are left out and counted in skipped; a fabricated
// location would be worse than a missing one.
func Vehicles(snapshot *models.Snapshot, ds *reference.Dataset) (collection *FeatureCollection, skipped int) {
	collection = newCollection(len(snapshot.Entities))
	for _, entity := range snapshot.Entities {
		if entity.Kind != models.KindVehiclePosition {
			continue
		}
		vehicle := entity.Vehicle

		var lat, lon float64
		switch {
		case vehicle.Latitude != nil && vehicle.Longitude != nil:
			lat, lon = *vehicle.Latitude, *vehicle.Longitude
		case vehicle.CurrentStopID != "":
			var ok bool
			lat, lon, ok = ds.StopCoordinates(vehicle.CurrentStopID)
			if !ok {
				skipped++
				continue
			}
		default:
			skipped++
			continue
		}

		properties := map[string]any{
			"route_id":    vehicle.RouteID,
			"trip_id":     vehicle.TripID,
			"status":      string(vehicle.Status),
			"stop_id":     vehicle.CurrentStopID,
			"observed_at": vehicle.ObservedAt,
			"source_feed": vehicle.SourceFeed,
		}
		if vehicle.Direction != nil {
			properties["direction"] = *vehicle.Direction
		}
		if vehicle.Bearing != nil {
			properties["bearing"] = *vehicle.Bearing
		}
		collection.Features = append(collection.Features, pointFeature(vehicle.VehicleID, lat, lon, properties))
	}
	return collection, skipped
}

// Outages projects joined accessibility outages into point features at
// their equipment's station. Outages whose equipment or station is unknown
// are skipped and counted.
func Outages(snapshot *models.Snapshot, ds *reference.Dataset) (collection *FeatureCollection, skipped int) {
	collection = newCollection(len(snapshot.Entities))
	for _, entity := range snapshot.Entities {
		if entity.Kind != models.KindOutage {
			continue
		}
		outage := entity.Outage
		if outage.Equipment == nil || outage.Equipment.StationID == "" {
			skipped++
			continue
		}
		lat, lon, ok := ds.StopCoordinates(outage.Equipment.StationID)
		if !ok {
			skipped++
			continue
		}

		collection.Features = append(collection.Features, pointFeature(outage.OutageID, lat, lon, map[string]any{
			"equipment_id":     outage.EquipmentID,
			"equipment_type":   outage.Equipment.EquipmentType,
			"station_id":       outage.Equipment.StationID,
			"reason":           outage.Reason,
			"outage_start":     outage.OutageStart,
			"estimated_return": outage.EstimatedReturn,
			"is_upcoming":      outage.IsUpcoming,
		}))
	}
	return collection, skipped
}

// RouteShapes emits one line feature per shape of each requested route,
// annotated with the route's color and short name. Passing no route ids
// projects every route in the dataset. Features order by route id then
// shape id.
func RouteShapes(ds *reference.Dataset, routeIDs ...string) *FeatureCollection {
	if len(routeIDs) == 0 {
		routeIDs = ds.RouteIDs()
	}

	collection := newCollection(len(routeIDs))
	for _, routeID := range routeIDs {
		for _, shape := range ds.ShapesForRoute(routeID) {
			if len(shape.Points) == 0 {
				continue
			}

			coordinates := make([][]float64, len(shape.Points))
			latLon := make([][]float64, len(shape.Points))
			for i, pt := range shape.Points {
				coordinates[i] = []float64{pt.Longitude, pt.Latitude}
				latLon[i] = []float64{pt.Latitude, pt.Longitude}
			}

			collection.Features = append(collection.Features, Feature{
				Type:     "Feature",
				ID:       fmt.Sprintf("%s:%s", routeID, shape.ID),
				Geometry: Geometry{Type: "LineString", Coordinates: coordinates},
				Properties: map[string]any{
					"route_id":   routeID,
					"short_name": ds.RouteShortName(routeID),
					"color":      ds.RouteColor(routeID),
					"points":     string(polyline.EncodeCoords(latLon)),
				},
			})
		}
	}
	return collection
}
