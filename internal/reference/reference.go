// Package reference loads the static GTFS dataset and answers the lookups
// the projector and hub need: stop coordinates, route styling, and route
// shape geometry. The dataset is immutable after load, so all lookups are
// safe for concurrent use.
package reference

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/OneBusAway/go-gtfs"
	"github.com/tidwall/rtree"

	"github.com/garima440/NYC-transit-hub/internal/logging"
	"github.com/garima440/NYC-transit-hub/internal/utils"
)

// Fallbacks for vehicles and routes the static dataset does not know.
// The coordinate is Lower Manhattan, near the geographic center of the
// subway network.
const (
	DefaultLatitude  = 40.7128
	DefaultLongitude = -74.0060
	DefaultColor     = "6D6E71"
)

// Stop is a static stop with a resolved coordinate.
type Stop struct {
	ID        string
	Latitude  float64
	Longitude float64
}

// Route is the subset of static route data used for map styling.
type Route struct {
	ID        string
	ShortName string
	Color     string
}

// Shape is an ordered run of coordinates for one shape id.
type Shape struct {
	ID     string
	Points []gtfs.ShapePoint
}

// Dataset is the loaded static reference data.
type Dataset struct {
	stops       map[string]Stop
	routes      map[string]Route
	shapes      map[string]*Shape
	routeShapes map[string][]string

	stopIndex rtree.RTreeG[Stop]
}

// Load parses a GTFS static zip and builds the lookup tables.
func Load(b []byte, logger *slog.Logger) (*Dataset, error) {
	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("unable to parse static dataset: %w", err)
	}

	ds := &Dataset{
		stops:       make(map[string]Stop, len(staticData.Stops)),
		routes:      make(map[string]Route, len(staticData.Routes)),
		shapes:      make(map[string]*Shape, len(staticData.Shapes)),
		routeShapes: make(map[string][]string),
	}

	for _, s := range staticData.Stops {
		// Stops without a coordinate cannot serve lookups.
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		stop := Stop{ID: s.Id, Latitude: *s.Latitude, Longitude: *s.Longitude}
		ds.stops[stop.ID] = stop
		ds.stopIndex.Insert(
			[2]float64{stop.Longitude, stop.Latitude},
			[2]float64{stop.Longitude, stop.Latitude},
			stop)
	}

	for _, r := range staticData.Routes {
		ds.routes[r.Id] = Route{ID: r.Id, ShortName: r.ShortName, Color: r.Color}
	}

	for i := range staticData.Shapes {
		s := &staticData.Shapes[i]
		ds.shapes[s.ID] = &Shape{ID: s.ID, Points: s.Points}
	}

	// Shapes carry no route id of their own; the trips provide the join.
	seen := make(map[string]map[string]bool)
	for _, t := range staticData.Trips {
		if t.Route == nil || t.Shape == nil {
			continue
		}
		routeID := t.Route.Id
		if seen[routeID] == nil {
			seen[routeID] = make(map[string]bool)
		}
		if seen[routeID][t.Shape.ID] {
			continue
		}
		seen[routeID][t.Shape.ID] = true
		ds.routeShapes[routeID] = append(ds.routeShapes[routeID], t.Shape.ID)
	}
	for _, shapeIDs := range ds.routeShapes {
		sort.Strings(shapeIDs)
	}

	logging.LogOperation(logger, "static_dataset_loaded",
		slog.Int("stops", len(ds.stops)),
		slog.Int("routes", len(ds.routes)),
		slog.Int("shapes", len(ds.shapes)),
		slog.Int("warnings", len(staticData.Warnings)))

	return ds, nil
}

// LoadFile reads and parses a GTFS static zip from disk.
func LoadFile(path string, logger *slog.Logger) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read static dataset %s: %w", path, err)
	}
	return Load(b, logger)
}

// NewDataset assembles a dataset from already-loaded reference data, for
// callers sourcing geometry from somewhere other than a GTFS zip.
func NewDataset(stops []Stop, routes []Route, shapes []Shape, routeShapes map[string][]string) *Dataset {
	ds := Empty()
	for _, stop := range stops {
		ds.stops[stop.ID] = stop
		ds.stopIndex.Insert(
			[2]float64{stop.Longitude, stop.Latitude},
			[2]float64{stop.Longitude, stop.Latitude},
			stop)
	}
	for _, route := range routes {
		ds.routes[route.ID] = route
	}
	for i := range shapes {
		ds.shapes[shapes[i].ID] = &shapes[i]
	}
	for routeID, shapeIDs := range routeShapes {
		ids := append([]string(nil), shapeIDs...)
		sort.Strings(ids)
		ds.routeShapes[routeID] = ids
	}
	return ds
}

// Empty returns a dataset with no static data. Every lookup falls back to
// the defaults, which keeps the pipeline usable without a static feed.
func Empty() *Dataset {
	return &Dataset{
		stops:       map[string]Stop{},
		routes:      map[string]Route{},
		shapes:      map[string]*Shape{},
		routeShapes: map[string][]string{},
	}
}

// StopCoordinates resolves a stop id to its coordinate.
func (ds *Dataset) StopCoordinates(stopID string) (lat, lon float64, ok bool) {
	stop, ok := ds.stops[stopID]
	if !ok {
		return 0, 0, false
	}
	return stop.Latitude, stop.Longitude, true
}

// RouteColor returns the route's color, or DefaultColor when the route is
// unknown or carries none.
func (ds *Dataset) RouteColor(routeID string) string {
	if r, ok := ds.routes[routeID]; ok && r.Color != "" {
		return r.Color
	}
	return DefaultColor
}

// RouteShortName returns the route's short name, falling back to the route
// id itself so map labels are never blank.
func (ds *Dataset) RouteShortName(routeID string) string {
	if r, ok := ds.routes[routeID]; ok && r.ShortName != "" {
		return r.ShortName
	}
	return routeID
}

// RouteIDs returns all known route ids in lexical order.
func (ds *Dataset) RouteIDs() []string {
	ids := make([]string, 0, len(ds.routes))
	for id := range ds.routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ShapesForRoute returns the route's shapes in shape id order.
func (ds *Dataset) ShapesForRoute(routeID string) []*Shape {
	shapeIDs := ds.routeShapes[routeID]
	shapes := make([]*Shape, 0, len(shapeIDs))
	for _, id := range shapeIDs {
		if s, ok := ds.shapes[id]; ok {
			shapes = append(shapes, s)
		}
	}
	return shapes
}

// StopsNearby returns the stops within radiusMeters of the given point,
// closest first. Ties break on stop id so the order is stable.
func (ds *Dataset) StopsNearby(lat, lon, radiusMeters float64) []Stop {
	bounds := utils.CalculateBounds(lat, lon, radiusMeters)

	type candidate struct {
		stop     Stop
		distance float64
	}
	var candidates []candidate
	ds.stopIndex.Search(
		[2]float64{bounds.MinLon, bounds.MinLat},
		[2]float64{bounds.MaxLon, bounds.MaxLat},
		func(min, max [2]float64, stop Stop) bool {
			d := utils.Distance(lat, lon, stop.Latitude, stop.Longitude)
			if d <= radiusMeters {
				candidates = append(candidates, candidate{stop: stop, distance: d})
			}
			return true
		})

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].stop.ID < candidates[j].stop.ID
	})

	stops := make([]Stop, len(candidates))
	for i, c := range candidates {
		stops[i] = c.stop
	}
	return stops
}
