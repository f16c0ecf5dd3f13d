package geo

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"

	"github.com/OneBusAway/go-gtfs"

	"github.com/garima440/NYC-transit-hub/internal/models"
	"github.com/garima440/NYC-transit-hub/internal/reference"
)

func f64(v float64) *float64 { return &v }

func testDataset() *reference.Dataset {
	return reference.NewDataset(
		[]reference.Stop{
			{ID: "101", Latitude: 40.889248, Longitude: -73.898583},
			{ID: "127", Latitude: 40.755983, Longitude: -73.986229},
		},
		[]reference.Route{
			{ID: "1", ShortName: "1", Color: "EE352E"},
		},
		[]reference.Shape{
			{ID: "1..S03R", Points: []gtfs.ShapePoint{
				{Latitude: 40.889248, Longitude: -73.898583},
				{Latitude: 40.884667, Longitude: -73.900870},
			}},
		},
		map[string][]string{"1": {"1..S03R"}},
	)
}

func positionsSnapshot() *models.Snapshot {
	return &models.Snapshot{
		CapturedAt: time.Unix(1700000000, 0),
		Category:   models.CategoryPositions,
		Entities: []models.Entity{
			models.VehicleEntity(&models.VehiclePosition{
				VehicleID: "v-coords",
				RouteID:   "1",
				Latitude:  f64(40.75),
				Longitude: f64(-73.98),
				Status:    models.VehicleInTransitTo,
			}),
			models.VehicleEntity(&models.VehiclePosition{
				VehicleID:     "v-stop-only",
				RouteID:       "1",
				CurrentStopID: "127",
				Status:        models.VehicleStoppedAt,
			}),
			models.VehicleEntity(&models.VehiclePosition{
				VehicleID:     "v-unknown-stop",
				RouteID:       "1",
				CurrentStopID: "zzz",
			}),
			models.VehicleEntity(&models.VehiclePosition{
				VehicleID: "v-nothing",
				RouteID:   "1",
			}),
		},
		PerSource: map[string]models.SourceStatus{},
	}
}

func TestVehiclesResolvesCoordinates(t *testing.T) {
	collection, skipped := Vehicles(positionsSnapshot(), testDataset())

	assert.Equal(t, 2, skipped, "unresolvable vehicles are counted, not fabricated")
	require.Len(t, collection.Features, 2)

	direct := collection.Features[0]
	assert.Equal(t, "v-coords", direct.ID)
	assert.Equal(t, "Point", direct.Geometry.Type)
	assert.Equal(t, []float64{-73.98, 40.75}, direct.Geometry.Coordinates)

	viaStop := collection.Features[1]
	assert.Equal(t, "v-stop-only", viaStop.ID)
	assert.Equal(t, []float64{-73.986229, 40.755983}, viaStop.Geometry.Coordinates)
	assert.Equal(t, "stopped_at", viaStop.Properties["status"])
}

func TestVehiclesProjectionIsDeterministic(t *testing.T) {
	snap := positionsSnapshot()
	ds := testDataset()

	first, _ := Vehicles(snap, ds)
	second, _ := Vehicles(snap, ds)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestVehiclesIgnoresOtherKinds(t *testing.T) {
	snap := &models.Snapshot{
		Category: models.CategoryPositions,
		Entities: []models.Entity{
			models.AlertEntity(&models.Alert{AlertID: "a1"}),
		},
	}

	collection, skipped := Vehicles(snap, testDataset())
	assert.Empty(t, collection.Features)
	assert.Zero(t, skipped)
}

func TestOutagesProjectToStations(t *testing.T) {
	snap := &models.Snapshot{
		Category: models.CategoryAccessibility,
		Entities: []models.Entity{
			models.OutageEntity(&models.AccessibilityOutage{
				OutageID:    "o1",
				EquipmentID: "EL289",
				Reason:      "Repair",
				Equipment:   &models.Equipment{EquipmentID: "EL289", StationID: "127", EquipmentType: "EL"},
			}),
			models.OutageEntity(&models.AccessibilityOutage{
				OutageID:    "o2",
				EquipmentID: "GHOST",
			}),
		},
	}

	collection, skipped := Outages(snap, testDataset())
	assert.Equal(t, 1, skipped)
	require.Len(t, collection.Features, 1)
	assert.Equal(t, "o1", collection.Features[0].ID)
	assert.Equal(t, []float64{-73.986229, 40.755983}, collection.Features[0].Geometry.Coordinates)
	assert.Equal(t, "EL", collection.Features[0].Properties["equipment_type"])
}

func TestRouteShapes(t *testing.T) {
	collection := RouteShapes(testDataset(), "1")
	require.Len(t, collection.Features, 1)

	feature := collection.Features[0]
	assert.Equal(t, "1:1..S03R", feature.ID)
	assert.Equal(t, "LineString", feature.Geometry.Type)
	assert.Equal(t, "EE352E", feature.Properties["color"])
	assert.Equal(t, "1", feature.Properties["short_name"])

	coords, ok := feature.Geometry.Coordinates.([][]float64)
	require.True(t, ok)
	require.Len(t, coords, 2)
	assert.Equal(t, []float64{-73.898583, 40.889248}, coords[0])

	encoded, ok := feature.Properties["points"].(string)
	require.True(t, ok)
	decoded, _, err := polyline.DecodeCoords([]byte(encoded))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.InDelta(t, 40.889248, decoded[0][0], 0.0001)
	assert.InDelta(t, -73.898583, decoded[0][1], 0.0001)
}

func TestRouteShapesUnknownRoute(t *testing.T) {
	collection := RouteShapes(testDataset(), "Q")
	assert.Empty(t, collection.Features)
}

func TestRouteShapesAllRoutes(t *testing.T) {
	collection := RouteShapes(testDataset())
	require.Len(t, collection.Features, 1)
	assert.Equal(t, "1:1..S03R", collection.Features[0].ID)
}
