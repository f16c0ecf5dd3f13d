package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garima440/NYC-transit-hub/internal/models"
)

func snapAt(category models.Category, capturedAt time.Time) *models.Snapshot {
	return &models.Snapshot{
		CapturedAt: capturedAt,
		Category:   category,
		Entities:   []models.Entity{},
		PerSource:  map[string]models.SourceStatus{"A": {OK: true}},
	}
}

func TestPublishAndCurrent(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.Current(models.CategoryPositions))
	assert.Nil(t, store.Previous(models.CategoryPositions))

	first := snapAt(models.CategoryPositions, time.Unix(1700000000, 0))
	store.Publish(first)
	assert.Same(t, first, store.Current(models.CategoryPositions))
	assert.Nil(t, store.Previous(models.CategoryPositions))

	second := snapAt(models.CategoryPositions, time.Unix(1700000060, 0))
	store.Publish(second)
	assert.Same(t, second, store.Current(models.CategoryPositions))
	assert.Same(t, first, store.Previous(models.CategoryPositions))
}

func TestPublishIsPerCategory(t *testing.T) {
	store := NewStore()
	positions := snapAt(models.CategoryPositions, time.Unix(1700000000, 0))
	alerts := snapAt(models.CategoryAlerts, time.Unix(1700000010, 0))

	store.Publish(positions)
	store.Publish(alerts)

	assert.Same(t, positions, store.Current(models.CategoryPositions))
	assert.Same(t, alerts, store.Current(models.CategoryAlerts))
	assert.Nil(t, store.Current(models.CategoryAccessibility))
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	store := NewStore()
	store.Publish(snapAt(models.CategoryPositions, time.Unix(1700000000, 0)))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			store.Publish(snapAt(models.CategoryPositions, time.Unix(1700000000+int64(i), 0)))
		}
		close(stop)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Current(models.CategoryPositions)
				require.NotNil(t, snap)
				require.NotNil(t, snap.PerSource)
				require.Equal(t, models.CategoryPositions, snap.Category)
			}
		}()
	}
	wg.Wait()
}

func TestEquipmentRegistryReplaceWholeMap(t *testing.T) {
	store := NewStore()
	_, ok := store.EquipmentByID("EL289")
	assert.False(t, ok)
	assert.Zero(t, store.EquipmentCount())

	store.SetEquipment([]models.Equipment{
		{EquipmentID: "EL289", StationID: "127"},
		{EquipmentID: "ES101", StationID: "606"},
	})
	assert.Equal(t, 2, store.EquipmentCount())
	e, ok := store.EquipmentByID("EL289")
	require.True(t, ok)
	assert.Equal(t, "127", e.StationID)

	// Replacement drops records absent from the new registry.
	store.SetEquipment([]models.Equipment{{EquipmentID: "ES101", StationID: "606"}})
	_, ok = store.EquipmentByID("EL289")
	assert.False(t, ok)
	assert.Equal(t, 1, store.EquipmentCount())
}

func TestHealthCoversPublishedCategories(t *testing.T) {
	store := NewStore()
	store.Publish(&models.Snapshot{
		CapturedAt: time.Unix(1700000000, 0),
		Category:   models.CategoryAlerts,
		Entities:   []models.Entity{},
		PerSource: map[string]models.SourceStatus{
			"subway-alerts": {OK: true, Count: 4},
			"bus-alerts":    {Error: "fetch bus-alerts: timeout: context deadline exceeded"},
		},
	})

	health := store.Health()
	require.Contains(t, health, models.CategoryAlerts)
	assert.NotContains(t, health, models.CategoryPositions)

	alerts := health[models.CategoryAlerts]
	assert.Equal(t, time.Unix(1700000000, 0), alerts.CapturedAt)
	assert.True(t, alerts.Sources["subway-alerts"].OK)
	assert.Equal(t, 4, alerts.Sources["subway-alerts"].Count)
	assert.False(t, alerts.Sources["bus-alerts"].OK)
}
