// Package snapshot holds the current and previous snapshot per category.
// Published snapshots are immutable; readers get whole snapshots through
// atomic pointer loads and never observe a partially built one.
package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"

	"github.com/garima440/NYC-transit-hub/internal/models"
)

// Store is the snapshot exchange between the refresh loop and readers.
// There is one writer per category (the scheduler) and any number of
// concurrent readers.
type Store struct {
	mu         sync.Mutex
	categories map[models.Category]*categoryState

	// The equipment registry is keyed by equipment id and replaced
	// wholesale on each accessibility cycle.
	equipment atomic.Pointer[map[string]models.Equipment]
}

type categoryState struct {
	current  atomic.Pointer[models.Snapshot]
	previous atomic.Pointer[models.Snapshot]
}

// NewStore returns an empty store covering every category.
func NewStore() *Store {
	s := &Store{categories: make(map[models.Category]*categoryState, len(models.Categories()))}
	for _, category := range models.Categories() {
		s.categories[category] = &categoryState{}
	}
	return s
}

// Publish installs snap as the current snapshot for its category and
// demotes the prior current snapshot to previous.
func (s *Store) Publish(snap *models.Snapshot) {
	state := s.categories[snap.Category]

	s.mu.Lock()
	defer s.mu.Unlock()
	if prior := state.current.Load(); prior != nil {
		state.previous.Store(prior)
	}
	state.current.Store(snap)
}

// Current returns the current snapshot for a category, or nil when none
// has been published yet.
func (s *Store) Current(category models.Category) *models.Snapshot {
	return s.categories[category].current.Load()
}

// Previous returns the snapshot that Current replaced, or nil.
func (s *Store) Previous(category models.Category) *models.Snapshot {
	return s.categories[category].previous.Load()
}

// SetEquipment replaces the equipment registry.
func (s *Store) SetEquipment(equipment []models.Equipment) {
	registry := make(map[string]models.Equipment, len(equipment))
	for _, e := range equipment {
		registry[e.EquipmentID] = e
	}
	s.equipment.Store(&registry)
}

// EquipmentByID looks up an equipment record from the registry.
func (s *Store) EquipmentByID(equipmentID string) (models.Equipment, bool) {
	registry := s.equipment.Load()
	if registry == nil {
		return models.Equipment{}, false
	}
	e, ok := (*registry)[equipmentID]
	return e, ok
}

// EquipmentCount reports the size of the equipment registry.
func (s *Store) EquipmentCount() int {
	registry := s.equipment.Load()
	if registry == nil {
		return 0
	}
	return len(*registry)
}

// Health reports the per-source status of every category that has a
// current snapshot.
func (s *Store) Health() models.FeedHealth {
	health := make(models.FeedHealth)
	for _, category := range models.Categories() {
		snap := s.Current(category)
		if snap == nil {
			continue
		}
		health[category] = models.CategoryHealth{
			CapturedAt: snap.CapturedAt,
			Sources:    snap.PerSource,
		}
	}
	return health
}

// DebugDump renders the current snapshot of a category for verbose
// troubleshooting output.
func (s *Store) DebugDump(category models.Category) string {
	return spew.Sdump(s.Current(category))
}
