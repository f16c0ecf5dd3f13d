package models

import "time"

// SourceStatus records one feed's outcome within a refresh cycle.
type SourceStatus struct {
	OK    bool
	Error string
	// Count is the number of entities the feed contributed after
	// normalization and staleness filtering.
	Count int
}

// Snapshot is an immutable view of one category at one capture time. A
// refresh cycle builds a brand-new Snapshot; once published via the snapshot
// store nothing may mutate it or anything reachable from it. Consumers hold a
// reference to exactly one version at a time.
type Snapshot struct {
	CapturedAt time.Time
	Category   Category
	Entities   []Entity
	PerSource  map[string]SourceStatus
}

// EmptySnapshot returns a published-safe empty snapshot for a category that
// has never completed a successful refresh. Readers get zero entities rather
// than an error.
func EmptySnapshot(category Category, capturedAt time.Time) *Snapshot {
	return &Snapshot{
		CapturedAt: capturedAt,
		Category:   category,
		Entities:   []Entity{},
		PerSource:  map[string]SourceStatus{},
	}
}

// CategoryHealth is the health view for one category.
type CategoryHealth struct {
	CapturedAt time.Time
	Sources    map[string]SourceStatus
}

// FeedHealth maps every category to its per-source refresh status.
type FeedHealth map[Category]CategoryHealth
