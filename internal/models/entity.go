// Package models defines the unified entity model shared by every stage of
// the aggregation pipeline. Decoders for the different wire formats all
// produce these types, and downstream code (aggregator, snapshot store,
// projector) operates only on them.
package models

// Category identifies one refresh category. Each category has its own feeds,
// refresh cadence, and published snapshot.
type Category string

const (
	CategoryPositions     Category = "positions"
	CategoryTripUpdates   Category = "trip_updates"
	CategoryAlerts        Category = "alerts"
	CategoryAccessibility Category = "accessibility"
)

// Categories returns all refresh categories in a stable order.
func Categories() []Category {
	return []Category{CategoryPositions, CategoryTripUpdates, CategoryAlerts, CategoryAccessibility}
}

// VehicleStatus is the internal vehicle stop-status enum. Upstream integer
// codes outside the known set map to VehicleStatusUnknown.
type VehicleStatus string

const (
	VehicleIncomingAt    VehicleStatus = "incoming_at"
	VehicleStoppedAt     VehicleStatus = "stopped_at"
	VehicleInTransitTo   VehicleStatus = "in_transit_to"
	VehicleStatusUnknown VehicleStatus = "unknown"
)

// ScheduleRelationship is the internal schedule-relationship enum for trips
// and stop time updates. Unrecognized upstream codes map to RelationshipNoData.
type ScheduleRelationship string

const (
	RelationshipScheduled ScheduleRelationship = "scheduled"
	RelationshipAdded     ScheduleRelationship = "added"
	RelationshipCanceled  ScheduleRelationship = "canceled"
	RelationshipSkipped   ScheduleRelationship = "skipped"
	RelationshipNoData    ScheduleRelationship = "no_data"
)

// VehiclePosition is one observed vehicle. Latitude/Longitude/Bearing are
// pointers because 0.0 is a valid coordinate: absence on the wire must stay
// absence here, or stop-based positions would project to (0, 0) in the
// Atlantic off Ghana.
type VehiclePosition struct {
	VehicleID     string
	TripID        string
	RouteID       string
	Direction     *uint32
	Latitude      *float64
	Longitude     *float64
	Bearing       *float64
	Status        VehicleStatus
	CurrentStopID string
	// ObservedAt is the upstream timestamp in Unix seconds. When the wire
	// omits it the normalizer substitutes the fetch time.
	ObservedAt int64
	SourceFeed string
}

// StopTimeUpdate is one predicted stop call within a TripUpdate.
type StopTimeUpdate struct {
	StopID               string
	StopSequence         *uint32
	PredictedArrival     *int64 // Unix seconds
	PredictedDeparture   *int64 // Unix seconds
	ScheduleRelationship ScheduleRelationship
}

// TripUpdate is one trip's predicted timeline.
type TripUpdate struct {
	TripID               string
	RouteID              string
	Direction            *uint32
	StartTime            string // HH:MM:SS as reported upstream
	StartDate            string // YYYYMMDD as reported upstream
	ScheduleRelationship ScheduleRelationship
	StopTimeUpdates      []StopTimeUpdate
	ObservedAt           int64
	SourceFeed           string
}

// InformedEntityType classifies what an alert applies to.
type InformedEntityType string

const (
	InformedEntityRoute   InformedEntityType = "route"
	InformedEntityStation InformedEntityType = "station"
	InformedEntityAgency  InformedEntityType = "agency"
)

// InformedEntity is one route/station/agency an alert applies to.
type InformedEntity struct {
	Type InformedEntityType
	ID   string
}

// ActivePeriod is one window during which an alert is in effect. End is nil
// for open-ended alerts.
type ActivePeriod struct {
	Start int64
	End   *int64
}

// Alert is one normalized service alert. HeaderText and DescriptionText hold
// the English translation when upstream provides one, the first available
// translation otherwise, and "" when there are no translations at all.
type Alert struct {
	AlertID          string
	Effect           string
	Cause            string
	HeaderText       string
	DescriptionText  string
	ActivePeriods    []ActivePeriod
	InformedEntities []InformedEntity
	SourceFeed       string
}

// Equipment is one registry entry for an elevator or escalator, keyed by
// equipment ID. The registry has its own lifecycle: it is upserted on each
// accessibility refresh and outlives any individual outage.
type Equipment struct {
	EquipmentID   string
	StationID     string
	EquipmentType string
	Location      string
	Serving       string
}

// AccessibilityOutage is one elevator/escalator outage. Equipment carries the
// joined registry attributes and is nil when the outage references an unknown
// equipment ID; such records are retained, not dropped.
//
// OutageStart and EstimatedReturn hold the raw upstream values: the feed's
// field names and formats for these are provisional (they have been observed
// to drift between the JSON and XML renditions), so no parsing is imposed
// here.
type AccessibilityOutage struct {
	EquipmentID     string
	OutageID        string
	Reason          string
	OutageStart     string
	EstimatedReturn string
	IsUpcoming      bool
	Equipment       *Equipment
	SourceFeed      string
}

// EntityKind discriminates the Entity variant.
type EntityKind string

const (
	KindVehiclePosition EntityKind = "vehicle_position"
	KindTripUpdate      EntityKind = "trip_update"
	KindAlert           EntityKind = "alert"
	KindOutage          EntityKind = "accessibility_outage"
)

// Entity is the tagged variant produced by the normalizer. Exactly one of the
// payload pointers is non-nil, matching Kind.
type Entity struct {
	Kind     EntityKind
	Vehicle  *VehiclePosition
	Trip     *TripUpdate
	Alert    *Alert
	Outage   *AccessibilityOutage
}

// ObservedAt returns the upstream observation time for kinds that carry one,
// and 0 for full-replacement kinds (alerts, outages), which are never
// age-filtered.
func (e Entity) ObservedAt() int64 {
	switch e.Kind {
	case KindVehiclePosition:
		return e.Vehicle.ObservedAt
	case KindTripUpdate:
		return e.Trip.ObservedAt
	}
	return 0
}

// SourceFeed returns the name of the feed the entity came from.
func (e Entity) SourceFeed() string {
	switch e.Kind {
	case KindVehiclePosition:
		return e.Vehicle.SourceFeed
	case KindTripUpdate:
		return e.Trip.SourceFeed
	case KindAlert:
		return e.Alert.SourceFeed
	case KindOutage:
		return e.Outage.SourceFeed
	}
	return ""
}

func VehicleEntity(v *VehiclePosition) Entity {
	return Entity{Kind: KindVehiclePosition, Vehicle: v}
}

func TripEntity(t *TripUpdate) Entity {
	return Entity{Kind: KindTripUpdate, Trip: t}
}

func AlertEntity(a *Alert) Entity {
	return Entity{Kind: KindAlert, Alert: a}
}

func OutageEntity(o *AccessibilityOutage) Entity {
	return Entity{Kind: KindOutage, Outage: o}
}
